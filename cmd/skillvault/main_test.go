package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillvault/pkg/db"
	"github.com/jingkaihe/skillvault/pkg/db/migrations"
	"github.com/jingkaihe/skillvault/pkg/skills"
	"github.com/jingkaihe/skillvault/pkg/skills/sqlite"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

func TestParseMetadata(t *testing.T) {
	tests := []struct {
		name     string
		entries  []string
		expected map[string]string
		wantErr  bool
	}{
		{"none", nil, nil, false},
		{"pairs", []string{"owner=docs", "tier = gold"}, map[string]string{"owner": "docs", "tier": " gold"}, false},
		{"value with equals", []string{"expr=a=b"}, map[string]string{"expr": "a=b"}, false},
		{"empty value", []string{"flag="}, map[string]string{"flag": ""}, false},
		{"missing separator", []string{"owner"}, nil, true},
		{"empty key", []string{"=x"}, nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseMetadata(tt.entries)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestFilterBySlug(t *testing.T) {
	list := []skilltypes.Skill{{Slug: "pdf-tools"}, {Slug: "pdf-tools-2"}, {Slug: "doc-writer"}, {Slug: "lint"}}

	slugs := func(in []skilltypes.Skill) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			out = append(out, s.Slug)
		}
		return out
	}

	all, err := filterBySlug(list, "")
	require.NoError(t, err)
	assert.Len(t, all, 4)

	pdf, err := filterBySlug(list, "pdf-*")
	require.NoError(t, err)
	assert.Equal(t, []string{"pdf-tools", "pdf-tools-2"}, slugs(pdf))

	alt, err := filterBySlug(list, "{doc,lint}*")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-writer", "lint"}, slugs(alt))

	_, err = filterBySlug(list, "[")
	assert.Error(t, err)
}

func TestBuildUpdateCommand_OnlyChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "update"}
	addContentFlags(cmd)
	require.NoError(t, cmd.Flags().Set("description", "new description"))
	require.NoError(t, cmd.Flags().Set("license", ""))
	require.NoError(t, cmd.Flags().Set("meta", "owner=docs"))

	update, err := buildUpdateCommand(cmd, "skill-1")
	require.NoError(t, err)

	assert.Equal(t, skilltypes.SkillID("skill-1"), update.SkillID)
	assert.Nil(t, update.Name)
	assert.Nil(t, update.Prompt)
	assert.Nil(t, update.AllowedTools)
	require.NotNil(t, update.Description)
	assert.Equal(t, "new description", *update.Description)
	require.NotNil(t, update.License, "an explicitly emptied flag clears the field")
	assert.Equal(t, "", *update.License)
	require.NotNil(t, update.Metadata)
	assert.Equal(t, map[string]string{"owner": "docs"}, *update.Metadata)
}

func TestBuildUpdateCommand_PromptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "prompt.md")
	require.NoError(t, os.WriteFile(path, []byte("# From file\n"), 0o644))

	cmd := &cobra.Command{Use: "update"}
	addContentFlags(cmd)
	require.NoError(t, cmd.Flags().Set("prompt-file", path))

	update, err := buildUpdateCommand(cmd, "skill-1")
	require.NoError(t, err)
	require.NotNil(t, update.Prompt)
	assert.Equal(t, "# From file\n", *update.Prompt)

	require.NoError(t, cmd.Flags().Set("prompt", "inline"))
	_, err = buildUpdateCommand(cmd, "skill-1")
	assert.Error(t, err)
}

func TestVersionDiff(t *testing.T) {
	from := skilltypes.SkillVersion{Version: 1, Content: skilltypes.Content{Name: "a", Description: "old", Prompt: "body"}}
	to := skilltypes.SkillVersion{Version: 3, Content: skilltypes.Content{Name: "a", Description: "new", Prompt: "body"}}

	diff := versionDiff(from, to)
	assert.Contains(t, diff, "--- v1/SKILL.md")
	assert.Contains(t, diff, "+++ v3/SKILL.md")
	assert.Contains(t, diff, "-description: 'old'")
	assert.Contains(t, diff, "+description: 'new'")

	assert.Empty(t, versionDiff(from, from))
}

func TestReadSkillFile(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "good.md")
	require.NoError(t, os.WriteFile(good, []byte("---\nname: pdf-tools\ndescription: Work with PDFs\n---\n\n# PDF\n"), 0o644))
	content, err := readSkillFile(good)
	require.NoError(t, err)
	assert.Equal(t, "pdf-tools", content.Name)
	assert.Equal(t, "# PDF", content.Prompt)

	bad := filepath.Join(dir, "bad.md")
	require.NoError(t, os.WriteFile(bad, []byte("---\nname: Bad_Name\n---\n"), 0o644))
	_, err = readSkillFile(bad)
	assert.True(t, skills.IsValidationError(err))

	_, err = readSkillFile("")
	assert.Error(t, err)
}

func TestDebounceFileEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	input := make(chan FileEvent)
	output := make(chan FileEvent, 4)
	go debounceFileEvents(ctx, input, output, 50*time.Millisecond)

	for _, p := range []string{"a", "b", "c"} {
		input <- FileEvent{Path: p}
	}

	select {
	case ev := <-output:
		assert.Equal(t, "c", ev.Path, "a burst collapses into its last event")
	case <-time.After(2 * time.Second):
		t.Fatal("debounced event not delivered")
	}

	select {
	case ev := <-output:
		t.Fatalf("unexpected second event %v", ev)
	case <-time.After(150 * time.Millisecond):
	}
}

func configureCLI(t *testing.T) {
	t.Helper()
	settings := map[string]any{
		"user_id":         "user-1",
		"organization_id": "org-1",
		"space_id":        "space-1",
		"db_path":         filepath.Join(t.TempDir(), "storage.db"),
		"directory": map[string]any{
			"organizations": []any{map[string]any{"id": "org-1", "name": "Acme"}},
			"users": []any{map[string]any{
				"id":          "user-1",
				"memberships": []any{map[string]any{"organization_id": "org-1", "role": "member"}},
			}},
			"spaces": []any{map[string]any{"id": "space-1", "name": "Default", "organization_id": "org-1"}},
		},
	}
	for k, v := range settings {
		viper.Set(k, v)
	}
	t.Cleanup(func() {
		for k := range settings {
			viper.Set(k, nil)
		}
	})
}

func runCLI(args ...string) error {
	rootCmd.SetArgs(args)
	return rootCmd.ExecuteContext(context.Background())
}

func writeBundle(t *testing.T, dir, description string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "scripts"), 0o755))
	md := "---\nname: pdf-tools\ndescription: " + description + "\n---\n\n# PDF tools\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "SKILL.md"), []byte(md), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "scripts", "run.sh"), []byte("#!/bin/sh\necho hi\n"), 0o755))
}

func TestCLI_UploadPullDelete(t *testing.T) {
	configureCLI(t)
	ctx := context.Background()

	bundle := filepath.Join(t.TempDir(), "pdf-tools")
	writeBundle(t, bundle, "Work with PDFs")

	require.NoError(t, runCLI("skill", "upload", bundle))
	require.NoError(t, runCLI("skill", "upload", bundle))
	writeBundle(t, bundle, "Work with PDF files")
	require.NoError(t, runCLI("skill", "upload", bundle))

	a, err := newApp(ctx)
	require.NoError(t, err)
	skill, err := skillBySlug(ctx, a, "pdf-tools")
	require.NoError(t, err)
	assert.Equal(t, 2, skill.Version, "the unchanged upload added no version")
	require.NoError(t, a.Close())

	out := filepath.Join(t.TempDir(), "pulled")
	require.NoError(t, runCLI("skill", "pull", "pdf-tools", out))
	pulled, err := skills.ReadBundle(out, nil)
	require.NoError(t, err)
	original, err := skills.ReadBundle(bundle, nil)
	require.NoError(t, err)
	require.Len(t, pulled, 2)
	assert.Equal(t, original[1], pulled[1], "supporting files round-trip with their permissions")
	doc, err := skills.ParseFrontmatter(pulled[0].Content)
	require.NoError(t, err)
	assert.Equal(t, skill.Content, doc.ToContent())

	require.NoError(t, runCLI("skill", "delete", "--yes", string(skill.ID)))

	a, err = newApp(ctx)
	require.NoError(t, err)
	defer a.Close()
	list, err := a.service.ListSkills(ctx, a.actor)
	require.NoError(t, err)
	assert.Empty(t, list)

	records, err := a.eventLog.ListEvents(ctx, sqlite.EventQuery{SpaceID: a.actor.SpaceID})
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, skilltypes.EventSkillDeleted, records[0].Type)
	assert.Equal(t, skilltypes.EventSkillUpdated, records[1].Type)
	assert.Equal(t, skilltypes.EventSkillCreated, records[2].Type)
	require.NotNil(t, records[2].FileCount)
	assert.Equal(t, 1, *records[2].FileCount)
}

// resetFlags restores the flags of a package level command to their
// defaults, since they keep their values between executions
func resetFlags(cmd *cobra.Command) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if slice, ok := f.Value.(pflag.SliceValue); ok {
			_ = slice.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	})
}

func TestCLI_UploadAllOnly(t *testing.T) {
	configureCLI(t)
	t.Cleanup(func() { resetFlags(skillUploadCmd) })
	ctx := context.Background()

	root := t.TempDir()
	writeBundle(t, filepath.Join(root, "pdf-tools"), "Work with PDFs")
	writer := filepath.Join(root, "doc-writer")
	require.NoError(t, os.MkdirAll(writer, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(writer, "SKILL.md"), []byte("---\nname: doc-writer\ndescription: Write docs\n---\n\n# Docs\n"), 0o644))

	err := runCLI("skill", "upload", "--all", "--only", "pdf-tools,missing", root)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no bundle found for missing")

	resetFlags(skillUploadCmd)
	require.NoError(t, runCLI("skill", "upload", "--all", "--only", "pdf-tools", root))

	a, err := newApp(ctx)
	require.NoError(t, err)
	defer a.Close()
	list, err := a.service.ListSkills(ctx, a.actor)
	require.NoError(t, err)
	require.Len(t, list, 1, "bundles outside --only are left alone")
	assert.Equal(t, "pdf-tools", list[0].Slug)
}

func TestCLI_OnlyRequiresAll(t *testing.T) {
	configureCLI(t)
	t.Cleanup(func() { resetFlags(skillUploadCmd) })

	err := runCLI("skill", "upload", "--only", "pdf-tools", t.TempDir())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--only requires --all")
}

func TestCLI_DBStatusAndRollback(t *testing.T) {
	configureCLI(t)

	bundle := filepath.Join(t.TempDir(), "pdf-tools")
	writeBundle(t, bundle, "Work with PDFs")
	require.NoError(t, runCLI("skill", "upload", bundle))
	require.NoError(t, runCLI("db", "status"))

	require.NoError(t, runCLI("db", "rollback"))

	conn, err := db.Open(context.Background(), viper.GetString("db_path"))
	require.NoError(t, err)
	defer conn.Close()

	runner := db.NewMigrationRunner(conn)
	versions, err := runner.GetAppliedVersions(context.Background())
	require.NoError(t, err)
	all := migrations.All()
	assert.Len(t, versions, len(all)-1)
	assert.NotContains(t, versions, all[len(all)-1].Version)

	settings, err := db.ReadSettings(context.Background(), conn)
	require.NoError(t, err)
	assert.NoError(t, settings.Check())
}

func TestCLI_MissingIdentity(t *testing.T) {
	configureCLI(t)
	viper.Set("space_id", "")

	err := runCLI("skill", "list")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--space")
}

func TestWatchBundle_ReuploadsOnChange(t *testing.T) {
	configureCLI(t)

	bundle := filepath.Join(t.TempDir(), "pdf-tools")
	writeBundle(t, bundle, "Work with PDFs")
	require.NoError(t, runCLI("skill", "upload", bundle))

	ctx, cancel := context.WithCancel(context.Background())
	a, err := newApp(ctx)
	require.NoError(t, err)
	defer a.Close()

	done := make(chan error, 1)
	go func() {
		done <- watchBundle(ctx, a, bundle, &SkillUploadConfig{DebounceTime: 50})
	}()

	// Rewriting with the same content is harmless: unchanged uploads add no version
	assert.Eventually(t, func() bool {
		writeBundle(t, bundle, "Watched change")
		skill, err := skillBySlug(ctx, a, "pdf-tools")
		return err == nil && skill.Version == 2
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}

	skill, err := skillBySlug(context.Background(), a, "pdf-tools")
	require.NoError(t, err)
	assert.Equal(t, 2, skill.Version)
	assert.Equal(t, "Watched change", skill.Description)
}
