package main

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"
	"github.com/gobwas/glob"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillvault/pkg/logger"
	"github.com/jingkaihe/skillvault/pkg/presenter"
	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
	"github.com/jingkaihe/skillvault/pkg/utils"
)

var skillListCmd = withTracing(&cobra.Command{
	Use:   "list",
	Short: "List the skills of the current space",
	Long: `List the live skills of the current space. --match filters slugs with a glob
such as 'pdf-*' or '{pdf,doc}-*'.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		pattern, _ := cmd.Flags().GetString("match")
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			list, err := a.service.ListSkills(ctx, a.actor)
			if err != nil {
				return err
			}
			list, err = filterBySlug(list, pattern)
			if err != nil {
				return err
			}

			if asJSON {
				return printJSON(cmd, list)
			}
			if len(list) == 0 {
				presenter.Info("No skills found")
				return nil
			}
			presenter.Table([]string{"SLUG", "NAME", "VERSION", "UPDATED", "ID"}, skillRows(list))
			return nil
		})
	},
})

// filterBySlug keeps the skills whose slug matches the glob. An empty pattern keeps all.
func filterBySlug(list []skilltypes.Skill, pattern string) ([]skilltypes.Skill, error) {
	if pattern == "" {
		return list, nil
	}
	g, err := glob.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid match pattern %q", pattern)
	}
	out := make([]skilltypes.Skill, 0, len(list))
	for _, s := range list {
		if g.Match(s.Slug) {
			out = append(out, s)
		}
	}
	return out, nil
}

func skillRows(list []skilltypes.Skill) [][]string {
	rows := make([][]string, 0, len(list))
	for _, s := range list {
		rows = append(rows, []string{
			s.Slug,
			s.Name,
			strconv.Itoa(s.Version),
			s.UpdatedAt.Local().Format(time.DateTime),
			string(s.ID),
		})
	}
	return rows
}

var skillGetCmd = withTracing(&cobra.Command{
	Use:   "get <skill-id>",
	Short: "Show a skill by id",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			id := skilltypes.SkillID(args[0])
			skill, err := a.service.GetSkillByID(ctx, skilltypes.GetSkillByIDQuery{Actor: a.actor, SkillID: id})
			if err != nil {
				return err
			}
			if skill == nil {
				return skills.ErrSkillNotFound(id)
			}
			if asJSON {
				return printJSON(cmd, skill)
			}
			presenter.KeyValues(skillDetails(*skill))
			return nil
		})
	},
})

func skillDetails(s skilltypes.Skill) [][2]string {
	pairs := [][2]string{
		{"ID", string(s.ID)},
		{"Slug", s.Slug},
		{"Name", s.Name},
		{"Description", s.Description},
		{"Version", strconv.Itoa(s.Version)},
		{"Author", logger.MaskID(string(s.UserID))},
		{"Created", s.CreatedAt.Local().Format(time.DateTime)},
		{"Updated", s.UpdatedAt.Local().Format(time.DateTime)},
	}
	optional := [][2]string{
		{"Allowed tools", s.AllowedTools},
		{"License", s.License},
		{"Compatibility", s.Compatibility},
	}
	for _, kv := range optional {
		if kv[1] != "" {
			pairs = append(pairs, kv)
		}
	}
	for _, k := range sortedKeys(s.Metadata) {
		pairs = append(pairs, [2]string{"meta." + k, s.Metadata[k]})
	}
	return pairs
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var skillShowCmd = withTracing(&cobra.Command{
	Use:   "show <slug>",
	Short: "Show the latest version of a skill with its files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			withFiles, err := a.service.GetSkillWithFiles(ctx, skilltypes.FindSkillBySlugQuery{Actor: a.actor, Slug: args[0]})
			if err != nil {
				return err
			}
			if withFiles == nil {
				return errors.Errorf("no skill with slug %q in space %s", args[0], a.actor.SpaceID)
			}
			if asJSON {
				return printJSON(cmd, withFiles)
			}

			presenter.KeyValues(skillDetails(withFiles.Skill))
			presenter.Section(skilltypes.SkillFileName)
			presenter.Info(numbered(skills.BuildSkillMarkdown(withFiles.LatestVersion.Content)))
			if len(withFiles.Files) > 0 {
				presenter.Section("Files")
				presenter.Table([]string{"PATH", "PERMISSIONS", "SIZE"}, fileRows(withFiles.Files))
			}
			return nil
		})
	},
})

// numbered renders text with right aligned line numbers
func numbered(text string) string {
	lines := strings.Split(strings.TrimRight(text, "\n"), "\n")
	return strings.TrimRight(utils.ContentWithLineNumber(lines, 1), "\n")
}

func fileRows(files []skilltypes.SkillFile) [][]string {
	rows := make([][]string, 0, len(files))
	for _, f := range files {
		size := fmt.Sprintf("%d B", len(f.Content))
		if f.IsBase64 {
			size = fmt.Sprintf("%d B (binary)", len(f.Content)*3/4)
		}
		rows = append(rows, []string{f.Path, f.Permissions, size})
	}
	return rows
}

var skillVersionsCmd = withTracing(&cobra.Command{
	Use:   "versions <skill-id>",
	Short: "List the versions of a skill, newest first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			versions, err := a.service.ListSkillVersions(ctx, skilltypes.GetSkillByIDQuery{Actor: a.actor, SkillID: skilltypes.SkillID(args[0])})
			if err != nil {
				return err
			}
			rows := make([][]string, 0, len(versions))
			for _, v := range versions {
				rows = append(rows, []string{
					strconv.Itoa(v.Version),
					v.Name,
					logger.MaskID(string(v.UserID)),
					v.CreatedAt.Local().Format(time.DateTime),
				})
			}
			presenter.Table([]string{"VERSION", "NAME", "AUTHOR", "CREATED"}, rows)
			return nil
		})
	},
})

var skillVersionCmd = withTracing(&cobra.Command{
	Use:   "version <skill-id> [n]",
	Short: "Print one version of a skill as SKILL.md (latest by default)",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number := 0
		if len(args) == 2 {
			n, err := parseVersionNumber(args[1])
			if err != nil {
				return err
			}
			number = n
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			version, err := loadVersion(ctx, a, skilltypes.SkillID(args[0]), number)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), skills.BuildSkillMarkdown(version.Content))
			return nil
		})
	},
})

func parseVersionNumber(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, errors.Errorf("invalid version %q, expected a positive number", s)
	}
	return n, nil
}

// loadVersion fetches version n of a skill, or the latest when n is 0
func loadVersion(ctx context.Context, a *app, id skilltypes.SkillID, n int) (*skilltypes.SkillVersion, error) {
	var (
		version *skilltypes.SkillVersion
		err     error
	)
	if n == 0 {
		version, err = a.service.GetLatestVersion(ctx, skilltypes.GetSkillByIDQuery{Actor: a.actor, SkillID: id})
	} else {
		version, err = a.service.GetSkillVersion(ctx, skilltypes.GetSkillVersionQuery{Actor: a.actor, SkillID: id, Version: n})
	}
	if err != nil {
		return nil, err
	}
	if version == nil && n == 0 {
		return nil, skills.ErrSkillNotFound(id)
	}
	if version == nil {
		return nil, skills.ErrSkillVersionNotFound(id, n)
	}
	return version, nil
}

// skillBySlug resolves a slug of the current space or fails
func skillBySlug(ctx context.Context, a *app, slug string) (*skilltypes.Skill, error) {
	skill, err := a.service.FindSkillBySlug(ctx, skilltypes.FindSkillBySlugQuery{Actor: a.actor, Slug: slug})
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return nil, errors.Errorf("no skill with slug %q in space %s", slug, a.actor.SpaceID)
	}
	return skill, nil
}

var skillPullCmd = withTracing(&cobra.Command{
	Use:   "pull <slug> <dir>",
	Short: "Write a stored version back to a bundle directory",
	Long: `Write SKILL.md and the supporting files of a stored version into dir,
restoring binary content and file permissions. The latest version is used
unless --version is given.`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		number, _ := cmd.Flags().GetInt("version")
		if number < 0 {
			return errors.Errorf("invalid version %d", number)
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			skill, err := skillBySlug(ctx, a, args[0])
			if err != nil {
				return err
			}
			version, err := loadVersion(ctx, a, skill.ID, number)
			if err != nil {
				return err
			}
			files, err := a.service.GetVersionFiles(ctx, skilltypes.GetSkillVersionQuery{Actor: a.actor, SkillID: skill.ID, Version: version.Version})
			if err != nil {
				return err
			}
			if err := skills.WriteBundle(args[1], version.Content, files); err != nil {
				return err
			}
			presenter.Success(fmt.Sprintf("Wrote %s version %d (%d files) to %s", skill.Slug, version.Version, len(files)+1, args[1]))
			return nil
		})
	},
})

var skillDiffCmd = withTracing(&cobra.Command{
	Use:   "diff <slug> <from> <to>",
	Short: "Show the SKILL.md changes between two versions",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := parseVersionNumber(args[1])
		if err != nil {
			return err
		}
		to, err := parseVersionNumber(args[2])
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		return withApp(ctx, func(a *app) error {
			skill, err := skillBySlug(ctx, a, args[0])
			if err != nil {
				return err
			}
			older, err := loadVersion(ctx, a, skill.ID, from)
			if err != nil {
				return err
			}
			newer, err := loadVersion(ctx, a, skill.ID, to)
			if err != nil {
				return err
			}

			diff := versionDiff(*older, *newer)
			if diff == "" {
				presenter.Info(fmt.Sprintf("No differences between version %d and %d", from, to))
				return nil
			}
			presenter.Diff(diff)
			return nil
		})
	},
})

// versionDiff is the unified diff of the rebuilt SKILL.md of two versions
func versionDiff(from, to skilltypes.SkillVersion) string {
	return udiff.Unified(
		fmt.Sprintf("v%d/%s", from.Version, skilltypes.SkillFileName),
		fmt.Sprintf("v%d/%s", to.Version, skilltypes.SkillFileName),
		skills.BuildSkillMarkdown(from.Content),
		skills.BuildSkillMarkdown(to.Content),
	)
}

var skillSchemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the JSON schema of SKILL.md frontmatter",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return printJSON(cmd, skills.FrontmatterSchema())
	},
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return errors.Wrap(err, "failed to encode output")
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(out))
	return nil
}

func init() {
	skillListCmd.Flags().StringP("match", "m", "", "Only list skills whose slug matches this glob")
	skillListCmd.Flags().Bool("json", false, "Print JSON")
	skillGetCmd.Flags().Bool("json", false, "Print JSON")
	skillShowCmd.Flags().Bool("json", false, "Print JSON")
	skillPullCmd.Flags().Int("version", 0, "Version to write (latest when 0)")

	skillCmd.AddCommand(skillListCmd)
	skillCmd.AddCommand(skillGetCmd)
	skillCmd.AddCommand(skillShowCmd)
	skillCmd.AddCommand(skillVersionsCmd)
	skillCmd.AddCommand(skillVersionCmd)
	skillCmd.AddCommand(skillPullCmd)
	skillCmd.AddCommand(skillDiffCmd)
	skillCmd.AddCommand(skillSchemaCmd)
}
