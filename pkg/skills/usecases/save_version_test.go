package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

func TestSaveSkillVersion_AlwaysCreatesVersion(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	uploaded, err := svc.UploadSkill(ctx, skilltypes.UploadSkillCommand{
		Actor: env.actor,
		Files: bundle(skillMarkdown("test-skill", "A test skill.", "# Test"), scriptFile("echo 1")),
	})
	require.NoError(t, err)

	content := uploaded.Skill.Content
	for want := 2; want <= 3; want++ {
		saved, err := svc.SaveSkillVersion(ctx, skilltypes.SaveSkillVersionCommand{
			Actor:   env.actor,
			SkillID: uploaded.Skill.ID,
			Content: content,
		})
		require.NoError(t, err)
		assert.Equal(t, want, saved.Version, "identical payloads still produce a version")
		assert.Equal(t, uploaded.Skill.Slug, saved.Slug)
	}

	skill, err := env.store.Skills().Get(ctx, uploaded.Skill.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, skill.Version)

	latest, err := env.store.Versions().FindLatest(ctx, skill.ID)
	require.NoError(t, err)
	files, err := env.store.Files().ListByVersion(ctx, latest.ID)
	require.NoError(t, err)
	assert.Empty(t, files, "a version saved without files has an empty file set")
}

func TestSaveSkillVersion_MirrorsContentAndFiles(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	created, err := svc.CreateSkill(ctx, createCommand(env.actor, "Test Skill"))
	require.NoError(t, err)

	content := skilltypes.Content{Name: "Test Skill", Description: "Rewritten", Prompt: "New prompt"}
	saved, err := svc.SaveSkillVersion(ctx, skilltypes.SaveSkillVersionCommand{
		Actor:   env.actor,
		SkillID: created.ID,
		Content: content,
		Files:   []skilltypes.SkillFileInput{scriptFile("echo v2")},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Version)
	assert.Equal(t, testUserID, saved.UserID)

	skill, err := env.store.Skills().Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, content, skill.Content)
	assert.Equal(t, 2, skill.Version)

	files, err := env.store.Files().ListByVersion(ctx, saved.ID)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "echo v2", files[0].Content)

	recorded := env.sink.Events()
	require.Len(t, recorded, 2)
	assert.Equal(t, skilltypes.EventSkillUpdated, recorded[1].Type())
	assert.Equal(t, skilltypes.FileCount(1), recorded[1].Payload().FileCount)
}

func TestSaveSkillVersion_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	elsewhere, err := svc.CreateSkill(ctx, createCommand(env.inSpace(otherSpace), "Elsewhere"))
	require.NoError(t, err)

	_, err = svc.SaveSkillVersion(ctx, skilltypes.SaveSkillVersionCommand{Actor: env.actor, SkillID: "nope"})
	assert.True(t, skills.IsNotFound(err))

	_, err = svc.SaveSkillVersion(ctx, skilltypes.SaveSkillVersionCommand{Actor: env.actor, SkillID: elsewhere.ID})
	require.Error(t, err)
	assert.True(t, skills.IsUnauthorized(err))
	assert.Equal(t, "Skill "+string(elsewhere.ID)+" does not belong to space space-1", err.Error())

	versions, err := env.store.Versions().ListBySkill(ctx, elsewhere.ID)
	require.NoError(t, err)
	assert.Len(t, versions, 1)
}
