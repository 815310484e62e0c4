package usecases

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

func ptr[T any](v T) *T { return &v }

func TestUpdateSkill_PartialUpdate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	created, err := svc.CreateSkill(ctx, createCommand(env.actor, "Test Skill"))
	require.NoError(t, err)

	updated, err := svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{
		Actor:       env.actor,
		SkillID:     created.ID,
		Description: ptr("New description"),
		Metadata:    &map[string]string{"owner": "platform"},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, "test-skill", updated.Slug, "slug is kept when the name does not change")
	assert.Equal(t, "Test Skill", updated.Name)
	assert.Equal(t, "New description", updated.Description)
	assert.Equal(t, created.Prompt, updated.Prompt)
	assert.Equal(t, map[string]string{"owner": "platform"}, updated.Metadata)

	versions, err := env.store.Versions().ListBySkill(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, "New description", versions[0].Description)
	assert.Equal(t, "Test skill description", versions[1].Description, "earlier versions never change")

	assert.Equal(t, []skilltypes.EventType{skilltypes.EventSkillCreated, skilltypes.EventSkillUpdated}, env.sink.Types())
	assert.Nil(t, env.sink.Events()[1].Payload().FileCount)
}

func TestUpdateSkill_RenameReallocatesSlug(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	first, err := svc.CreateSkill(ctx, createCommand(env.actor, "Alpha"))
	require.NoError(t, err)
	_, err = svc.CreateSkill(ctx, createCommand(env.actor, "Beta"))
	require.NoError(t, err)

	renamed, err := svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{Actor: env.actor, SkillID: first.ID, Name: ptr("Beta")})
	require.NoError(t, err)
	assert.Equal(t, "beta-1", renamed.Slug)

	// its own current slug does not count as a collision
	again, err := svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{Actor: env.actor, SkillID: first.ID, Name: ptr("beta 1")})
	require.NoError(t, err)
	assert.Equal(t, "beta-1", again.Slug)
	assert.Equal(t, 3, again.Version)
}

func TestUpdateSkill_Errors(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	svc := env.service()

	elsewhere, err := svc.CreateSkill(ctx, createCommand(env.inSpace(otherSpace), "Elsewhere"))
	require.NoError(t, err)
	env.sink.Reset()

	_, err = svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{Actor: env.actor, SkillID: "missing", Name: ptr("x")})
	require.Error(t, err)
	assert.True(t, skills.IsNotFound(err))
	assert.Equal(t, "Skill with id missing not found", err.Error())

	_, err = svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{Actor: env.actor, SkillID: elsewhere.ID, Name: ptr("x")})
	require.Error(t, err)
	assert.True(t, skills.IsUnauthorized(err))

	_, err = svc.UpdateSkill(ctx, skilltypes.UpdateSkillCommand{Actor: env.inSpace(otherSpace), SkillID: elsewhere.ID, Name: ptr("")})
	require.Error(t, err)
	assert.True(t, skills.IsValidationError(err))

	stored, err := env.store.Skills().Get(ctx, elsewhere.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Version)
	assert.Empty(t, env.sink.Events())
}
