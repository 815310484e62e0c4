package usecases

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// CreateSkill creates a skill and its first version from explicit fields
type CreateSkill struct {
	deps
}

// NewCreateSkill creates the CreateSkill use case
func NewCreateSkill(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *CreateSkill {
	return &CreateSkill{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute persists the skill at version 1 under a slug that is unique in the space
func (uc *CreateSkill) Execute(ctx context.Context, cmd skilltypes.CreateSkillCommand) (*skilltypes.Skill, error) {
	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(cmd.Name) == "" {
		return nil, &skills.ValidationError{Errors: []skills.FieldError{{Field: "name", Message: "name field is missing"}}}
	}

	var created skilltypes.Skill
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, repos skilltypes.Repositories) error {
		slugs, err := repos.Skills().ListSlugs(ctx, space.ID)
		if err != nil {
			return errors.Wrap(err, "failed to list slugs")
		}

		now := uc.now()
		created = skilltypes.Skill{
			ID:        skilltypes.NewSkillID(),
			SpaceID:   space.ID,
			UserID:    cmd.UserID,
			Slug:      skills.AllocateSlug(cmd.Name, slugs, ""),
			Version:   1,
			Content:   cmd.Content.Clone(),
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := repos.Skills().Add(ctx, created); err != nil {
			return errors.Wrap(err, "failed to add skill")
		}
		if err := repos.Versions().Add(ctx, skilltypes.NewVersionFromSkill(created, cmd.UserID, now)); err != nil {
			return errors.Wrap(err, "failed to add skill version")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emit(ctx, skilltypes.SkillCreated{
		EventPayload: payload(cmd.Actor, created.ID, space.ID, skilltypes.SourceUI, skilltypes.FileCount(0)),
	})
	return &created, nil
}
