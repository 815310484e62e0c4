package usecases

import (
	"context"
	"strings"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// UpdateSkill applies a partial update and records it as a new version
type UpdateSkill struct {
	deps
}

// NewUpdateSkill creates the UpdateSkill use case
func NewUpdateSkill(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *UpdateSkill {
	return &UpdateSkill{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute bumps the version by one. The slug is regenerated only when the
// name changes, with the skill's own slug excluded from the collision set.
func (uc *UpdateSkill) Execute(ctx context.Context, cmd skilltypes.UpdateSkillCommand) (*skilltypes.Skill, error) {
	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return nil, err
	}
	if cmd.Name != nil && strings.TrimSpace(*cmd.Name) == "" {
		return nil, &skills.ValidationError{Errors: []skills.FieldError{{Field: "name", Message: "name field is missing"}}}
	}

	var updated skilltypes.Skill
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, repos skilltypes.Repositories) error {
		existing, err := skillInSpace(ctx, repos.Skills(), cmd.SkillID, space)
		if err != nil {
			return err
		}

		updated = *existing
		updated.Content = applyUpdate(existing.Content, cmd)

		if updated.Name != existing.Name {
			slugs, err := repos.Skills().ListSlugs(ctx, space.ID)
			if err != nil {
				return errors.Wrap(err, "failed to list slugs")
			}
			updated.Slug = skills.AllocateSlug(updated.Name, slugs, existing.Slug)
		}

		now := uc.now()
		updated.Version = existing.Version + 1
		updated.UpdatedAt = now

		if err := repos.Skills().Update(ctx, updated); err != nil {
			return errors.Wrap(err, "failed to update skill")
		}
		if err := repos.Versions().Add(ctx, skilltypes.NewVersionFromSkill(updated, cmd.UserID, now)); err != nil {
			return errors.Wrap(err, "failed to add skill version")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emit(ctx, skilltypes.SkillUpdated{
		EventPayload: payload(cmd.Actor, updated.ID, space.ID, skilltypes.SourceUI, nil),
	})
	return &updated, nil
}

func applyUpdate(c skilltypes.Content, cmd skilltypes.UpdateSkillCommand) skilltypes.Content {
	out := c.Clone()
	set := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}
	set(&out.Name, cmd.Name)
	set(&out.Description, cmd.Description)
	set(&out.Prompt, cmd.Prompt)
	set(&out.AllowedTools, cmd.AllowedTools)
	set(&out.License, cmd.License)
	set(&out.Compatibility, cmd.Compatibility)
	if cmd.Metadata != nil {
		out.Metadata = skilltypes.Content{Metadata: *cmd.Metadata}.Clone().Metadata
	}
	return out
}
