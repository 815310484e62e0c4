package usecases

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// Authorizer checks that the caller is a member of the organization owning
// the target space
type Authorizer struct {
	members skilltypes.MembershipOracle
	spaces  skilltypes.SpaceOracle
}

// NewAuthorizer creates an Authorizer backed by the given oracles
func NewAuthorizer(members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle) *Authorizer {
	return &Authorizer{members: members, spaces: spaces}
}

// AuthorizeMember resolves the caller and organization and checks membership.
// The space is not consulted.
func (a *Authorizer) AuthorizeMember(ctx context.Context, actor skilltypes.Actor) (*skilltypes.Organization, error) {
	user, err := a.members.GetUserByID(ctx, actor.UserID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up user")
	}
	if user == nil {
		return nil, skills.ErrUserNotFound(actor.UserID)
	}

	org, err := a.members.GetOrganizationByID(ctx, actor.OrganizationID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up organization")
	}
	if org == nil {
		return nil, skills.ErrOrganizationNotFound(actor.OrganizationID)
	}

	if !user.IsMemberOf(org.ID) {
		return nil, skills.ErrNotMember(user.ID, org.ID)
	}
	return org, nil
}

// Authorize runs AuthorizeMember and then checks that the actor's space
// exists and belongs to the actor's organization
func (a *Authorizer) Authorize(ctx context.Context, actor skilltypes.Actor) (*skilltypes.Space, error) {
	org, err := a.AuthorizeMember(ctx, actor)
	if err != nil {
		return nil, err
	}

	space, err := a.spaces.GetSpaceByID(ctx, actor.SpaceID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to look up space")
	}
	if space == nil {
		return nil, skills.ErrSpaceNotFound(actor.SpaceID)
	}
	if space.OrganizationID != org.ID {
		return nil, skills.ErrSpaceOrganizationMismatch(space.ID, org.ID)
	}
	return space, nil
}

// skillInSpace loads a skill addressed by id and rejects it when it lives in
// another space
func skillInSpace(ctx context.Context, repo skilltypes.SkillRepository, id skilltypes.SkillID, space *skilltypes.Space) (*skilltypes.Skill, error) {
	skill, err := repo.Get(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load skill %s", id)
	}
	if skill == nil {
		return nil, skills.ErrSkillNotFound(id)
	}
	if skill.SpaceID != space.ID {
		return nil, skills.ErrSkillSpaceMismatch(id, space.ID)
	}
	return skill, nil
}
