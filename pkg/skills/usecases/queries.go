package usecases

import (
	"context"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/skills"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// Queries holds the read use cases. Each one runs the same authorization as
// the writes. A missing skill or version yields nil; a skill that lives in
// another space is an authorization error.
type Queries struct {
	deps
}

// NewQueries creates the read use cases
func NewQueries(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, opts ...Option) *Queries {
	return &Queries{deps: newDeps(store, members, spaces, nil, opts)}
}

// GetSkillByID returns the skill addressed by id, or nil if there is none
func (q *Queries) GetSkillByID(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.Skill, error) {
	space, err := q.auth.Authorize(ctx, query.Actor)
	if err != nil {
		return nil, err
	}
	skill, err := skillInSpace(ctx, q.store.Skills(), query.SkillID, space)
	if skills.IsNotFound(err) {
		return nil, nil
	}
	return skill, err
}

// FindSkillBySlug returns the live skill with the slug in the actor's space, or nil
func (q *Queries) FindSkillBySlug(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.Skill, error) {
	space, err := q.auth.Authorize(ctx, query.Actor)
	if err != nil {
		return nil, err
	}
	skill, err := q.store.Skills().FindBySlug(ctx, space.ID, query.Slug)
	return skill, errors.Wrapf(err, "failed to find skill %q", query.Slug)
}

// ListSkills returns the live skills of the actor's space
func (q *Queries) ListSkills(ctx context.Context, actor skilltypes.Actor) ([]skilltypes.Skill, error) {
	space, err := q.auth.Authorize(ctx, actor)
	if err != nil {
		return nil, err
	}
	list, err := q.store.Skills().ListBySpace(ctx, space.ID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list skills")
	}
	return list, nil
}

// GetSkillVersion returns one version of a skill, or nil if that number does not exist
func (q *Queries) GetSkillVersion(ctx context.Context, query skilltypes.GetSkillVersionQuery) (*skilltypes.SkillVersion, error) {
	skill, err := q.GetSkillByID(ctx, skilltypes.GetSkillByIDQuery{Actor: query.Actor, SkillID: query.SkillID})
	if err != nil || skill == nil {
		return nil, err
	}
	version, err := q.store.Versions().FindBySkillAndVersion(ctx, skill.ID, query.Version)
	return version, errors.Wrapf(err, "failed to load version %d of skill %s", query.Version, skill.ID)
}

// GetLatestVersion returns the most recent version of a skill
func (q *Queries) GetLatestVersion(ctx context.Context, query skilltypes.GetSkillByIDQuery) (*skilltypes.SkillVersion, error) {
	skill, err := q.GetSkillByID(ctx, query)
	if err != nil || skill == nil {
		return nil, err
	}
	version, err := q.store.Versions().FindLatest(ctx, skill.ID)
	return version, errors.Wrapf(err, "failed to load latest version of skill %s", skill.ID)
}

// ListSkillVersions returns every version of a skill, newest first. An
// unknown skill has no versions.
func (q *Queries) ListSkillVersions(ctx context.Context, query skilltypes.GetSkillByIDQuery) ([]skilltypes.SkillVersion, error) {
	skill, err := q.GetSkillByID(ctx, query)
	if err != nil {
		return nil, err
	}
	if skill == nil {
		return []skilltypes.SkillVersion{}, nil
	}
	versions, err := q.store.Versions().ListBySkill(ctx, skill.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list versions of skill %s", skill.ID)
	}
	return versions, nil
}

// GetSkillWithFiles returns a skill by slug together with its latest version
// and that version's files. It yields nil when the skill does not exist in
// the actor's space or has no version yet.
func (q *Queries) GetSkillWithFiles(ctx context.Context, query skilltypes.FindSkillBySlugQuery) (*skilltypes.SkillWithFiles, error) {
	skill, err := q.FindSkillBySlug(ctx, query)
	if err != nil || skill == nil {
		return nil, err
	}
	if skill.SpaceID != query.SpaceID {
		return nil, nil
	}

	latest, err := q.store.Versions().FindLatest(ctx, skill.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load latest version of skill %s", skill.ID)
	}
	if latest == nil {
		return nil, nil
	}

	files, err := q.store.Files().ListByVersion(ctx, latest.ID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to load files of skill %s", skill.ID)
	}
	if files == nil {
		files = []skilltypes.SkillFile{}
	}
	return &skilltypes.SkillWithFiles{Skill: *skill, LatestVersion: *latest, Files: files}, nil
}

// GetVersionFiles returns the files of one version of a skill
func (q *Queries) GetVersionFiles(ctx context.Context, query skilltypes.GetSkillVersionQuery) ([]skilltypes.SkillFile, error) {
	version, err := q.GetSkillVersion(ctx, query)
	if err != nil {
		return nil, err
	}
	if version == nil {
		return []skilltypes.SkillFile{}, nil
	}
	files, err := q.store.Files().ListByVersion(ctx, version.ID)
	return files, errors.Wrapf(err, "failed to load files of version %d", version.Version)
}
