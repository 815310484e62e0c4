package skills

import "context"

// SkillRepository persists the current-state skill projection.
// Finders ignore soft-deleted skills and return (nil, nil) when nothing matches.
type SkillRepository interface {
	Add(ctx context.Context, skill Skill) error
	Update(ctx context.Context, skill Skill) error
	Get(ctx context.Context, id SkillID) (*Skill, error)
	FindBySlug(ctx context.Context, spaceID SpaceID, slug string) (*Skill, error)
	ListBySpace(ctx context.Context, spaceID SpaceID) ([]Skill, error)
	// ListSlugs returns every slug in the space, including soft-deleted skills,
	// so a freed slug is never handed out again.
	ListSlugs(ctx context.Context, spaceID SpaceID) ([]string, error)
	SoftDelete(ctx context.Context, id SkillID) error
}

// SkillVersionRepository persists immutable version snapshots.
// (SkillID, Version) is unique.
type SkillVersionRepository interface {
	Add(ctx context.Context, version SkillVersion) error
	Get(ctx context.Context, id SkillVersionID) (*SkillVersion, error)
	FindBySkillAndVersion(ctx context.Context, skillID SkillID, version int) (*SkillVersion, error)
	FindLatest(ctx context.Context, skillID SkillID) (*SkillVersion, error)
	// ListBySkill returns versions ordered by version descending
	ListBySkill(ctx context.Context, skillID SkillID) ([]SkillVersion, error)
}

// SkillFileRepository persists supporting files, append-only per version
type SkillFileRepository interface {
	AddMany(ctx context.Context, files []SkillFile) error
	ListByVersion(ctx context.Context, versionID SkillVersionID) ([]SkillFile, error)
}

// Repositories groups the three repositories sharing one connection or transaction
type Repositories interface {
	Skills() SkillRepository
	Versions() SkillVersionRepository
	Files() SkillFileRepository
}

// Store is the durable backing store. WithinTransaction runs fn against
// repositories bound to a single transaction that commits only when fn
// returns nil. Repositories obtained outside fn must not be used inside it.
type Store interface {
	Repositories
	WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
