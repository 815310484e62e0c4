package usecases

import (
	"context"

	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// SaveSkillVersion stores a fully formed version payload for an existing
// skill. Unlike UploadSkill it always writes a version, even when the
// payload matches the latest one.
type SaveSkillVersion struct {
	deps
}

// NewSaveSkillVersion creates the SaveSkillVersion use case
func NewSaveSkillVersion(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *SaveSkillVersion {
	return &SaveSkillVersion{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute writes version latest+1 (or 1 when the skill has no versions) and
// mirrors it onto the skill projection
func (uc *SaveSkillVersion) Execute(ctx context.Context, cmd skilltypes.SaveSkillVersionCommand) (*skilltypes.SkillVersion, error) {
	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return nil, err
	}

	var (
		saved     skilltypes.SkillVersion
		fileCount *int
	)
	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, repos skilltypes.Repositories) error {
		skill, err := skillInSpace(ctx, repos.Skills(), cmd.SkillID, space)
		if err != nil {
			return err
		}

		latest, err := repos.Versions().FindLatest(ctx, skill.ID)
		if err != nil {
			return errors.Wrapf(err, "failed to load latest version of skill %s", skill.ID)
		}
		next := 1
		if latest != nil {
			next = latest.Version + 1
		}

		now := uc.now()
		updated := *skill
		updated.Content = cmd.Content.Clone()
		updated.Version = next
		updated.UpdatedAt = now

		saved = skilltypes.NewVersionFromSkill(updated, cmd.UserID, now)
		if err := repos.Skills().Update(ctx, updated); err != nil {
			return errors.Wrap(err, "failed to update skill")
		}
		if err := writeVersion(ctx, repos, saved, cmd.Files); err != nil {
			return err
		}
		if cmd.Files != nil {
			fileCount = skilltypes.FileCount(len(newFiles(saved.ID, cmd.Files)))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	uc.emit(ctx, skilltypes.SkillUpdated{
		EventPayload: payload(cmd.Actor, saved.SkillID, space.ID, skilltypes.SourceUI, fileCount),
	})
	return &saved, nil
}
