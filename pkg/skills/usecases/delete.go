package usecases

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// DeleteSkill soft-deletes one skill. Its versions and files are kept.
type DeleteSkill struct {
	deps
}

// NewDeleteSkill creates the DeleteSkill use case
func NewDeleteSkill(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *DeleteSkill {
	return &DeleteSkill{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute deletes the skill and emits SkillDeleted
func (uc *DeleteSkill) Execute(ctx context.Context, cmd skilltypes.DeleteSkillCommand) error {
	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return err
	}

	err = uc.store.WithinTransaction(ctx, func(ctx context.Context, repos skilltypes.Repositories) error {
		if _, err := skillInSpace(ctx, repos.Skills(), cmd.SkillID, space); err != nil {
			return err
		}
		return errors.Wrapf(repos.Skills().SoftDelete(ctx, cmd.SkillID), "failed to delete skill %s", cmd.SkillID)
	})
	if err != nil {
		return err
	}

	uc.emit(ctx, skilltypes.SkillDeleted{
		EventPayload: payload(cmd.Actor, cmd.SkillID, space.ID, skilltypes.SourceUI, nil),
	})
	return nil
}

// DeleteSkillsBatch validates every skill before deleting any of them
type DeleteSkillsBatch struct {
	deps
}

// NewDeleteSkillsBatch creates the DeleteSkillsBatch use case
func NewDeleteSkillsBatch(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts ...Option) *DeleteSkillsBatch {
	return &DeleteSkillsBatch{deps: newDeps(store, members, spaces, sink, opts)}
}

// Execute is a no-op for an empty id list. Ownership of each skill is checked
// in order and the first failure aborts the batch before anything is
// deleted. Validated deletes then run concurrently and every skill that was
// deleted gets its own SkillDeleted event.
func (uc *DeleteSkillsBatch) Execute(ctx context.Context, cmd skilltypes.DeleteSkillsBatchCommand) error {
	if len(cmd.SkillIDs) == 0 {
		return nil
	}

	space, err := uc.auth.Authorize(ctx, cmd.Actor)
	if err != nil {
		return err
	}

	for _, id := range cmd.SkillIDs {
		if _, err := skillInSpace(ctx, uc.store.Skills(), id, space); err != nil {
			return err
		}
	}

	var (
		g       multierror.Group
		mu      sync.Mutex
		deleted []skilltypes.SkillID
	)
	for _, id := range uniqueIDs(cmd.SkillIDs) {
		g.Go(func() error {
			if err := uc.store.Skills().SoftDelete(ctx, id); err != nil {
				return errors.Wrapf(err, "failed to delete skill %s", id)
			}
			mu.Lock()
			deleted = append(deleted, id)
			mu.Unlock()
			return nil
		})
	}
	result := g.Wait()

	events := make([]skilltypes.Event, 0, len(deleted))
	for _, id := range deleted {
		events = append(events, skilltypes.SkillDeleted{
			EventPayload: payload(cmd.Actor, id, space.ID, skilltypes.SourceUI, nil),
		})
	}
	uc.emit(ctx, events...)

	return result.ErrorOrNil()
}

func uniqueIDs(ids []skilltypes.SkillID) []skilltypes.SkillID {
	seen := make(map[skilltypes.SkillID]struct{}, len(ids))
	out := make([]skilltypes.SkillID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
