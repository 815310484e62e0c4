// Package usecases orchestrates the skill lifecycle: authoring through the
// UI path, bundle uploads from the CLI, soft deletion and the read queries.
// Each use case receives its collaborators explicitly and runs its writes in
// a single store transaction, emitting domain events only after commit.
package usecases

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillvault/pkg/logger"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// Option configures the shared dependencies of a use case
type Option func(*deps)

// WithClock overrides the time source used for timestamps
func WithClock(now func() time.Time) Option {
	return func(d *deps) {
		if now != nil {
			d.now = now
		}
	}
}

// deps is embedded by every use case
type deps struct {
	store  skilltypes.Store
	auth   *Authorizer
	events skilltypes.EventSink
	now    func() time.Time
}

func newDeps(store skilltypes.Store, members skilltypes.MembershipOracle, spaces skilltypes.SpaceOracle, sink skilltypes.EventSink, opts []Option) deps {
	d := deps{
		store:  store,
		auth:   NewAuthorizer(members, spaces),
		events: sink,
		now:    func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

// emit hands events to the sink once the write that produced them has
// committed. Sink failures are logged and never fail the call.
func (d deps) emit(ctx context.Context, events ...skilltypes.Event) {
	if d.events == nil {
		return
	}
	for _, event := range events {
		if err := d.events.Emit(ctx, event); err != nil {
			p := event.Payload()
			logger.G(ctx).WithError(err).WithFields(logrus.Fields{
				"event":   event.Type(),
				"skillId": p.SkillID,
				"spaceId": p.SpaceID,
			}).Warn("failed to emit skill event")
		}
	}
}

func payload(actor skilltypes.Actor, skillID skilltypes.SkillID, spaceID skilltypes.SpaceID, source skilltypes.Source, fileCount *int) skilltypes.EventPayload {
	return skilltypes.EventPayload{
		SkillID:        skillID,
		SpaceID:        spaceID,
		OrganizationID: actor.OrganizationID,
		UserID:         actor.UserID,
		Source:         source,
		FileCount:      fileCount,
	}
}

// newFiles materializes uploaded files for a version, skipping SKILL.md
func newFiles(versionID skilltypes.SkillVersionID, inputs []skilltypes.SkillFileInput) []skilltypes.SkillFile {
	files := make([]skilltypes.SkillFile, 0, len(inputs))
	for _, in := range inputs {
		if in.Path == skilltypes.SkillFileName {
			continue
		}
		files = append(files, skilltypes.SkillFile{
			ID:             skilltypes.NewSkillFileID(),
			SkillVersionID: versionID,
			Path:           in.Path,
			Content:        in.Content,
			Permissions:    in.Permissions,
			IsBase64:       in.IsBase64,
		})
	}
	return files
}
