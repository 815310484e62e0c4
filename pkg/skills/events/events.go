// Package events provides EventSink implementations: a structured-log sink,
// an in-memory recorder and a fan-out that delivers to several sinks.
package events

import (
	"context"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"

	"github.com/jingkaihe/skillvault/pkg/logger"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// LogSink writes every event as a structured log line
type LogSink struct{}

// Emit logs the event at info level
func (LogSink) Emit(ctx context.Context, event skilltypes.Event) error {
	p := event.Payload()
	fields := logrus.Fields{
		"event":          event.Type(),
		"skillId":        p.SkillID,
		"spaceId":        p.SpaceID,
		"organizationId": p.OrganizationID,
		"userId":         logger.MaskID(string(p.UserID)),
		"source":         p.Source,
	}
	if p.FileCount != nil {
		fields["fileCount"] = *p.FileCount
	}
	logger.G(ctx).WithFields(fields).Info("skill event")
	return nil
}

// Recorder keeps every emitted event in memory
type Recorder struct {
	mu     sync.Mutex
	events []skilltypes.Event
}

// Emit appends the event
func (r *Recorder) Emit(_ context.Context, event skilltypes.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events in emission order
func (r *Recorder) Events() []skilltypes.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]skilltypes.Event, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the type of each recorded event in emission order
func (r *Recorder) Types() []skilltypes.EventType {
	events := r.Events()
	out := make([]skilltypes.EventType, len(events))
	for i, e := range events {
		out[i] = e.Type()
	}
	return out
}

// Reset drops everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Fanout delivers each event to every sink in order. A failing sink does
// not stop delivery to the rest; all failures are returned together.
type Fanout []skilltypes.EventSink

// Emit forwards the event to every sink
func (f Fanout) Emit(ctx context.Context, event skilltypes.Event) error {
	var result *multierror.Error
	for _, sink := range f {
		if err := sink.Emit(ctx, event); err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}
