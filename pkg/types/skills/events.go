package skills

import (
	"context"
	"time"
)

// EventType names a domain event variant
type EventType string

const (
	EventSkillCreated EventType = "SkillCreated"
	EventSkillUpdated EventType = "SkillUpdated"
	EventSkillDeleted EventType = "SkillDeleted"
)

// Source tells which entry point produced an event
type Source string

const (
	SourceUI  Source = "ui"
	SourceCLI Source = "cli"
)

// EventPayload is carried by every skill event. FileCount is nil when the
// producing operation does not deal with files.
type EventPayload struct {
	SkillID        SkillID        `json:"skillId"`
	SpaceID        SpaceID        `json:"spaceId"`
	OrganizationID OrganizationID `json:"organizationId"`
	UserID         UserID         `json:"userId"`
	Source         Source         `json:"source"`
	FileCount      *int           `json:"fileCount,omitempty"`
}

// Event is the closed set of skill domain events
type Event interface {
	Type() EventType
	Payload() EventPayload
	isSkillEvent()
}

// SkillCreated is emitted once a skill and its first version are persisted
type SkillCreated struct{ EventPayload }

// SkillUpdated is emitted once a new version is persisted
type SkillUpdated struct{ EventPayload }

// SkillDeleted is emitted once a skill is soft-deleted
type SkillDeleted struct{ EventPayload }

func (SkillCreated) Type() EventType { return EventSkillCreated }
func (SkillUpdated) Type() EventType { return EventSkillUpdated }
func (SkillDeleted) Type() EventType { return EventSkillDeleted }

func (e SkillCreated) Payload() EventPayload { return e.EventPayload }
func (e SkillUpdated) Payload() EventPayload { return e.EventPayload }
func (e SkillDeleted) Payload() EventPayload { return e.EventPayload }

func (SkillCreated) isSkillEvent() {}
func (SkillUpdated) isSkillEvent() {}
func (SkillDeleted) isSkillEvent() {}

// EventSink receives domain events after the write that produced them has committed
type EventSink interface {
	Emit(ctx context.Context, event Event) error
}

// FileCount is a helper to build EventPayload.FileCount
func FileCount(n int) *int {
	return &n
}

// EventRecord is an event as persisted by a durable sink
type EventRecord struct {
	ID   int64     `json:"id"`
	Type EventType `json:"type"`
	EventPayload
	CreatedAt time.Time `json:"createdAt"`
}
