package sqlite

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// EventLog is an EventSink that appends every event to the skill_events table
type EventLog struct {
	db  *sqlx.DB
	now func() time.Time
}

var _ skilltypes.EventSink = (*EventLog)(nil)

// NewEventLog creates an event log writing through the store's connection
func NewEventLog(store *Store) *EventLog {
	return &EventLog{db: store.DB(), now: func() time.Time { return time.Now().UTC() }}
}

// Emit records the event
func (l *EventLog) Emit(ctx context.Context, event skilltypes.Event) error {
	query := `
		INSERT INTO skill_events (
			type, skill_id, space_id, organization_id, user_id, source, file_count, created_at
		) VALUES (
			:type, :skill_id, :space_id, :organization_id, :user_id, :source, :file_count, :created_at
		)
	`
	if _, err := l.db.NamedExecContext(ctx, query, fromEvent(event, l.now())); err != nil {
		return errors.Wrapf(err, "failed to record %s event", event.Type())
	}
	return nil
}

// EventQuery filters ListEvents. Zero values match everything.
type EventQuery struct {
	SpaceID skilltypes.SpaceID
	SkillID skilltypes.SkillID
	Type    skilltypes.EventType
	Limit   int
}

// ListEvents returns recorded events, newest first
func (l *EventLog) ListEvents(ctx context.Context, q EventQuery) ([]skilltypes.EventRecord, error) {
	baseQuery := "SELECT * FROM skill_events WHERE 1=1"
	args := map[string]any{}

	if q.SpaceID != "" {
		baseQuery += " AND space_id = :space_id"
		args["space_id"] = string(q.SpaceID)
	}
	if q.SkillID != "" {
		baseQuery += " AND skill_id = :skill_id"
		args["skill_id"] = string(q.SkillID)
	}
	if q.Type != "" {
		baseQuery += " AND type = :type"
		args["type"] = string(q.Type)
	}
	baseQuery += " ORDER BY id DESC"
	if q.Limit > 0 {
		baseQuery += " LIMIT :limit"
		args["limit"] = q.Limit
	}

	finalQuery, argsSlice, err := sqlx.Named(baseQuery, args)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build events query")
	}
	finalQuery = l.db.Rebind(finalQuery)

	var rows []dbSkillEvent
	if err := l.db.SelectContext(ctx, &rows, finalQuery, argsSlice...); err != nil {
		return nil, errors.Wrap(err, "failed to list events")
	}

	out := make([]skilltypes.EventRecord, len(rows))
	for i := range rows {
		out[i] = rows[i].ToEventRecord()
	}
	return out, nil
}
