package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
)

// Migration20261019100003CreateSkillEvents creates the skill_events log written by the event sink.
func Migration20261019100003CreateSkillEvents() db.Migration {
	return db.Migration{
		Version:     20261019100003,
		Description: "Create skill_events table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skill_events (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					type TEXT NOT NULL,
					skill_id TEXT NOT NULL,
					space_id TEXT NOT NULL,
					organization_id TEXT NOT NULL,
					user_id TEXT NOT NULL,
					source TEXT NOT NULL,
					file_count INTEGER,
					created_at DATETIME NOT NULL
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skill_events table")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS skill_events"); err != nil {
				return errors.Wrap(err, "failed to drop skill_events table")
			}
			return nil
		},
	}
}
