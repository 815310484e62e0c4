package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
)

// Migration20261019100001CreateSkillVersions creates the immutable skill_versions history table.
func Migration20261019100001CreateSkillVersions() db.Migration {
	return db.Migration{
		Version:     20261019100001,
		Description: "Create skill_versions table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skill_versions (
					id TEXT PRIMARY KEY,
					skill_id TEXT NOT NULL REFERENCES skills(id),
					user_id TEXT NOT NULL,
					slug TEXT NOT NULL,
					version INTEGER NOT NULL CHECK (version >= 1),
					name TEXT NOT NULL,
					description TEXT NOT NULL,
					prompt TEXT NOT NULL,
					allowed_tools TEXT NOT NULL DEFAULT '',
					license TEXT NOT NULL DEFAULT '',
					compatibility TEXT NOT NULL DEFAULT '',
					metadata TEXT,
					created_at DATETIME NOT NULL,
					UNIQUE (skill_id, version)
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skill_versions table")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS skill_versions"); err != nil {
				return errors.Wrap(err, "failed to drop skill_versions table")
			}
			return nil
		},
	}
}
