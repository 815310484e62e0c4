package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
)

// Migration20261019100002CreateSkillFiles creates the skill_files table for supporting bundle files.
func Migration20261019100002CreateSkillFiles() db.Migration {
	return db.Migration{
		Version:     20261019100002,
		Description: "Create skill_files table",
		Up: func(tx *sql.Tx) error {
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skill_files (
					id TEXT PRIMARY KEY,
					skill_version_id TEXT NOT NULL REFERENCES skill_versions(id),
					path TEXT NOT NULL,
					content TEXT NOT NULL,
					permissions TEXT NOT NULL,
					is_base64 INTEGER NOT NULL DEFAULT 0,
					UNIQUE (skill_version_id, path)
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skill_files table")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS skill_files"); err != nil {
				return errors.Wrap(err, "failed to drop skill_files table")
			}
			return nil
		},
	}
}
