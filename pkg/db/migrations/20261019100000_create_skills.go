package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
)

// Migration20261019100000CreateSkills creates the skills table holding the current-state projection.
func Migration20261019100000CreateSkills() db.Migration {
	return db.Migration{
		Version:     20261019100000,
		Description: "Create skills table",
		Up: func(tx *sql.Tx) error {
			// Soft-deleted rows keep their slug, so the uniqueness spans them too
			if _, err := tx.Exec(`
				CREATE TABLE IF NOT EXISTS skills (
					id TEXT PRIMARY KEY,
					space_id TEXT NOT NULL,
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
					updated_at DATETIME NOT NULL,
					deleted_at DATETIME,
					UNIQUE (space_id, slug)
				)
			`); err != nil {
				return errors.Wrap(err, "failed to create skills table")
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			if _, err := tx.Exec("DROP TABLE IF EXISTS skills"); err != nil {
				return errors.Wrap(err, "failed to drop skills table")
			}
			return nil
		},
	}
}
