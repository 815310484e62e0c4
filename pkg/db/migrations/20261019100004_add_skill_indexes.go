package migrations

import (
	"database/sql"

	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
)

// Migration20261019100004AddSkillIndexes adds lookup indexes for skills, versions, files and events.
func Migration20261019100004AddSkillIndexes() db.Migration {
	return db.Migration{
		Version:     20261019100004,
		Description: "Add lookup indexes for skills, versions, files and events",
		Up: func(tx *sql.Tx) error {
			indexes := []string{
				"CREATE INDEX IF NOT EXISTS idx_skills_space_active ON skills(space_id, deleted_at)",
				"CREATE INDEX IF NOT EXISTS idx_skill_versions_skill ON skill_versions(skill_id, version DESC)",
				"CREATE INDEX IF NOT EXISTS idx_skill_files_version ON skill_files(skill_version_id)",
				"CREATE INDEX IF NOT EXISTS idx_skill_events_skill ON skill_events(skill_id)",
				"CREATE INDEX IF NOT EXISTS idx_skill_events_space_created ON skill_events(space_id, created_at DESC)",
			}

			for _, idx := range indexes {
				if _, err := tx.Exec(idx); err != nil {
					return errors.Wrap(err, "failed to create index")
				}
			}
			return nil
		},
		Down: func(tx *sql.Tx) error {
			dropIndexes := []string{
				"DROP INDEX IF EXISTS idx_skill_events_space_created",
				"DROP INDEX IF EXISTS idx_skill_events_skill",
				"DROP INDEX IF EXISTS idx_skill_files_version",
				"DROP INDEX IF EXISTS idx_skill_versions_skill",
				"DROP INDEX IF EXISTS idx_skills_space_active",
			}

			for _, drop := range dropIndexes {
				if _, err := tx.Exec(drop); err != nil {
					return errors.Wrap(err, "failed to drop index")
				}
			}
			return nil
		},
	}
}
