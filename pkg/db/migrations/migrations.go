// Package migrations contains all database migrations for skillvault.
// Migrations use Rails-style timestamp versioning (YYYYMMDDHHmmss).
package migrations

import (
	"github.com/jingkaihe/skillvault/pkg/db"
)

// All returns all registered migrations in the correct order.
// New migrations should be added to this list.
func All() []db.Migration {
	return []db.Migration{
		Migration20261019100000CreateSkills(),
		Migration20261019100001CreateSkillVersions(),
		Migration20261019100002CreateSkillFiles(),
		Migration20261019100003CreateSkillEvents(),
		Migration20261019100004AddSkillIndexes(),
	}
}
