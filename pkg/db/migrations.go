package db

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

// Migration is one schema step. Versions are timestamps (YYYYMMDDHHmmss) and
// are applied in ascending order.
type Migration struct {
	Version     int64
	Description string
	Up          func(*sql.Tx) error
	Down        func(*sql.Tx) error // nil when the step cannot be undone
}

// AppliedMigration is a row of the schema_migrations ledger
type AppliedMigration struct {
	Version     int64     `db:"version"`
	Description string    `db:"description"`
	AppliedAt   time.Time `db:"applied_at"`
}

// MigrationRunner applies and reverts migrations, recording each step in
// schema_migrations inside the same transaction as the step itself
type MigrationRunner struct {
	db  *sqlx.DB
	now func() time.Time
}

// NewMigrationRunner creates a runner for db
func NewMigrationRunner(db *sqlx.DB) *MigrationRunner {
	return &MigrationRunner{db: db, now: time.Now}
}

const ledgerSchema = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	applied_at DATETIME NOT NULL,
	description TEXT
)`

// Run applies every migration that is not in the ledger yet
func (r *MigrationRunner) Run(ctx context.Context, migrations []Migration) error {
	ordered, err := sortMigrations(migrations)
	if err != nil {
		return err
	}
	applied, err := r.appliedSet(ctx)
	if err != nil {
		return err
	}

	for _, m := range ordered {
		if applied[m.Version] {
			continue
		}
		err := r.inTx(ctx, func(tx *sqlx.Tx) error {
			if err := m.Up(tx.Tx); err != nil {
				return err
			}
			_, err := tx.ExecContext(ctx,
				"INSERT INTO schema_migrations (version, applied_at, description) VALUES (?, ?, ?)",
				m.Version, r.now().UTC(), m.Description)
			return errors.Wrap(err, "failed to record migration")
		})
		if err != nil {
			return errors.Wrapf(err, "failed to apply migration %d: %s", m.Version, m.Description)
		}
	}
	return nil
}

// Rollback reverts the most recently applied migration. An empty ledger is a no-op.
func (r *MigrationRunner) Rollback(ctx context.Context, migrations []Migration) error {
	applied, err := r.Applied(ctx)
	if err != nil {
		return err
	}
	if len(applied) == 0 {
		return nil
	}
	last := applied[len(applied)-1].Version

	var target *Migration
	for i := range migrations {
		if migrations[i].Version == last {
			target = &migrations[i]
			break
		}
	}
	switch {
	case target == nil:
		return errors.Errorf("migration %d not found in provided migrations", last)
	case target.Down == nil:
		return errors.Errorf("migration %d has no rollback function", last)
	}

	return r.inTx(ctx, func(tx *sqlx.Tx) error {
		if err := target.Down(tx.Tx); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, "DELETE FROM schema_migrations WHERE version = ?", last)
		return errors.Wrap(err, "failed to remove migration record")
	})
}

// Applied returns the ledger, oldest first
func (r *MigrationRunner) Applied(ctx context.Context) ([]AppliedMigration, error) {
	if _, err := r.db.ExecContext(ctx, ledgerSchema); err != nil {
		return nil, errors.Wrap(err, "failed to create schema_migrations table")
	}
	var rows []AppliedMigration
	err := r.db.SelectContext(ctx, &rows,
		"SELECT version, COALESCE(description, '') AS description, applied_at FROM schema_migrations ORDER BY version")
	if err != nil {
		return nil, errors.Wrap(err, "failed to read applied migrations")
	}
	return rows, nil
}

// GetAppliedVersions returns the applied versions in ascending order
func (r *MigrationRunner) GetAppliedVersions(ctx context.Context) ([]int64, error) {
	applied, err := r.Applied(ctx)
	if err != nil {
		return nil, err
	}
	versions := make([]int64, 0, len(applied))
	for _, m := range applied {
		versions = append(versions, m.Version)
	}
	return versions, nil
}

func (r *MigrationRunner) appliedSet(ctx context.Context) (map[int64]bool, error) {
	versions, err := r.GetAppliedVersions(ctx)
	if err != nil {
		return nil, err
	}
	set := make(map[int64]bool, len(versions))
	for _, v := range versions {
		set[v] = true
	}
	return set, nil
}

func (r *MigrationRunner) inTx(ctx context.Context, fn func(*sqlx.Tx) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return errors.Wrap(tx.Commit(), "failed to commit migration")
}

// sortMigrations returns a copy ordered by version and rejects sets with
// duplicate versions or a missing Up step
func sortMigrations(migrations []Migration) ([]Migration, error) {
	ordered := append([]Migration(nil), migrations...)
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].Version < ordered[j].Version })

	for i, m := range ordered {
		if m.Up == nil {
			return nil, errors.Errorf("migration %d has no up function", m.Version)
		}
		if i > 0 && ordered[i-1].Version == m.Version {
			return nil, errors.Errorf("duplicate migration version %d", m.Version)
		}
	}
	return ordered, nil
}
