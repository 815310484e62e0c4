package main

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/jingkaihe/skillvault/pkg/db"
	"github.com/jingkaihe/skillvault/pkg/db/migrations"
	"github.com/jingkaihe/skillvault/pkg/presenter"
)

var dbCmd = &cobra.Command{
	Use:   "db",
	Short: "Database management commands",
	Long:  `Commands for managing the skillvault database (migrations, status, etc.)`,
}

var dbStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database migration status",
	Long:  `Shows the connection settings and the applied and pending migrations.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return withDB(cmd.Context(), func(path string, conn *sqlx.DB) error {
			applied, err := db.NewMigrationRunner(conn).Applied(cmd.Context())
			if err != nil {
				return errors.Wrap(err, "failed to get migration status")
			}

			appliedAt := make(map[int64]time.Time, len(applied))
			for _, m := range applied {
				appliedAt[m.Version] = m.AppliedAt
			}

			all := migrations.All()
			rows := make([][]string, 0, len(all))
			appliedCount := 0
			for _, m := range all {
				status, when := "pending", "-"
				if at, ok := appliedAt[m.Version]; ok {
					status, when = "applied", at.Local().Format(time.DateTime)
					appliedCount++
				}
				rows = append(rows, []string{fmt.Sprint(m.Version), status, when, m.Description})
			}

			settings, err := db.ReadSettings(cmd.Context(), conn)
			if err != nil {
				return err
			}

			presenter.Section("Database Migration Status")
			presenter.KeyValues([][2]string{
				{"Database", path},
				{"Journal mode", settings.JournalMode},
				{"Synchronous", settings.Synchronous},
				{"Foreign keys", settings.ForeignKeys},
				{"Busy timeout (ms)", settings.BusyTimeout},
			})
			if err := settings.Check(); err != nil {
				presenter.Warning(err.Error())
			}
			presenter.Table([]string{"VERSION", "STATUS", "APPLIED AT", "DESCRIPTION"}, rows)
			presenter.Info(fmt.Sprintf("Applied: %d/%d migrations", appliedCount, len(all)))
			return nil
		})
	},
}

var dbRollbackCmd = &cobra.Command{
	Use:   "rollback",
	Short: "Rollback the last database migration",
	Long:  `Rolls back the most recently applied database migration. Useful for testing or downgrading skillvault.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()
		return withDB(ctx, func(_ string, conn *sqlx.DB) error {
			runner := db.NewMigrationRunner(conn)
			applied, err := runner.GetAppliedVersions(ctx)
			if err != nil {
				return errors.Wrap(err, "failed to get migration status")
			}

			if len(applied) == 0 {
				presenter.Warning("No migrations to rollback")
				return nil
			}

			lastVersion := applied[len(applied)-1]
			presenter.Info(fmt.Sprintf("Rolling back migration %d: %s", lastVersion, migrationDescription(lastVersion)))

			if err := runner.Rollback(ctx, migrations.All()); err != nil {
				return errors.Wrap(err, "failed to rollback migration")
			}

			presenter.Success(fmt.Sprintf("Successfully rolled back migration %d", lastVersion))
			return nil
		})
	},
}

func migrationDescription(version int64) string {
	for _, m := range migrations.All() {
		if m.Version == version {
			return m.Description
		}
	}
	return "unknown"
}

// withDB opens the database without applying migrations
func withDB(ctx context.Context, fn func(path string, conn *sqlx.DB) error) error {
	path, err := databasePath()
	if err != nil {
		return err
	}
	conn, err := db.Open(ctx, path)
	if err != nil {
		return err
	}
	defer conn.Close()
	return fn(path, conn)
}

func init() {
	dbCmd.AddCommand(dbStatusCmd)
	dbCmd.AddCommand(dbRollbackCmd)
}
