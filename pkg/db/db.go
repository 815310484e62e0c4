// Package db provides shared SQLite database utilities.
package db

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	_ "modernc.org/sqlite"

	"github.com/jingkaihe/skillvault/pkg/logger"
)

// BasePathEnv overrides the directory holding the storage database
const BasePathEnv = "SKILLVAULT_BASE_PATH"

// openAttempts bounds how often Open retries while another process holds the write lock
const openAttempts = 5

// DefaultDBPath returns the default path for the shared storage database.
func DefaultDBPath() (string, error) {
	if basePath := os.Getenv(BasePathEnv); basePath != "" {
		return filepath.Join(basePath, "storage.db"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", errors.Wrap(err, "failed to get home directory")
	}
	return filepath.Join(home, ".skillvault", "storage.db"), nil
}

// dsn adds the connection options every handle needs. Write transactions
// take the database lock on BEGIN so two writers never interleave between a
// read and the write that depends on it. Per-connection pragmas are repeated
// here so a reconnect keeps them.
func dsn(dbPath string) string {
	return dbPath + "?_txlock=immediate&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"
}

// Open opens or creates a SQLite database at the given path with optimal configuration.
// Opening is retried with backoff while the database is locked by another process.
func Open(ctx context.Context, dbPath string) (*sqlx.DB, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "failed to create database directory")
	}

	var db *sqlx.DB
	err := retry.Do(
		func() error {
			conn, err := sqlx.Open("sqlite", dsn(dbPath))
			if err != nil {
				return retry.Unrecoverable(errors.Wrap(err, "failed to open database"))
			}
			if err := conn.PingContext(ctx); err != nil {
				conn.Close()
				return errors.Wrap(err, "failed to ping database")
			}
			if err := Configure(ctx, conn); err != nil {
				conn.Close()
				return errors.Wrap(err, "failed to configure database")
			}
			db = conn
			return nil
		},
		retry.RetryIf(isBusyError),
		retry.Attempts(openAttempts),
		retry.Delay(50*time.Millisecond),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.Context(ctx),
		retry.OnRetry(func(n uint, err error) {
			logger.G(ctx).WithError(err).WithField("attempt", n+1).Debug("database busy, retrying open")
		}),
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

func isBusyError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "sqlite_busy") || strings.Contains(msg, "database is locked")
}

// Configure sets up SQLite pragmas for optimal WAL mode performance.
func Configure(ctx context.Context, db *sqlx.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=1000",
		"PRAGMA temp_store=memory",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			return errors.Wrapf(err, "failed to execute pragma: %s", pragma)
		}
	}

	db.SetMaxIdleConns(1)
	db.SetMaxOpenConns(1)

	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode").Scan(&journalMode); err != nil {
		return errors.Wrap(err, "failed to query journal mode")
	}

	if strings.ToLower(journalMode) != "wal" {
		return errors.Errorf("WAL mode not enabled. Current mode: %s", journalMode)
	}

	return nil
}

// Settings are the connection pragmas the store depends on
type Settings struct {
	JournalMode string
	Synchronous string
	ForeignKeys string
	BusyTimeout string
}

// ReadSettings queries the pragmas of an open connection
func ReadSettings(ctx context.Context, db *sqlx.DB) (*Settings, error) {
	var s Settings
	for _, p := range []struct {
		pragma string
		dest   *string
	}{
		{"journal_mode", &s.JournalMode},
		{"synchronous", &s.Synchronous},
		{"foreign_keys", &s.ForeignKeys},
		{"busy_timeout", &s.BusyTimeout},
	} {
		if err := db.GetContext(ctx, p.dest, "PRAGMA "+p.pragma); err != nil {
			return nil, errors.Wrapf(err, "failed to query %s", p.pragma)
		}
	}
	return &s, nil
}

// Check reports the first pragma that differs from what Open configures
func (s *Settings) Check() error {
	switch {
	case strings.ToLower(s.JournalMode) != "wal":
		return errors.Errorf("expected WAL journal mode, got %s", s.JournalMode)
	case s.Synchronous != "1":
		return errors.Errorf("expected NORMAL synchronous mode, got %s", s.Synchronous)
	case s.ForeignKeys != "1":
		return errors.Errorf("expected foreign keys ON, got %s", s.ForeignKeys)
	}
	return nil
}
