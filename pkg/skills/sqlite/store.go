// Package sqlite implements the skill repositories and the durable event log
// on top of SQLite.
package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/jingkaihe/skillvault/pkg/db"
	"github.com/jingkaihe/skillvault/pkg/db/migrations"
	skilltypes "github.com/jingkaihe/skillvault/pkg/types/skills"
)

// fileInsertBatch bounds the rows per multi-row INSERT into skill_files
const fileInsertBatch = 100

// Store implements skilltypes.Store using SQLite database
type Store struct {
	db *sqlx.DB
	repositories
}

var _ skilltypes.Store = (*Store)(nil)

// NewStore opens the database at dbPath, applies pending migrations and
// returns a store backed by it
func NewStore(ctx context.Context, dbPath string) (*Store, error) {
	sqlDB, err := db.Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}

	if err := db.NewMigrationRunner(sqlDB).Run(ctx, migrations.All()); err != nil {
		sqlDB.Close()
		return nil, errors.Wrap(err, "failed to run migrations")
	}

	return NewStoreFromDB(sqlDB), nil
}

// NewStoreFromDB wraps an already opened and migrated database
func NewStoreFromDB(sqlDB *sqlx.DB) *Store {
	return &Store{db: sqlDB, repositories: repositories{q: sqlDB}}
}

// DB exposes the underlying handle
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// Close closes the database connection
func (s *Store) Close() error {
	return s.db.Close()
}

// WithinTransaction runs fn against repositories bound to one transaction.
// The transaction commits when fn returns nil and rolls back otherwise.
func (s *Store) WithinTransaction(ctx context.Context, fn func(ctx context.Context, repos skilltypes.Repositories) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "failed to begin transaction")
	}
	defer tx.Rollback()

	if err := fn(ctx, repositories{q: tx}); err != nil {
		return err
	}

	return errors.Wrap(tx.Commit(), "failed to commit transaction")
}

// repositories binds the three repositories to a database handle or transaction
type repositories struct {
	q sqlx.ExtContext
}

func (r repositories) Skills() skilltypes.SkillRepository          { return skillRepo(r) }
func (r repositories) Versions() skilltypes.SkillVersionRepository { return versionRepo(r) }
func (r repositories) Files() skilltypes.SkillFileRepository       { return fileRepo(r) }

type skillRepo struct{ q sqlx.ExtContext }

func (r skillRepo) Add(ctx context.Context, skill skilltypes.Skill) error {
	query := `
		INSERT INTO skills (
			id, space_id, user_id, slug, version, name, description, prompt,
			allowed_tools, license, compatibility, metadata, created_at, updated_at, deleted_at
		) VALUES (
			:id, :space_id, :user_id, :slug, :version, :name, :description, :prompt,
			:allowed_tools, :license, :compatibility, :metadata, :created_at, :updated_at, :deleted_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, fromSkill(skill)); err != nil {
		return errors.Wrap(err, "failed to insert skill")
	}
	return nil
}

func (r skillRepo) Update(ctx context.Context, skill skilltypes.Skill) error {
	query := `
		UPDATE skills SET
			user_id = :user_id,
			slug = :slug,
			version = :version,
			name = :name,
			description = :description,
			prompt = :prompt,
			allowed_tools = :allowed_tools,
			license = :license,
			compatibility = :compatibility,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE id = :id AND deleted_at IS NULL
	`
	res, err := sqlx.NamedExecContext(ctx, r.q, query, fromSkill(skill))
	if err != nil {
		return errors.Wrap(err, "failed to update skill")
	}
	return expectOneRow(res, "skill %s", skill.ID)
}

func (r skillRepo) Get(ctx context.Context, id skilltypes.SkillID) (*skilltypes.Skill, error) {
	var row dbSkill
	err := sqlx.GetContext(ctx, r.q, &row, "SELECT * FROM skills WHERE id = ? AND deleted_at IS NULL", string(id))
	return toSkill(&row, err)
}

func (r skillRepo) FindBySlug(ctx context.Context, spaceID skilltypes.SpaceID, slug string) (*skilltypes.Skill, error) {
	var row dbSkill
	err := sqlx.GetContext(ctx, r.q, &row,
		"SELECT * FROM skills WHERE space_id = ? AND slug = ? AND deleted_at IS NULL", string(spaceID), slug)
	return toSkill(&row, err)
}

func (r skillRepo) ListBySpace(ctx context.Context, spaceID skilltypes.SpaceID) ([]skilltypes.Skill, error) {
	var rows []dbSkill
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		"SELECT * FROM skills WHERE space_id = ? AND deleted_at IS NULL ORDER BY name, slug", string(spaceID)); err != nil {
		return nil, errors.Wrap(err, "failed to list skills")
	}

	out := make([]skilltypes.Skill, len(rows))
	for i := range rows {
		out[i] = rows[i].ToSkill()
	}
	return out, nil
}

func (r skillRepo) ListSlugs(ctx context.Context, spaceID skilltypes.SpaceID) ([]string, error) {
	var slugs []string
	if err := sqlx.SelectContext(ctx, r.q, &slugs, "SELECT slug FROM skills WHERE space_id = ?", string(spaceID)); err != nil {
		return nil, errors.Wrap(err, "failed to list slugs")
	}
	return slugs, nil
}

func (r skillRepo) SoftDelete(ctx context.Context, id skilltypes.SkillID) error {
	now := time.Now().UTC()
	res, err := r.q.ExecContext(ctx,
		"UPDATE skills SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL", now, now, string(id))
	if err != nil {
		return errors.Wrap(err, "failed to delete skill")
	}
	return expectOneRow(res, "skill %s", id)
}

func toSkill(row *dbSkill, err error) (*skilltypes.Skill, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load skill")
	}
	s := row.ToSkill()
	return &s, nil
}

type versionRepo struct{ q sqlx.ExtContext }

func (r versionRepo) Add(ctx context.Context, version skilltypes.SkillVersion) error {
	query := `
		INSERT INTO skill_versions (
			id, skill_id, user_id, slug, version, name, description, prompt,
			allowed_tools, license, compatibility, metadata, created_at
		) VALUES (
			:id, :skill_id, :user_id, :slug, :version, :name, :description, :prompt,
			:allowed_tools, :license, :compatibility, :metadata, :created_at
		)
	`
	if _, err := sqlx.NamedExecContext(ctx, r.q, query, fromSkillVersion(version)); err != nil {
		return errors.Wrapf(err, "failed to insert version %d of skill %s", version.Version, version.SkillID)
	}
	return nil
}

func (r versionRepo) Get(ctx context.Context, id skilltypes.SkillVersionID) (*skilltypes.SkillVersion, error) {
	var row dbSkillVersion
	err := sqlx.GetContext(ctx, r.q, &row, "SELECT * FROM skill_versions WHERE id = ?", string(id))
	return toSkillVersion(&row, err)
}

func (r versionRepo) FindBySkillAndVersion(ctx context.Context, skillID skilltypes.SkillID, version int) (*skilltypes.SkillVersion, error) {
	var row dbSkillVersion
	err := sqlx.GetContext(ctx, r.q, &row,
		"SELECT * FROM skill_versions WHERE skill_id = ? AND version = ?", string(skillID), version)
	return toSkillVersion(&row, err)
}

func (r versionRepo) FindLatest(ctx context.Context, skillID skilltypes.SkillID) (*skilltypes.SkillVersion, error) {
	var row dbSkillVersion
	err := sqlx.GetContext(ctx, r.q, &row,
		"SELECT * FROM skill_versions WHERE skill_id = ? ORDER BY version DESC LIMIT 1", string(skillID))
	return toSkillVersion(&row, err)
}

func (r versionRepo) ListBySkill(ctx context.Context, skillID skilltypes.SkillID) ([]skilltypes.SkillVersion, error) {
	var rows []dbSkillVersion
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		"SELECT * FROM skill_versions WHERE skill_id = ? ORDER BY version DESC", string(skillID)); err != nil {
		return nil, errors.Wrap(err, "failed to list skill versions")
	}

	out := make([]skilltypes.SkillVersion, len(rows))
	for i := range rows {
		out[i] = rows[i].ToSkillVersion()
	}
	return out, nil
}

func toSkillVersion(row *dbSkillVersion, err error) (*skilltypes.SkillVersion, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "failed to load skill version")
	}
	v := row.ToSkillVersion()
	return &v, nil
}

type fileRepo struct{ q sqlx.ExtContext }

func (r fileRepo) AddMany(ctx context.Context, files []skilltypes.SkillFile) error {
	query := `
		INSERT INTO skill_files (id, skill_version_id, path, content, permissions, is_base64)
		VALUES (:id, :skill_version_id, :path, :content, :permissions, :is_base64)
	`
	for start := 0; start < len(files); start += fileInsertBatch {
		end := min(start+fileInsertBatch, len(files))
		rows := make([]dbSkillFile, 0, end-start)
		for _, f := range files[start:end] {
			rows = append(rows, fromSkillFile(f))
		}
		if _, err := sqlx.NamedExecContext(ctx, r.q, query, rows); err != nil {
			return errors.Wrap(err, "failed to insert skill files")
		}
	}
	return nil
}

func (r fileRepo) ListByVersion(ctx context.Context, versionID skilltypes.SkillVersionID) ([]skilltypes.SkillFile, error) {
	var rows []dbSkillFile
	if err := sqlx.SelectContext(ctx, r.q, &rows,
		"SELECT * FROM skill_files WHERE skill_version_id = ? ORDER BY path", string(versionID)); err != nil {
		return nil, errors.Wrap(err, "failed to list skill files")
	}

	out := make([]skilltypes.SkillFile, len(rows))
	for i := range rows {
		out[i] = rows[i].ToSkillFile()
	}
	return out, nil
}

func expectOneRow(res sql.Result, format string, args ...any) error {
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "failed to read affected rows")
	}
	if n != 1 {
		return errors.Errorf("no active "+format, args...)
	}
	return nil
}
