// Package fieldstore is the database/sql-backed transactional store for
// generated field metadata and the auto-fix audit trail.
package fieldstore

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pullstream/schemaguard/internal/autofix"
	"github.com/pullstream/schemaguard/internal/manifest"
	"github.com/pullstream/schemaguard/internal/model"
)

// DetectDriver maps a connection string to a registered sql driver name.
// Anything that is not Postgres or libsql is treated as a SQLite path.
func DetectDriver(dsn string) string {
	lower := strings.ToLower(dsn)
	switch {
	case strings.HasPrefix(lower, "postgres://"), strings.HasPrefix(lower, "postgresql://"):
		return "postgres"
	case strings.HasPrefix(lower, "libsql://"), strings.HasPrefix(lower, "wss://"), strings.HasPrefix(lower, "ws://"):
		return "libsql"
	default:
		return "sqlite"
	}
}

// Store wraps the metadata database.
type Store struct {
	db     *sql.DB
	logger *zap.Logger
}

// Open connects to the metadata database named by dsn. The caller is
// responsible for having registered the matching driver (main.go imports all
// three).
func Open(dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	driver := DetectDriver(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata store (%s): %w", driver, err)
	}
	return &Store{db: db, logger: logger}, nil
}

// NewWithDB wraps an existing connection, for callers that manage their own.
func NewWithDB(db *sql.DB, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{db: db, logger: logger}
}

// DB exposes the underlying connection for collaborators sharing the
// database, like the lock manager and the record code generator.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the metadata tables if they do not exist. The DDL is
// kept to the dialect subset SQLite, libsql, and Postgres all accept.
func (s *Store) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS model_fields (
			id          TEXT PRIMARY KEY,
			model_name  TEXT NOT NULL,
			field_name  TEXT NOT NULL,
			data_type   TEXT NOT NULL,
			is_optional BOOLEAN NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS applied_fixes (
			id         TEXT PRIMARY KEY,
			applied_at TIMESTAMP NOT NULL,
			model_name TEXT NOT NULL,
			field_name TEXT NOT NULL,
			field_id   TEXT NOT NULL,
			fix        TEXT NOT NULL,
			reason     TEXT NOT NULL
		)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to create metadata tables: %w", err)
		}
	}
	return nil
}

// SyncFields upserts the field metadata rows for the requested model set so
// later per-field updates always have a row to target.
func (s *Store) SyncFields(ctx context.Context, set model.Set) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin field sync: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	const upsert = `INSERT INTO model_fields (id, model_name, field_name, data_type, is_optional)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			model_name = excluded.model_name,
			field_name = excluded.field_name,
			data_type = excluded.data_type,
			is_optional = excluded.is_optional`

	for _, modelName := range set.ModelNames() {
		m := set.Models[modelName]
		for _, fieldName := range m.FieldNames() {
			f := m.Fields[fieldName]
			if f.ID == "" {
				continue
			}
			if _, err := tx.ExecContext(ctx, upsert, f.ID, modelName, fieldName, string(f.DataType), f.IsOptional); err != nil {
				return fmt.Errorf("failed to sync field %s.%s: %w", modelName, fieldName, err)
			}
		}
	}
	return tx.Commit()
}

// RunInTransaction runs fn inside one transaction. Any error from fn rolls
// back every write fn performed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(autofix.Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	if err := fn(&storeTx{tx: sqlTx}); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type storeTx struct {
	tx *sql.Tx
}

func (t *storeTx) MakeFieldOptional(ctx context.Context, fieldID string) error {
	res, err := t.tx.ExecContext(ctx, `UPDATE model_fields SET is_optional = TRUE WHERE id = $1`, fieldID)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("no field row with id %q", fieldID)
	}
	return nil
}

func (t *storeTx) RecordAppliedFix(ctx context.Context, fix manifest.AppliedFix) error {
	_, err := t.tx.ExecContext(ctx,
		`INSERT INTO applied_fixes (id, applied_at, model_name, field_name, field_id, fix, reason)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		uuid.NewString(), fix.AppliedAt, fix.Model, fix.Field, fix.FieldID, fix.Fix, fix.Reason)
	return err
}

var _ autofix.Store = (*Store)(nil)
