package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"sdrf-pipelines/sdrfcheck/pkg/report"
)

const backend = "sqlite"

// SQLiteConfig contains configuration for the SQLite history store.
type SQLiteConfig struct {
	// Path is the database file path.
	Path string

	// MaxOpenConns is the maximum number of open connections to the database.
	// Default: 4
	MaxOpenConns int

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode bool

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// DefaultSQLiteConfig returns the default SQLite configuration.
func DefaultSQLiteConfig() *SQLiteConfig {
	return &SQLiteConfig{
		Path:         "data/history.db",
		MaxOpenConns: 4,
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
	}
}

// SQLiteStore records validation runs in a SQLite database.
type SQLiteStore struct {
	db     *sql.DB
	config *SQLiteConfig
	logger *slog.Logger
}

// OpenSQLiteStore opens (creating if needed) the history database.
func OpenSQLiteStore(config *SQLiteConfig) (*SQLiteStore, error) {
	if config == nil {
		config = DefaultSQLiteConfig()
	}
	if config.MaxOpenConns <= 0 {
		config.MaxOpenConns = 4
	}

	logger := slog.Default().With("component", "history.sqlite")

	if err := os.MkdirAll(filepath.Dir(config.Path), 0o755); err != nil {
		return nil, NewStorageError(backend, "open", err)
	}

	db, err := sql.Open("sqlite3", config.Path)
	if err != nil {
		return nil, NewStorageError(backend, "open", err)
	}
	db.SetMaxOpenConns(config.MaxOpenConns)

	s := &SQLiteStore{
		db:     db,
		config: config,
		logger: logger,
	}

	if err := s.initialize(); err != nil {
		db.Close()
		return nil, err
	}

	logger.Debug("history store opened", "path", config.Path, "wal_mode", config.WALMode)
	return s, nil
}

func (s *SQLiteStore) initialize() error {
	if s.config.WALMode {
		if _, err := s.db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
			return NewStorageError(backend, "enable_wal", err)
		}
	}

	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA busy_timeout=%d;", s.config.BusyTimeout.Milliseconds())); err != nil {
		return NewStorageError(backend, "set_busy_timeout", err)
	}

	if _, err := s.db.Exec(Schema); err != nil {
		return NewStorageError(backend, "create_schema", err)
	}

	if _, err := s.db.Exec(InsertSchemaVersion, SchemaVersion); err != nil {
		return NewStorageError(backend, "insert_schema_version", err)
	}

	var version int
	err := s.db.QueryRow(GetSchemaVersion).Scan(&version)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return NewStorageError(backend, "get_schema_version", err)
	}
	if version != SchemaVersion {
		return NewStorageError(backend, "schema_version_mismatch",
			fmt.Errorf("expected schema version %d, got %d", SchemaVersion, version))
	}
	return nil
}

// Record persists a run.
func (s *SQLiteStore) Record(ctx context.Context, run *Run) error {
	findings := run.Findings
	if findings == nil {
		findings = []report.Finding{}
	}
	blob, err := json.Marshal(findings)
	if err != nil {
		return NewStorageError(backend, "record", fmt.Errorf("failed to encode findings: %w", err))
	}

	var source, reason any
	if run.Source != "" {
		source = run.Source
	}
	if run.IncompleteReason != "" {
		reason = run.IncompleteReason
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (`+runColumns+`, findings)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Template, source,
		run.StartedAt.UTC().UnixMilli(), run.Duration.Milliseconds(),
		run.Valid, run.Errors, run.Warnings,
		run.TotalRows, run.RowsEvaluated, run.Incomplete, reason,
		string(blob),
	)
	if err != nil {
		return NewStorageError(backend, "record", err)
	}
	return nil
}

// Get returns a run with its findings, or ErrNotFound.
func (s *SQLiteStore) Get(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+`, findings FROM runs WHERE id = ?`, id)

	var blob string
	run, err := scanRun(row, &blob)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, NewStorageError(backend, "get", err)
	}
	if err := json.Unmarshal([]byte(blob), &run.Findings); err != nil {
		return nil, NewStorageError(backend, "get", fmt.Errorf("failed to decode findings: %w", err))
	}
	return run, nil
}

// List returns run summaries matching q, newest first.
func (s *SQLiteStore) List(ctx context.Context, q Query) ([]*Run, error) {
	where, args := buildWhereClause(q)

	query := `SELECT ` + runColumns + ` FROM runs`
	if where != "" {
		query += " WHERE " + where
	}

	limit := 100
	if q.Limit > 0 {
		limit = q.Limit
	}
	query += fmt.Sprintf(" ORDER BY started_at DESC, id LIMIT %d", limit)
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET %d", q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, NewStorageError(backend, "list", err)
	}
	defer rows.Close()

	runs := []*Run{}
	for rows.Next() {
		run, err := scanRun(rows, nil)
		if err != nil {
			return nil, NewStorageError(backend, "scan", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, NewStorageError(backend, "list", err)
	}
	return runs, nil
}

// Count returns the number of recorded runs.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM runs`).Scan(&n); err != nil {
		return 0, NewStorageError(backend, "count", err)
	}
	return n, nil
}

// DeleteBefore removes runs started before cutoff.
func (s *SQLiteStore) DeleteBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ?`, cutoff.UTC().UnixMilli())
	if err != nil {
		return 0, NewStorageError(backend, "delete_before", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(backend, "delete_before", err)
	}
	return n, nil
}

// DeleteExcess keeps the newest keep runs and removes the rest.
func (s *SQLiteStore) DeleteExcess(ctx context.Context, keep int64) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id LIMIT ?
		)`, keep)
	if err != nil {
		return 0, NewStorageError(backend, "delete_excess", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, NewStorageError(backend, "delete_excess", err)
	}
	return n, nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return NewStorageError(backend, "ping", err)
	}
	return nil
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

type scanner interface {
	Scan(dest ...any) error
}

// scanRun reads the runColumns of one row, plus the findings blob when
// findings is non-nil.
func scanRun(row scanner, findings *string) (*Run, error) {
	var (
		run              Run
		source, reason   sql.NullString
		startedMs, durMs int64
	)
	dest := []any{
		&run.ID, &run.Template, &source, &startedMs, &durMs,
		&run.Valid, &run.Errors, &run.Warnings,
		&run.TotalRows, &run.RowsEvaluated, &run.Incomplete, &reason,
	}
	if findings != nil {
		dest = append(dest, findings)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	run.Source = source.String
	run.IncompleteReason = reason.String
	run.StartedAt = time.UnixMilli(startedMs).UTC()
	run.Duration = time.Duration(durMs) * time.Millisecond
	return &run, nil
}

func buildWhereClause(q Query) (string, []any) {
	var conds []string
	var args []any
	if q.Template != "" {
		conds = append(conds, "template = ?")
		args = append(args, q.Template)
	}
	if q.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, q.Source)
	}
	if !q.Since.IsZero() {
		conds = append(conds, "started_at >= ?")
		args = append(args, q.Since.UTC().UnixMilli())
	}
	if !q.Until.IsZero() {
		conds = append(conds, "started_at < ?")
		args = append(args, q.Until.UTC().UnixMilli())
	}
	if q.OnlyInvalid {
		conds = append(conds, "valid = 0")
	}
	return strings.Join(conds, " AND "), args
}
