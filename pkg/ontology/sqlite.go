package ontology

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	_ "modernc.org/sqlite" // SQLite driver
)

// SQLiteStore is a persistent term index backed by SQLite. It serves
// cache-only validation and is filled by Import or by Cache write-back.
type SQLiteStore struct {
	db        *sql.DB
	path      string
	closeOnce sync.Once

	lookupStmt *sql.Stmt
	putStmt    *sql.Stmt
}

// SQLiteStoreConfig configures the store.
type SQLiteStoreConfig struct {
	// Path is the database file. ":memory:" is accepted for tests.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// OpenSQLiteStore opens (creating if needed) a term index at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	return OpenSQLiteStoreWithConfig(SQLiteStoreConfig{Path: path})
}

// OpenSQLiteStoreWithConfig opens a term index with custom configuration.
func OpenSQLiteStoreWithConfig(cfg SQLiteStoreConfig) (*SQLiteStore, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}
	if cfg.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create index directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		cfg.Path, cfg.BusyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open term index: %w", err)
	}

	// single writer; also keeps ":memory:" on one connection
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &SQLiteStore{db: db, path: cfg.Path}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS terms (
		ontology TEXT NOT NULL,
		norm_label TEXT NOT NULL,
		label TEXT NOT NULL,
		term_id TEXT NOT NULL DEFAULT '',
		iri TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (ontology, norm_label)
	);

	CREATE INDEX IF NOT EXISTS idx_terms_term_id ON terms(term_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.lookupStmt, err = s.db.Prepare(`
		SELECT label, term_id, iri
		FROM terms
		WHERE ontology = ? AND norm_label = ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare lookup statement: %w", err)
	}

	s.putStmt, err = s.db.Prepare(`
		INSERT INTO terms (ontology, norm_label, label, term_id, iri, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (ontology, norm_label) DO UPDATE SET
			label = excluded.label,
			term_id = excluded.term_id,
			iri = excluded.iri,
			updated_at = excluded.updated_at
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare put statement: %w", err)
	}

	return nil
}

// Lookup implements Resolver. Database failures are reported as
// *ServiceError.
func (s *SQLiteStore) Lookup(ctx context.Context, ontology, term string) (Match, error) {
	key := keyFor(ontology, term)
	m := Match{Ontology: key.ontology, Term: term}

	var label, id, iri string
	err := s.lookupStmt.QueryRowContext(ctx, key.ontology, key.term).Scan(&label, &id, &iri)
	if errors.Is(err, sql.ErrNoRows) {
		return m, nil
	}
	if err != nil {
		return m, &ServiceError{Service: "sqlite", Ontology: ontology, Term: term, Cause: err}
	}

	m.Found = true
	m.Label = label
	m.ID = id
	m.IRI = iri
	return m, nil
}

// Put inserts or replaces terms.
func (s *SQLiteStore) Put(ctx context.Context, terms ...Term) error {
	if len(terms) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt := tx.StmtContext(ctx, s.putStmt)
	now := time.Now().Unix()
	for _, t := range terms {
		if t.Ontology == "" || strings.TrimSpace(t.Label) == "" {
			return fmt.Errorf("term requires ontology and label (got %q/%q)", t.Ontology, t.Label)
		}
		key := keyFor(t.Ontology, t.Label)
		if _, err := stmt.ExecContext(ctx, key.ontology, key.term, t.Label, t.ID, t.IRI, now); err != nil {
			return fmt.Errorf("failed to store term %q: %w", t.Label, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit terms: %w", err)
	}
	return nil
}

// Count returns the number of indexed terms, optionally for one ontology.
func (s *SQLiteStore) Count(ctx context.Context, ontology string) (int, error) {
	var n int
	var err error
	if ontology == "" {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM terms WHERE ontology = ?`,
			NormalizeOntology(ontology)).Scan(&n)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count terms: %w", err)
	}
	return n, nil
}

// Ontologies lists the ontologies present in the index with their term counts.
func (s *SQLiteStore) Ontologies(ctx context.Context) (map[string]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ontology, COUNT(*) FROM terms GROUP BY ontology ORDER BY ontology`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ontologies: %w", err)
	}
	defer rows.Close()

	out := make(map[string]int)
	for rows.Next() {
		var name string
		var n int
		if err := rows.Scan(&name, &n); err != nil {
			return nil, fmt.Errorf("failed to scan ontology row: %w", err)
		}
		out[name] = n
	}
	return out, rows.Err()
}

// Import reads a tab-separated term list and stores every term. The first
// line is a header that must contain a "label" column and may contain
// "id", "iri" and "ontology". Rows without an ontology column use the
// ontology argument. Returns the number of imported terms.
func (s *SQLiteStore) Import(ctx context.Context, r io.Reader, ontology string) (int, error) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "ontology.import")
	defer span.End()
	span.SetAttributes(attribute.String("ontology", ontology))

	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err == io.EOF {
		return 0, fmt.Errorf("term list is empty")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read term list header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	labelCol, ok := cols["label"]
	if !ok {
		return 0, fmt.Errorf("term list header has no label column")
	}
	field := func(rec []string, name string) string {
		i, ok := cols[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}

	const batchSize = 500
	batch := make([]Term, 0, batchSize)
	total := 0
	flush := func() error {
		if err := s.Put(ctx, batch...); err != nil {
			return err
		}
		total += len(batch)
		batch = batch[:0]
		return nil
	}

	line := 1
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return total, fmt.Errorf("term list line %d: %w", line, err)
		}
		if labelCol >= len(rec) || strings.TrimSpace(rec[labelCol]) == "" {
			continue
		}

		t := Term{
			Ontology: field(rec, "ontology"),
			Label:    strings.TrimSpace(rec[labelCol]),
			ID:       field(rec, "id"),
			IRI:      field(rec, "iri"),
		}
		if t.Ontology == "" {
			t.Ontology = ontology
		}
		if t.Ontology == "" {
			return total, fmt.Errorf("term list line %d: no ontology given", line)
		}

		batch = append(batch, t)
		if len(batch) == batchSize {
			if err := flush(); err != nil {
				return total, err
			}
		}
	}
	if err := flush(); err != nil {
		return total, err
	}

	span.SetAttributes(attribute.Int("terms", total))
	return total, nil
}

// Path returns the database path.
func (s *SQLiteStore) Path() string {
	return s.path
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		if s.lookupStmt != nil {
			s.lookupStmt.Close()
		}
		if s.putStmt != nil {
			s.putStmt.Close()
		}
		err = s.db.Close()
	})
	return err
}
