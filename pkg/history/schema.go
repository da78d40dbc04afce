package history

// SchemaVersion is the current database schema version.
const SchemaVersion = 1

// Schema creates the history database.
const Schema = `
CREATE TABLE IF NOT EXISTS runs (
    id TEXT PRIMARY KEY,
    template TEXT NOT NULL,
    source TEXT,

    -- Unix milliseconds, UTC
    started_at INTEGER NOT NULL,
    duration_ms INTEGER NOT NULL,

    valid BOOLEAN NOT NULL,
    errors INTEGER NOT NULL,
    warnings INTEGER NOT NULL,

    total_rows INTEGER NOT NULL,
    rows_evaluated INTEGER NOT NULL,
    incomplete BOOLEAN NOT NULL,
    incomplete_reason TEXT,

    -- JSON array of findings
    findings TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
CREATE INDEX IF NOT EXISTS idx_runs_template ON runs(template);
CREATE INDEX IF NOT EXISTS idx_runs_source ON runs(source);
`

// InsertSchemaVersion inserts the schema version into the schema_version table.
const InsertSchemaVersion = `
INSERT INTO schema_version (version, applied_at)
VALUES (?, datetime('now'))
ON CONFLICT(version) DO NOTHING;
`

// GetSchemaVersion retrieves the current schema version from the database.
const GetSchemaVersion = `
SELECT version FROM schema_version ORDER BY version DESC LIMIT 1;
`

const runColumns = `id, template, source, started_at, duration_ms, valid, errors, warnings,
	total_rows, rows_evaluated, incomplete, incomplete_reason`
