// Package sqlite provides SQLite-based storage implementations for hansard services.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"
)

// DB represents a SQLite database connection.
type DB struct {
	db   *sql.DB
	path string
}

// NewDB creates a new DB instance with the given path.
// Use ":memory:" for an in-memory database.
func NewDB(path string) *DB {
	return &DB{path: path}
}

// Open opens the database connection and creates the schema if needed.
func (db *DB) Open() error {
	conn, err := sql.Open("sqlite3", db.path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one writer at a time, so limit to one connection.
	// This also keeps an in-memory database alive across queries.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to connect to database: %w", err)
	}

	// Wait 5 seconds before failing on lock contention.
	if _, err := conn.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// WAL mode is not supported for in-memory databases.
	if db.path != ":memory:" {
		if _, err := conn.Exec("PRAGMA journal_mode = WAL"); err != nil {
			conn.Close()
			return fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	// Normalized rows are owned by documents through cascading foreign keys.
	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		return fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db.db = conn

	if err := db.createSchema(); err != nil {
		conn.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.db != nil {
		return db.db.Close()
	}
	return nil
}

// BeginTx starts a transaction. Statements inside the transaction must go
// through the returned Tx: the pool holds a single connection.
func (db *DB) BeginTx(ctx context.Context, opts *sql.TxOptions) (*sql.Tx, error) {
	return db.db.BeginTx(ctx, opts)
}

// QueryRowContext executes a query that returns a single row.
func (db *DB) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return db.db.QueryRowContext(ctx, query, args...)
}

// QueryContext executes a query that returns rows.
func (db *DB) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return db.db.QueryContext(ctx, query, args...)
}

// ExecContext executes a statement that doesn't return rows.
func (db *DB) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return db.db.ExecContext(ctx, query, args...)
}

// Stats returns database statistics.
func (db *DB) Stats() sql.DBStats {
	return db.db.Stats()
}

// createSchema creates the database tables if they don't exist.
//
// Timestamps are stored as fixed-width UTC text (see formatTime) so that
// string comparison in SQL orders them chronologically.
func (db *DB) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS documents (
			id INTEGER PRIMARY KEY,
			url TEXT NOT NULL UNIQUE,
			key TEXT NOT NULL UNIQUE,
			last_modified TEXT NOT NULL,
			fetched_at TEXT,
			fetched_modified TEXT,
			processed_at TEXT,
			no_transcript INTEGER NOT NULL DEFAULT 0,
			payload BLOB,
			CHECK ((payload IS NULL) = (fetched_at IS NULL))
		);

		CREATE INDEX IF NOT EXISTS idx_documents_fetched_at ON documents(fetched_at);
		CREATE INDEX IF NOT EXISTS idx_documents_processed_at ON documents(processed_at);

		CREATE TABLE IF NOT EXISTS metadata (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS speakers (
			id TEXT PRIMARY KEY,
			display_name TEXT NOT NULL DEFAULT '',
			gender TEXT NOT NULL DEFAULT '',
			state TEXT NOT NULL DEFAULT '',
			electorate TEXT NOT NULL DEFAULT '',
			party TEXT NOT NULL DEFAULT '',
			date_of_birth TEXT NOT NULL DEFAULT ''
		);

		CREATE TABLE IF NOT EXISTS debates (
			id INTEGER PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			house TEXT NOT NULL,
			title TEXT NOT NULL,
			subdebate_1 TEXT NOT NULL DEFAULT '',
			subdebate_2 TEXT NOT NULL DEFAULT '',
			UNIQUE (date, house, title, subdebate_1, subdebate_2)
		);

		CREATE INDEX IF NOT EXISTS idx_debates_document_id ON debates(document_id);

		CREATE TABLE IF NOT EXISTS speeches (
			id INTEGER PRIMARY KEY,
			document_id INTEGER NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
			debate_id INTEGER NOT NULL REFERENCES debates(id) ON DELETE CASCADE,
			date TEXT NOT NULL,
			house TEXT NOT NULL,
			ordinal INTEGER NOT NULL,
			speech_type TEXT NOT NULL,
			content TEXT NOT NULL DEFAULT '',
			content_hash TEXT NOT NULL DEFAULT '',
			UNIQUE (date, house, ordinal)
		);

		CREATE INDEX IF NOT EXISTS idx_speeches_document_id ON speeches(document_id);
		CREATE INDEX IF NOT EXISTS idx_speeches_debate_id ON speeches(debate_id);

		CREATE TABLE IF NOT EXISTS speech_speakers (
			speech_id INTEGER NOT NULL REFERENCES speeches(id) ON DELETE CASCADE,
			speaker_id TEXT NOT NULL REFERENCES speakers(id) ON DELETE CASCADE,
			PRIMARY KEY (speech_id, speaker_id)
		);

		CREATE INDEX IF NOT EXISTS idx_speech_speakers_speaker ON speech_speakers(speaker_id, speech_id);

		CREATE TABLE IF NOT EXISTS speech_interjectors (
			speech_id INTEGER NOT NULL REFERENCES speeches(id) ON DELETE CASCADE,
			speaker_id TEXT NOT NULL REFERENCES speakers(id) ON DELETE CASCADE,
			PRIMARY KEY (speech_id, speaker_id)
		);

		CREATE INDEX IF NOT EXISTS idx_speech_interjectors_speaker ON speech_interjectors(speaker_id, speech_id);

		CREATE TABLE IF NOT EXISTS turns (
			speech_id INTEGER NOT NULL REFERENCES speeches(id) ON DELETE CASCADE,
			sequence INTEGER NOT NULL,
			speaker_id TEXT NOT NULL DEFAULT '',
			interjection INTEGER NOT NULL DEFAULT 0,
			text TEXT NOT NULL DEFAULT '',
			raw TEXT NOT NULL DEFAULT '',
			PRIMARY KEY (speech_id, sequence)
		);

		CREATE TABLE IF NOT EXISTS runs (
			id TEXT PRIMARY KEY,
			started_at TEXT NOT NULL,
			finished_at TEXT,
			report TEXT NOT NULL DEFAULT '{}'
		);

		CREATE TABLE IF NOT EXISTS run_notes (
			id INTEGER PRIMARY KEY,
			run_id TEXT NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
			document_id INTEGER NOT NULL,
			kind TEXT NOT NULL,
			detail TEXT NOT NULL DEFAULT ''
		);

		CREATE INDEX IF NOT EXISTS idx_run_notes_run_id ON run_notes(run_id);
	`

	_, err := db.db.Exec(schema)
	return err
}
