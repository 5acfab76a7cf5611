package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/golang/snappy"
)

// Compile-time interface verification.
var _ hansard.DocumentService = (*DocumentService)(nil)

// checkpointKey is the metadata key holding the discovery checkpoint.
const checkpointKey = "last-run"

const documentColumns = "id, url, last_modified, fetched_at, fetched_modified, processed_at, no_transcript"

// DocumentService implements hansard.DocumentService using SQLite.
// Payloads are stored snappy-compressed.
type DocumentService struct {
	db *DB
}

// NewDocumentService creates a new DocumentService.
func NewDocumentService(db *DB) *DocumentService {
	return &DocumentService{db: db}
}

// UpsertFreshness records the remote last-modified time of the transcript
// url belongs to. Rows are matched by transcript key, so a fragment URL
// different from the stored one updates the existing row and keeps its URL.
func (s *DocumentService) UpsertFreshness(ctx context.Context, url string, lastModified time.Time) (hansard.FreshnessChange, error) {
	doc := &hansard.Document{URL: url, LastModified: lastModified}
	if err := doc.Validate(); err != nil {
		return hansard.FreshnessUnchanged, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return hansard.FreshnessUnchanged, err
	}
	defer tx.Rollback()

	key := doc.Key()
	modified := formatTime(lastModified)

	var stored string
	err = tx.QueryRowContext(ctx, "SELECT last_modified FROM documents WHERE key = ?", key).Scan(&stored)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO documents (url, key, last_modified) VALUES (?, ?, ?)
		`, url, key, modified); err != nil {
			return hansard.FreshnessUnchanged, err
		}
		return hansard.FreshnessNew, tx.Commit()
	case err != nil:
		return hansard.FreshnessUnchanged, err
	}

	// The stored time never decreases.
	if modified <= stored {
		return hansard.FreshnessUnchanged, nil
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents SET last_modified = ? WHERE key = ?
	`, modified, key); err != nil {
		return hansard.FreshnessUnchanged, err
	}
	return hansard.FreshnessUpdated, tx.Commit()
}

// ListStaleForFetch returns documents whose payload is missing or outdated.
func (s *DocumentService) ListStaleForFetch(ctx context.Context) ([]*hansard.Document, error) {
	return s.listDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE fetched_modified IS NULL OR fetched_modified < last_modified
		ORDER BY fetched_at IS NOT NULL, fetched_at, id
	`)
}

// SavePayload stores a fetched payload, clearing any normalized rows derived
// from the previous payload.
func (s *DocumentService) SavePayload(ctx context.Context, url string, payload []byte, fetchedAt time.Time) error {
	return s.save(ctx, url, payload, fetchedAt, false)
}

// SaveLandingPage stores the landing page of a document without a transcript.
func (s *DocumentService) SaveLandingPage(ctx context.Context, url string, page []byte, fetchedAt time.Time) error {
	return s.save(ctx, url, page, fetchedAt, true)
}

func (s *DocumentService) save(ctx context.Context, url string, payload []byte, fetchedAt time.Time, noTranscript bool) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var id int64
	err = tx.QueryRowContext(ctx, "SELECT id FROM documents WHERE url = ?", url).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return hansard.Errorf(hansard.ENOTFOUND, "document %q not found", url)
	}
	if err != nil {
		return err
	}

	if err := deleteNormalized(ctx, tx, id); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET payload = ?, fetched_at = ?, fetched_modified = last_modified, processed_at = NULL, no_transcript = ?
		WHERE id = ?
	`, snappy.Encode(nil, payload), formatTime(fetchedAt), noTranscript, id); err != nil {
		return err
	}

	return tx.Commit()
}

// FindPayload returns the decompressed payload of a document.
func (s *DocumentService) FindPayload(ctx context.Context, id int64) ([]byte, error) {
	var compressed []byte
	err := s.db.QueryRowContext(ctx, "SELECT payload FROM documents WHERE id = ?", id).Scan(&compressed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "document not found")
	}
	if err != nil {
		return nil, err
	}
	if compressed == nil {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "document %d has no payload", id)
	}

	payload, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, fmt.Errorf("decompress payload: %w", err)
	}
	return payload, nil
}

// ListReadyForExtraction returns fetched documents not yet processed.
// Landing pages without a transcript are never ready.
func (s *DocumentService) ListReadyForExtraction(ctx context.Context) ([]*hansard.Document, error) {
	return s.listDocuments(ctx, `
		SELECT `+documentColumns+`
		FROM documents
		WHERE payload IS NOT NULL AND processed_at IS NULL AND NOT no_transcript
		ORDER BY id
	`)
}

// MarkProcessed stamps the process time of a document.
func (s *DocumentService) MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error {
	return markProcessed(ctx, s.db, id, processedAt)
}

// markProcessed is shared with ProceedingService so that the stamp can be
// written inside the replace transaction.
func markProcessed(ctx context.Context, ex execer, id int64, processedAt time.Time) error {
	result, err := ex.ExecContext(ctx, "UPDATE documents SET processed_at = ? WHERE id = ?", formatTime(processedAt), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hansard.Errorf(hansard.ENOTFOUND, "document not found")
	}
	return nil
}

// DeleteNotIn removes every document whose key is not in activeKeys.
// An empty activeKeys is rejected rather than deleting every document.
func (s *DocumentService) DeleteNotIn(ctx context.Context, activeKeys []string) (int, error) {
	if len(activeKeys) == 0 {
		return 0, hansard.Errorf(hansard.EINVALID, "refusing to delete every document: active set is empty")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if err := loadTempSet(ctx, tx, "active_keys", activeKeys); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM documents WHERE key NOT IN (SELECT value FROM active_keys)")
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(rows), nil
}

// FindDocumentByID retrieves a document by ID.
func (s *DocumentService) FindDocumentByID(ctx context.Context, id int64) (*hansard.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE id = ?", id)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "document not found")
	}
	return doc, err
}

// FindDocumentByURL retrieves a document by URL.
func (s *DocumentService) FindDocumentByURL(ctx context.Context, url string) (*hansard.Document, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+documentColumns+" FROM documents WHERE url = ?", url)
	doc, err := scanDocument(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "document not found")
	}
	return doc, err
}

// Checkpoint returns the discovery checkpoint, or the zero time.
func (s *DocumentService) Checkpoint(ctx context.Context) (time.Time, error) {
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", checkpointKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return parseTime(value, "checkpoint")
}

// SetCheckpoint advances the discovery checkpoint. Earlier times are ignored.
func (s *DocumentService) SetCheckpoint(ctx context.Context, t time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
		WHERE excluded.value > metadata.value
	`, checkpointKey, formatTime(t))
	return err
}

// ResetProcessed clears every process time and all normalized rows.
func (s *DocumentService) ResetProcessed(ctx context.Context) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM debates"); err != nil {
		return 0, err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM speeches"); err != nil {
		return 0, err
	}

	result, err := tx.ExecContext(ctx, "UPDATE documents SET processed_at = NULL WHERE processed_at IS NOT NULL")
	if err != nil {
		return 0, err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return int(rows), nil
}

// deleteNormalized removes every normalized row owned by a document.
// Deleting debates cascades to speeches, turns and attributions.
func deleteNormalized(ctx context.Context, tx *sql.Tx, documentID int64) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM debates WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("delete debates: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM speeches WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("delete speeches: %w", err)
	}
	return nil
}

func (s *DocumentService) listDocuments(ctx context.Context, query string, args ...any) ([]*hansard.Document, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	docs := []*hansard.Document{}
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*hansard.Document, error) {
	var doc hansard.Document
	var lastModified string
	var fetchedAt, fetchedModified, processedAt sql.NullString

	if err := row.Scan(&doc.ID, &doc.URL, &lastModified, &fetchedAt, &fetchedModified, &processedAt, &doc.NoTranscript); err != nil {
		return nil, err
	}

	var err error
	if doc.LastModified, err = parseTime(lastModified, "last_modified"); err != nil {
		return nil, err
	}
	if doc.FetchedAt, err = parseNullTime(fetchedAt, "fetched_at"); err != nil {
		return nil, err
	}
	if doc.FetchedModified, err = parseNullTime(fetchedModified, "fetched_modified"); err != nil {
		return nil, err
	}
	if doc.ProcessedAt, err = parseNullTime(processedAt, "processed_at"); err != nil {
		return nil, err
	}
	return &doc, nil
}
