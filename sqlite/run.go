package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/hansard"
	"github.com/google/uuid"
)

// Compile-time interface verification.
var _ hansard.RunService = (*RunService)(nil)

// RunService implements hansard.RunService using SQLite.
// Reports are stored as JSON.
type RunService struct {
	db *DB
}

// NewRunService creates a new RunService.
func NewRunService(db *DB) *RunService {
	return &RunService{db: db}
}

// CreateRun starts a run, assigning its ID and start time.
func (s *RunService) CreateRun(ctx context.Context, run *hansard.Run) error {
	run.ID = uuid.New().String()
	run.StartedAt = time.Now().UTC()
	run.FinishedAt = nil

	report, err := json.Marshal(run.Report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO runs (id, started_at, report) VALUES (?, ?, ?)
	`, run.ID, formatTime(run.StartedAt), string(report))
	return err
}

// FindRunByID retrieves a run by ID.
func (s *RunService) FindRunByID(ctx context.Context, id string) (*hansard.Run, error) {
	var run hansard.Run
	var startedAt, report string
	var finishedAt sql.NullString

	err := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, report FROM runs WHERE id = ?
	`, id).Scan(&run.ID, &startedAt, &finishedAt, &report)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "run not found")
	}
	if err != nil {
		return nil, err
	}

	if run.StartedAt, err = parseTime(startedAt, "started_at"); err != nil {
		return nil, err
	}
	if run.FinishedAt, err = parseNullTime(finishedAt, "finished_at"); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(report), &run.Report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &run, nil
}

// FinishRun records the final report of a run.
func (s *RunService) FinishRun(ctx context.Context, id string, report hansard.RunReport) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("encode run report: %w", err)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE runs SET finished_at = ?, report = ? WHERE id = ?
	`, formatTime(time.Now()), string(data), id)
	if err != nil {
		return err
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return hansard.Errorf(hansard.ENOTFOUND, "run not found")
	}
	return nil
}

// AddNote appends an entry to a run's log.
func (s *RunService) AddNote(ctx context.Context, note *hansard.RunNote) error {
	if note.RunID == "" {
		return hansard.Errorf(hansard.EINVALID, "run ID required")
	}
	if note.Kind == "" {
		return hansard.Errorf(hansard.EINVALID, "note kind required")
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO run_notes (run_id, document_id, kind, detail) VALUES (?, ?, ?, ?)
	`, note.RunID, note.DocumentID, string(note.Kind), note.Detail)
	return err
}

// FindNotes returns the log entries of a run in insertion order.
func (s *RunService) FindNotes(ctx context.Context, runID string) ([]*hansard.RunNote, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, document_id, kind, detail FROM run_notes WHERE run_id = ? ORDER BY id
	`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	notes := []*hansard.RunNote{}
	for rows.Next() {
		var note hansard.RunNote
		var kind string
		if err := rows.Scan(&note.RunID, &note.DocumentID, &kind, &note.Detail); err != nil {
			return nil, err
		}
		note.Kind = hansard.NoteKind(kind)
		notes = append(notes, &note)
	}
	return notes, rows.Err()
}
