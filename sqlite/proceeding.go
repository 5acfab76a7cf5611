package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/fwojciec/hansard"
)

// Compile-time interface verification.
var _ hansard.ProceedingService = (*ProceedingService)(nil)

// ProceedingService implements hansard.ProceedingService using SQLite.
type ProceedingService struct {
	db *DB
}

// NewProceedingService creates a new ProceedingService.
func NewProceedingService(db *DB) *ProceedingService {
	return &ProceedingService{db: db}
}

// ReplaceDocument swaps the normalized rows of one document in a single
// transaction. On success the IDs of ext's debates and speeches are set.
func (s *ProceedingService) ReplaceDocument(ctx context.Context, ext *hansard.Extraction, processedAt time.Time) error {
	if ext == nil || ext.DocumentID == 0 {
		return hansard.Errorf(hansard.EINVALID, "extraction document ID required")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM documents WHERE id = ?", ext.DocumentID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return hansard.Errorf(hansard.ENOTFOUND, "document not found")
	}
	if err != nil {
		return err
	}

	if err := deleteNormalized(ctx, tx, ext.DocumentID); err != nil {
		return err
	}

	debateIDs := make(map[hansard.DebateKey]int64, len(ext.Debates))
	for _, d := range ext.Debates {
		key := d.Key()
		if id, ok := debateIDs[key]; ok {
			d.ID = id
			d.DocumentID = ext.DocumentID
			continue
		}
		id, err := insertDebate(ctx, tx, ext.DocumentID, d)
		if err != nil {
			return err
		}
		debateIDs[key] = id
		d.ID = id
		d.DocumentID = ext.DocumentID
	}

	for _, sp := range ext.Speeches {
		debateID, ok := debateIDs[sp.Debate]
		if !ok {
			return hansard.Errorf(hansard.EINVALID, "speech %d references a debate not in the extraction", sp.Ordinal)
		}
		sp.DocumentID = ext.DocumentID
		sp.DebateID = debateID
		if err := insertSpeech(ctx, tx, sp); err != nil {
			return err
		}
	}

	if err := markProcessed(ctx, tx, ext.DocumentID, processedAt); err != nil {
		return err
	}

	return tx.Commit()
}

func insertDebate(ctx context.Context, tx *sql.Tx, documentID int64, d *hansard.Debate) (int64, error) {
	var owner int64
	err := tx.QueryRowContext(ctx, `
		SELECT document_id FROM debates
		WHERE date = ? AND house = ? AND title = ? AND subdebate_1 = ? AND subdebate_2 = ?
	`, d.Date, d.House, d.Title, d.Subdebate1, d.Subdebate2).Scan(&owner)
	switch {
	case err == nil:
		return 0, hansard.Errorf(hansard.ECONFLICT, "debate %q on %s (%s) already stored by document %d", d.Title, d.Date, d.House, owner)
	case !errors.Is(err, sql.ErrNoRows):
		return 0, err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO debates (document_id, date, house, title, subdebate_1, subdebate_2)
		VALUES (?, ?, ?, ?, ?, ?)
	`, documentID, d.Date, d.House, d.Title, d.Subdebate1, d.Subdebate2)
	if err != nil {
		return 0, fmt.Errorf("insert debate: %w", err)
	}
	return result.LastInsertId()
}

func insertSpeech(ctx context.Context, tx *sql.Tx, sp *hansard.Speech) error {
	var owner int64
	err := tx.QueryRowContext(ctx, `
		SELECT document_id FROM speeches WHERE date = ? AND house = ? AND ordinal = ?
	`, sp.Date, sp.House, sp.Ordinal).Scan(&owner)
	switch {
	case err == nil:
		return hansard.Errorf(hansard.ECONFLICT, "speech %d on %s (%s) already stored by document %d", sp.Ordinal, sp.Date, sp.House, owner)
	case !errors.Is(err, sql.ErrNoRows):
		return err
	}

	result, err := tx.ExecContext(ctx, `
		INSERT INTO speeches (document_id, debate_id, date, house, ordinal, speech_type, content, content_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, sp.DocumentID, sp.DebateID, sp.Date, sp.House, sp.Ordinal, string(sp.Type), sp.Content, sp.ContentHash)
	if err != nil {
		return fmt.Errorf("insert speech: %w", err)
	}
	if sp.ID, err = result.LastInsertId(); err != nil {
		return err
	}

	for _, turn := range sp.Turns {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO turns (speech_id, sequence, speaker_id, interjection, text, raw)
			VALUES (?, ?, ?, ?, ?, ?)
		`, sp.ID, turn.Sequence, turn.SpeakerID, turn.Interjection, turn.Text, turn.Raw); err != nil {
			return fmt.Errorf("insert turn: %w", err)
		}
	}

	// Attributions join against the roster so that an ID removed by a
	// concurrent roster refresh is dropped rather than violating the
	// foreign key.
	for _, id := range sp.Speakers {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO speech_speakers (speech_id, speaker_id)
			SELECT ?, id FROM speakers WHERE id = ?
		`, sp.ID, id); err != nil {
			return fmt.Errorf("insert speaker attribution: %w", err)
		}
	}
	for _, id := range sp.Interjectors {
		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO speech_interjectors (speech_id, speaker_id)
			SELECT ?, id FROM speakers WHERE id = ?
		`, sp.ID, id); err != nil {
			return fmt.Errorf("insert interjector attribution: %w", err)
		}
	}
	return nil
}

// FindDebates returns the debates owned by a document.
func (s *ProceedingService) FindDebates(ctx context.Context, documentID int64) ([]*hansard.Debate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, document_id, date, house, title, subdebate_1, subdebate_2
		FROM debates
		WHERE document_id = ?
		ORDER BY id
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debates := []*hansard.Debate{}
	for rows.Next() {
		var d hansard.Debate
		if err := rows.Scan(&d.ID, &d.DocumentID, &d.Date, &d.House, &d.Title, &d.Subdebate1, &d.Subdebate2); err != nil {
			return nil, err
		}
		debates = append(debates, &d)
	}
	return debates, rows.Err()
}

// FindSpeeches returns the speeches owned by a document in ordinal order.
func (s *ProceedingService) FindSpeeches(ctx context.Context, documentID int64) ([]*hansard.Speech, error) {
	speeches, err := s.findSpeechRows(ctx, documentID)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]*hansard.Speech, len(speeches))
	for _, sp := range speeches {
		byID[sp.ID] = sp
	}

	if err := s.loadTurns(ctx, documentID, byID); err != nil {
		return nil, err
	}
	if err := s.loadAttributions(ctx, "speech_speakers", documentID, byID, func(sp *hansard.Speech, id string) {
		sp.Speakers = append(sp.Speakers, id)
	}); err != nil {
		return nil, err
	}
	if err := s.loadAttributions(ctx, "speech_interjectors", documentID, byID, func(sp *hansard.Speech, id string) {
		sp.Interjectors = append(sp.Interjectors, id)
	}); err != nil {
		return nil, err
	}
	return speeches, nil
}

// findSpeechRows reads the speech rows alone. The rows are fully drained
// before the dependent queries run because the pool holds one connection.
func (s *ProceedingService) findSpeechRows(ctx context.Context, documentID int64) ([]*hansard.Speech, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id, s.document_id, s.debate_id, s.date, s.house, s.ordinal,
			s.speech_type, s.content, s.content_hash,
			d.date, d.house, d.title, d.subdebate_1, d.subdebate_2
		FROM speeches s
		JOIN debates d ON d.id = s.debate_id
		WHERE s.document_id = ?
		ORDER BY s.ordinal
	`, documentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	speeches := []*hansard.Speech{}
	for rows.Next() {
		sp := hansard.Speech{
			Speakers:     []string{},
			Interjectors: []string{},
			Turns:        []hansard.Turn{},
		}
		var speechType string
		if err := rows.Scan(
			&sp.ID, &sp.DocumentID, &sp.DebateID, &sp.Date, &sp.House, &sp.Ordinal,
			&speechType, &sp.Content, &sp.ContentHash,
			&sp.Debate.Date, &sp.Debate.House, &sp.Debate.Title, &sp.Debate.Subdebate1, &sp.Debate.Subdebate2,
		); err != nil {
			return nil, err
		}
		sp.Type = hansard.SpeechType(speechType)
		speeches = append(speeches, &sp)
	}
	return speeches, rows.Err()
}

func (s *ProceedingService) loadTurns(ctx context.Context, documentID int64, byID map[int64]*hansard.Speech) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.speech_id, t.sequence, t.speaker_id, t.interjection, t.text, t.raw
		FROM turns t
		JOIN speeches s ON s.id = t.speech_id
		WHERE s.document_id = ?
		ORDER BY t.speech_id, t.sequence
	`, documentID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var speechID int64
		var turn hansard.Turn
		if err := rows.Scan(&speechID, &turn.Sequence, &turn.SpeakerID, &turn.Interjection, &turn.Text, &turn.Raw); err != nil {
			return err
		}
		if sp, ok := byID[speechID]; ok {
			sp.Turns = append(sp.Turns, turn)
		}
	}
	return rows.Err()
}

func (s *ProceedingService) loadAttributions(ctx context.Context, table string, documentID int64, byID map[int64]*hansard.Speech, add func(*hansard.Speech, string)) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.speech_id, a.speaker_id
		FROM `+table+` a
		JOIN speeches s ON s.id = a.speech_id
		WHERE s.document_id = ?
		ORDER BY a.speech_id, a.speaker_id
	`, documentID)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var speechID int64
		var speakerID string
		if err := rows.Scan(&speechID, &speakerID); err != nil {
			return err
		}
		if sp, ok := byID[speechID]; ok {
			add(sp, speakerID)
		}
	}
	return rows.Err()
}
