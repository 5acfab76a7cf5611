package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/fwojciec/hansard"
)

// Compile-time interface verification.
var _ hansard.SpeakerService = (*SpeakerService)(nil)

// SpeakerService implements hansard.SpeakerService using SQLite.
type SpeakerService struct {
	db *DB
}

// NewSpeakerService creates a new SpeakerService.
func NewSpeakerService(db *DB) *SpeakerService {
	return &SpeakerService{db: db}
}

// ReplaceSpeakers makes the stored roster equal to speakers. Removing a
// speaker cascades to its attributions.
func (s *SpeakerService) ReplaceSpeakers(ctx context.Context, speakers []*hansard.Speaker) error {
	if len(speakers) == 0 {
		return hansard.Errorf(hansard.EINVALID, "refusing to replace roster with an empty list")
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	ids := make([]string, 0, len(speakers))
	for _, sp := range speakers {
		id := strings.ToLower(strings.TrimSpace(sp.ID))
		if id == "" {
			return hansard.Errorf(hansard.EINVALID, "speaker ID required")
		}
		ids = append(ids, id)

		if _, err := tx.ExecContext(ctx, `
			INSERT INTO speakers (id, display_name, gender, state, electorate, party, date_of_birth)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				display_name = excluded.display_name,
				gender = excluded.gender,
				state = excluded.state,
				electorate = excluded.electorate,
				party = excluded.party,
				date_of_birth = excluded.date_of_birth
		`, id, sp.DisplayName, sp.Gender, sp.State, sp.Electorate, sp.Party, sp.DateOfBirth); err != nil {
			return err
		}
	}

	if err := loadTempSet(ctx, tx, "roster_ids", ids); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, "DELETE FROM speakers WHERE id NOT IN (SELECT value FROM roster_ids)"); err != nil {
		return err
	}

	return tx.Commit()
}

// FindSpeakerByID retrieves a speaker by ID. Lookup is case-insensitive.
func (s *SpeakerService) FindSpeakerByID(ctx context.Context, id string) (*hansard.Speaker, error) {
	var sp hansard.Speaker
	err := s.db.QueryRowContext(ctx, `
		SELECT id, display_name, gender, state, electorate, party, date_of_birth
		FROM speakers WHERE id = ?
	`, strings.ToLower(id)).Scan(&sp.ID, &sp.DisplayName, &sp.Gender, &sp.State, &sp.Electorate, &sp.Party, &sp.DateOfBirth)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, hansard.Errorf(hansard.ENOTFOUND, "speaker not found")
	}
	if err != nil {
		return nil, err
	}
	return &sp, nil
}

// Roster returns a snapshot of the stored speaker IDs.
func (s *SpeakerService) Roster(ctx context.Context) (hansard.Roster, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT id FROM speakers")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	roster := hansard.RosterSet{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		roster[id] = struct{}{}
	}
	return roster, rows.Err()
}
