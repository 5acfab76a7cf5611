package hansard

import "context"

// Speaker is an entry of the external roster of known speakers.
type Speaker struct {
	ID          string `json:"id"`
	DisplayName string `json:"displayName"`
	Gender      string `json:"gender,omitempty"`
	State       string `json:"state,omitempty"`
	Electorate  string `json:"electorate,omitempty"`
	Party       string `json:"party,omitempty"`
	DateOfBirth string `json:"dateOfBirth,omitempty"`
}

// Roster is a read-only snapshot of known speaker IDs.
type Roster interface {
	Contains(id string) bool
}

// RosterSet is a Roster backed by a set of lowercased IDs.
type RosterSet map[string]struct{}

// NewRosterSet returns a RosterSet of the given IDs.
func NewRosterSet(ids ...string) RosterSet {
	s := make(RosterSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

// Contains reports whether id is a known speaker.
func (s RosterSet) Contains(id string) bool {
	_, ok := s[id]
	return ok
}

// Resolve returns the members of ids that are known speakers, preserving order.
// Unknown IDs are dropped; the roster may be incomplete.
func Resolve(r Roster, ids []string) []string {
	resolved := []string{}
	for _, id := range ids {
		if r.Contains(id) {
			resolved = append(resolved, id)
		}
	}
	return resolved
}

// RosterSource reads the external roster feed.
type RosterSource interface {
	FetchSpeakers(ctx context.Context) ([]*Speaker, error)
}

// SpeakerService represents the stored roster snapshot.
type SpeakerService interface {
	// ReplaceSpeakers makes the stored roster equal to speakers: new entries
	// are inserted, existing entries updated and absent entries removed.
	ReplaceSpeakers(ctx context.Context, speakers []*Speaker) error

	// FindSpeakerByID retrieves a speaker by ID.
	// Returns ENOTFOUND if speaker does not exist.
	FindSpeakerByID(ctx context.Context, id string) (*Speaker, error)

	// Roster returns an immutable snapshot of known speaker IDs.
	Roster(ctx context.Context) (Roster, error)
}
