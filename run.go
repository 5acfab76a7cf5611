package hansard

import (
	"context"
	"time"
)

// DiscoverResult reports the outcome of one discovery pass.
type DiscoverResult struct {
	Seen       int  `json:"seen"`
	New        int  `json:"new"`
	Updated    int  `json:"updated"`
	Deleted    int  `json:"deleted"`
	SubIndexes int  `json:"subIndexes"`
	Truncated  bool `json:"truncated"`
}

// FetchResult reports the outcome of the fetch phase.
type FetchResult struct {
	Fetched int `json:"fetched"`

	// Skipped counts documents left stale after the final pass.
	Skipped int `json:"skipped"`
	Passes  int `json:"passes"`

	// NoTranscript counts fetched landing pages that link to no
	// transcript. They are included in Fetched.
	NoTranscript int `json:"noTranscript"`
}

// ExtractResult reports the outcome of the extraction phase.
type ExtractResult struct {
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Skipped   int `json:"skipped"`
	Discarded int `json:"discarded"`
}

// RunReport aggregates the phase results of one run.
type RunReport struct {
	Discover DiscoverResult `json:"discover"`
	Fetch    FetchResult    `json:"fetch"`
	Extract  ExtractResult  `json:"extract"`
}

// Run is one invocation of the harvesting pipeline.
type Run struct {
	ID         string     `json:"id"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Report     RunReport  `json:"report"`
}

// NoteKind classifies a run log entry.
type NoteKind string

// NoteKind values.
const (
	NoteSkip    NoteKind = "skip"
	NoteDiscard NoteKind = "discard"
	NoteFailure NoteKind = "failure"
)

// RunNote records a per-document event worth curating: an override skip, a
// discarded node or a failed extraction.
type RunNote struct {
	RunID      string   `json:"runId"`
	DocumentID int64    `json:"documentId"`
	Kind       NoteKind `json:"kind"`
	Detail     string   `json:"detail"`
}

// RunService represents the persistent run log.
type RunService interface {
	// CreateRun starts a run, assigning its ID and start time.
	CreateRun(ctx context.Context, run *Run) error

	// FindRunByID retrieves a run by ID.
	// Returns ENOTFOUND if run does not exist.
	FindRunByID(ctx context.Context, id string) (*Run, error)

	// FinishRun records the final report of a run.
	// Returns ENOTFOUND if run does not exist.
	FinishRun(ctx context.Context, id string, report RunReport) error

	// AddNote appends an entry to a run's log.
	AddNote(ctx context.Context, note *RunNote) error

	// FindNotes returns the log entries of a run in insertion order.
	FindNotes(ctx context.Context, runID string) ([]*RunNote, error)
}
