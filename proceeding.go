package hansard

import (
	"context"
	"time"
)

// Placeholder titles substituted when a transcript omits them.
const (
	UntitledDebate    = "<untitled debate>"
	UntitledSubdebate = "<untitled sub-debate>"
)

// DebateKey is the natural identity of a debate. Two speeches with the same
// key belong to the same debate row regardless of surrogate IDs.
type DebateKey struct {
	Date       string
	House      string
	Title      string
	Subdebate1 string
	Subdebate2 string
}

// Debate is an agenda item grouping one or more speeches.
type Debate struct {
	ID         int64  `json:"id"`
	DocumentID int64  `json:"documentId"`
	Date       string `json:"date"`
	House      string `json:"house"`
	Title      string `json:"title"`
	Subdebate1 string `json:"subdebate1"`
	Subdebate2 string `json:"subdebate2"`
}

// Key returns the natural key of the debate.
func (d *Debate) Key() DebateKey {
	return DebateKey{
		Date:       d.Date,
		House:      d.House,
		Title:      d.Title,
		Subdebate1: d.Subdebate1,
		Subdebate2: d.Subdebate2,
	}
}

// SpeechType classifies a speech-like unit.
type SpeechType string

// SpeechType values.
const (
	SpeechTypeSpeech   SpeechType = "speech"
	SpeechTypeQuestion SpeechType = "question"
	SpeechTypeAnswer   SpeechType = "answer"
)

// Speech is one attributed turn-taking unit under a debate.
type Speech struct {
	ID          int64      `json:"id"`
	DocumentID  int64      `json:"documentId"`
	DebateID    int64      `json:"debateId"`
	Debate      DebateKey  `json:"debate"`
	Date        string     `json:"date"`
	House       string     `json:"house"`
	Ordinal     int        `json:"ordinal"`
	Type        SpeechType `json:"type"`
	Content     string     `json:"content"`
	ContentHash string     `json:"contentHash"`

	// Speakers and Interjectors hold only roster-resolved speaker IDs.
	Speakers     []string `json:"speakers"`
	Interjectors []string `json:"interjectors"`

	Turns []Turn `json:"turns"`
}

// Turn is one contiguous span of speech by one speaker within a Speech.
type Turn struct {
	Sequence int `json:"sequence"`

	// SpeakerID is the identifier as written in the transcript, lowercased.
	// It may not resolve against the roster.
	SpeakerID    string `json:"speakerId,omitempty"`
	Interjection bool   `json:"interjection"`
	Text         string `json:"text"`
	Raw          string `json:"raw"`
}

// DiscardReason explains why a matched speech-like node produced no Speech.
type DiscardReason string

// DiscardReason values.
const (
	// DiscardNested marks a unit nested inside another speech-like unit; its
	// content is part of the enclosing Speech.
	DiscardNested DiscardReason = "nested"

	// DiscardInterjection marks a unit nested inside an interjection of
	// another unit; it is recorded as an interjection turn of that unit.
	DiscardInterjection DiscardReason = "nested-interjection"
)

// Discard records a matched node that deliberately produced no Speech.
type Discard struct {
	Ordinal int           `json:"ordinal"`
	Tag     string        `json:"tag"`
	Reason  DiscardReason `json:"reason"`

	// Enclosing is the ordinal of the unit the node was folded into.
	Enclosing int `json:"enclosing"`
}

// Extraction is the normalized result of parsing one document.
type Extraction struct {
	DocumentID int64
	Date       string
	House      string

	// Skip is set when an override excludes the document. A skipped
	// extraction carries no rows.
	Skip string

	Debates  []*Debate
	Speeches []*Speech
	Discards []Discard
}

// Matched returns the number of speech-like nodes the extraction accounted for.
func (e *Extraction) Matched() int {
	return len(e.Speeches) + len(e.Discards)
}

// ProceedingService represents the normalized store.
type ProceedingService interface {
	// ReplaceDocument deletes every debate, speech and turn owned by the
	// extraction's document, inserts the new rows and stamps the document
	// processed, all in one transaction. Natural keys owned by another
	// document return ECONFLICT.
	ReplaceDocument(ctx context.Context, ext *Extraction, processedAt time.Time) error

	// FindDebates returns the debates owned by a document.
	FindDebates(ctx context.Context, documentID int64) ([]*Debate, error)

	// FindSpeeches returns the speeches owned by a document in ordinal order,
	// with turns and resolved attributions populated.
	FindSpeeches(ctx context.Context, documentID int64) ([]*Speech, error)
}
