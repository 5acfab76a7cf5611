package hansard

import (
	"context"
	"net/url"
	"strings"
	"time"
)

// Document is one tracked transcript in the freshness ledger.
type Document struct {
	ID           int64      `json:"id"`
	URL          string     `json:"url"`
	LastModified time.Time  `json:"lastModified"`
	FetchedAt    *time.Time `json:"fetchedAt,omitempty"`
	ProcessedAt  *time.Time `json:"processedAt,omitempty"`

	// FetchedModified is the remote last-modified time the stored payload
	// corresponds to. Nil when no payload is stored.
	FetchedModified *time.Time `json:"fetchedModified,omitempty"`

	// NoTranscript is set when the stored payload is a landing page that
	// links to no transcript.
	NoTranscript bool `json:"noTranscript,omitempty"`
}

// Validate returns an error if the document contains invalid fields.
func (d *Document) Validate() error {
	if d.URL == "" {
		return Errorf(EINVALID, "document URL required")
	}
	if d.LastModified.IsZero() {
		return Errorf(EINVALID, "document last-modified required")
	}
	return nil
}

// Key returns the transcript key used to look up overrides for the document.
func (d *Document) Key() string {
	return DocumentKey(d.URL)
}

// Stale reports whether the stored payload is missing or older than the
// remote copy.
func (d *Document) Stale() bool {
	return d.FetchedModified == nil || d.FetchedModified.Before(d.LastModified)
}

// DocumentKey derives a transcript key from a document URL.
//
// Parliamentary display URLs carry the transcript identity in a path
// parameter, e.g. ";query=Id:"chamber/hansardr/2009-06-03/0001"". The key is
// the first three segments of that identifier ("chamber/hansardr/2009-06-03"),
// which groups every fragment of one sitting day. Any other URL is its own key.
func DocumentKey(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return rawURL
	}

	query := pathParam(u.EscapedPath(), "query")
	if query == "" {
		query = u.Query().Get("query")
	}
	query, _, _ = strings.Cut(query, ";")
	query = strings.TrimPrefix(query, "Id:")
	query = strings.Trim(query, `"`)
	if query == "" {
		return rawURL
	}

	segments := strings.Split(query, "/")
	if len(segments) > 3 {
		segments = segments[:3]
	}
	return strings.Join(segments, "/")
}

// pathParam returns the unescaped value of a ";name=value" path parameter.
func pathParam(path, name string) string {
	_, params, ok := strings.Cut(path, ";")
	if !ok {
		return ""
	}
	for _, part := range strings.FieldsFunc(params, func(r rune) bool { return r == ';' || r == '&' }) {
		k, v, ok := strings.Cut(part, "=")
		if !ok || k != name {
			continue
		}
		s, err := url.QueryUnescape(v)
		if err != nil {
			return ""
		}
		return s
	}
	return ""
}

// FreshnessChange describes the effect of recording a remote last-modified time.
type FreshnessChange int

// FreshnessChange values returned by UpsertFreshness.
const (
	FreshnessUnchanged FreshnessChange = iota
	FreshnessNew
	FreshnessUpdated
)

// DocumentService represents the freshness ledger. It is the single source of
// truth for both the fetch queue and the extraction queue.
type DocumentService interface {
	// UpsertFreshness records the remote last-modified time of the
	// transcript url belongs to. Documents are identified by DocumentKey: a
	// new key is inserted with url and no payload, while a known key keeps
	// its stored URL. The stored time is only ever raised, never lowered.
	UpsertFreshness(ctx context.Context, url string, lastModified time.Time) (FreshnessChange, error)

	// ListStaleForFetch returns documents whose payload is missing or older
	// than the remote copy. Never-fetched documents come first, then the
	// least recently fetched.
	ListStaleForFetch(ctx context.Context) ([]*Document, error)

	// SavePayload stores a fetched payload and its fetch time in one
	// transaction. Any normalized rows from the previous payload are removed
	// and the document becomes ready for extraction.
	// Returns ENOTFOUND if the URL is not tracked.
	SavePayload(ctx context.Context, url string, payload []byte, fetchedAt time.Time) error

	// SaveLandingPage stores the landing page of a document that publishes
	// no transcript. The document is no longer stale and is never ready for
	// extraction until a newer remote copy is fetched.
	// Returns ENOTFOUND if the URL is not tracked.
	SaveLandingPage(ctx context.Context, url string, page []byte, fetchedAt time.Time) error

	// FindPayload returns the decompressed payload of a document.
	// Returns ENOTFOUND if the document has no payload.
	FindPayload(ctx context.Context, id int64) ([]byte, error)

	// ListReadyForExtraction returns fetched documents not yet processed,
	// leaving out documents without a transcript.
	ListReadyForExtraction(ctx context.Context) ([]*Document, error)

	// MarkProcessed stamps the process time of a document.
	// Returns ENOTFOUND if document does not exist.
	MarkProcessed(ctx context.Context, id int64, processedAt time.Time) error

	// DeleteNotIn removes every document whose key is not in activeKeys,
	// cascading to its normalized rows. Returns the number removed.
	DeleteNotIn(ctx context.Context, activeKeys []string) (int, error)

	// FindDocumentByID retrieves a document by ID.
	// Returns ENOTFOUND if document does not exist.
	FindDocumentByID(ctx context.Context, id int64) (*Document, error)

	// FindDocumentByURL retrieves a document by URL.
	// Returns ENOTFOUND if document does not exist.
	FindDocumentByURL(ctx context.Context, url string) (*Document, error)

	// Checkpoint returns the newest remote last-modified time recorded by the
	// last successful discovery pass, or the zero time.
	Checkpoint(ctx context.Context) (time.Time, error)

	// SetCheckpoint advances the discovery checkpoint. Earlier times are ignored.
	SetCheckpoint(ctx context.Context, t time.Time) error

	// ResetProcessed clears every process time and all normalized rows so
	// that fetched documents are extracted again. Returns the number reset.
	ResetProcessed(ctx context.Context) (int, error)
}
