package hansard

import "context"

// Fetcher retrieves raw document markup.
type Fetcher interface {
	// Fetch performs a GET for the URL and returns the response body.
	// Transient failures are retried by the implementation; a returned
	// error means the document should be left stale for a later run.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// TranscriptResolver finds the machine-readable transcript linked from a
// document landing page.
type TranscriptResolver interface {
	// ResolveTranscript returns the absolute transcript URL linked from page,
	// or ENOTFOUND if the page does not link one.
	ResolveTranscript(page []byte, pageURL string) (string, error)
}
