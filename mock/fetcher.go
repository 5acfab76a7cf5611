package mock

import (
	"context"

	"github.com/fwojciec/hansard"
)

var _ hansard.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of hansard.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchFn(ctx, url)
}

var _ hansard.TranscriptResolver = (*TranscriptResolver)(nil)

// TranscriptResolver is a mock implementation of hansard.TranscriptResolver.
type TranscriptResolver struct {
	ResolveTranscriptFn func(page []byte, pageURL string) (string, error)
}

func (r *TranscriptResolver) ResolveTranscript(page []byte, pageURL string) (string, error) {
	return r.ResolveTranscriptFn(page, pageURL)
}
