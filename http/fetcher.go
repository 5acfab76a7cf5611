package http

import (
	"bytes"
	"context"

	"github.com/fwojciec/hansard"
)

// Ensure Fetcher implements hansard.Fetcher at compile time.
var _ hansard.Fetcher = (*Fetcher)(nil)

// Fetcher retrieves transcript markup using the shared Client.
type Fetcher struct {
	client *Client
}

// NewFetcher creates a new HTTP-based Fetcher.
func NewFetcher(client *Client) *Fetcher {
	return &Fetcher{client: client}
}

// Fetch retrieves the body at url. An empty body is an error so that the
// document stays stale instead of storing nothing.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	body, err := f.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, hansard.Errorf(hansard.ETRANSIENT, "empty response for %s", url)
	}
	return body, nil
}
