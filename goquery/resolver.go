// Package goquery resolves transcript links on document landing pages using
// github.com/PuerkitoBio/goquery.
package goquery

import (
	"bytes"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/hansard"
)

// Ensure TranscriptResolver implements hansard.TranscriptResolver at compile time.
var _ hansard.TranscriptResolver = (*TranscriptResolver)(nil)

// DefaultTranscriptMarker is the path segment of machine-readable transcript
// downloads on parliamentary landing pages.
const DefaultTranscriptMarker = "/toc_unixml/"

// TranscriptResolver finds the first anchor whose href contains Marker.
type TranscriptResolver struct {
	Marker string
}

// NewTranscriptResolver creates a TranscriptResolver using DefaultTranscriptMarker.
func NewTranscriptResolver() *TranscriptResolver {
	return &TranscriptResolver{Marker: DefaultTranscriptMarker}
}

// ResolveTranscript returns the absolute URL of the transcript linked from page.
func (r *TranscriptResolver) ResolveTranscript(page []byte, pageURL string) (string, error) {
	base, err := url.Parse(pageURL)
	if err != nil {
		return "", hansard.Errorf(hansard.EINVALID, "invalid page URL: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page))
	if err != nil {
		return "", hansard.Errorf(hansard.EPARSE, "failed to parse HTML: %v", err)
	}

	var resolved string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if !strings.Contains(href, r.Marker) {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}
		resolved = base.ResolveReference(ref).String()
		return false
	})

	if resolved == "" {
		return "", hansard.Errorf(hansard.ENOTFOUND, "no transcript link on %s", pageURL)
	}
	return resolved, nil
}
