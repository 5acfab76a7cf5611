// Package harvest orchestrates the harvesting pipeline: sitemap discovery,
// rate-limited fetching and bounded parallel extraction into the normalized
// store.
package harvest

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/fwojciec/hansard"
	"golang.org/x/time/rate"
)

// DefaultSafetyMargin is subtracted from the checkpoint before early
// termination is considered, so boundary effects never hide an update.
const DefaultSafetyMargin = 4 * 7 * 24 * time.Hour

// DiscoverMode selects between the two discovery policies. A run uses
// exactly one of them.
type DiscoverMode int

const (
	// DiscoverIncremental stops at the first leaf sitemap older than the
	// checkpoint and never deletes documents.
	DiscoverIncremental DiscoverMode = iota

	// DiscoverFull walks the whole index and removes documents the index
	// no longer lists.
	DiscoverFull
)

func (m DiscoverMode) String() string {
	if m == DiscoverFull {
		return "full"
	}
	return "incremental"
}

// Differ reconciles the remote sitemap index with the document ledger.
type Differ struct {
	Sitemaps  hansard.SitemapService
	Documents hansard.DocumentService

	// Filter selects the document URLs to track. Nil tracks everything.
	Filter *hansard.URLFilter

	// ReverseIndex walks index entries in reverse of their listed order.
	// Indexes that list oldest first need it for newest-first traversal.
	ReverseIndex bool

	// SafetyMargin defaults to DefaultSafetyMargin when zero.
	SafetyMargin time.Duration

	// Limiter paces sitemap reads. Nil disables pacing.
	Limiter *rate.Limiter

	Logger *slog.Logger
}

// candidate is the grouped state of one transcript key.
type candidate struct {
	url          string
	lastModified time.Time
}

// walk holds the state of one discovery pass.
type walk struct {
	mode       DiscoverMode
	cutoff     time.Time
	prevMax    time.Time
	candidates map[string]candidate
	maxSeen    time.Time
	stopped    bool
	result     *hansard.DiscoverResult
}

// Discover walks the index at indexURL newest-first and records the
// freshness of every tracked document it lists.
//
// Leaf sitemaps must appear in non-increasing order of their newest entry;
// a violation returns EINVARIANT because early termination would be unsafe.
// Any error aborts the pass before deletions or checkpoint changes.
func (d *Differ) Discover(ctx context.Context, indexURL string, mode DiscoverMode) (*hansard.DiscoverResult, error) {
	w := &walk{
		mode:       mode,
		candidates: make(map[string]candidate),
		result:     &hansard.DiscoverResult{},
	}

	if mode == DiscoverIncremental {
		checkpoint, err := d.Documents.Checkpoint(ctx)
		if err != nil {
			return nil, err
		}
		if !checkpoint.IsZero() {
			margin := d.SafetyMargin
			if margin == 0 {
				margin = DefaultSafetyMargin
			}
			w.cutoff = checkpoint.Add(-margin)
		}
	}

	if err := d.walk(ctx, w, indexURL); err != nil {
		return nil, err
	}
	w.result.Truncated = w.stopped

	keys := make([]string, 0, len(w.candidates))
	for k := range w.candidates {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	active := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		c := w.candidates[k]
		change, err := d.Documents.UpsertFreshness(ctx, c.url, c.lastModified)
		if err != nil {
			return nil, err
		}
		switch change {
		case hansard.FreshnessNew:
			w.result.New++
		case hansard.FreshnessUpdated:
			w.result.Updated++
		}
		active = append(active, k)
	}
	w.result.Seen = len(active)

	if mode == DiscoverFull {
		if len(active) == 0 {
			d.logger().Warn("index listed no documents; skipping deletion detection", "url", indexURL)
		} else {
			n, err := d.Documents.DeleteNotIn(ctx, active)
			if err != nil {
				return nil, err
			}
			w.result.Deleted = n
		}
	}

	if !w.maxSeen.IsZero() {
		if err := d.Documents.SetCheckpoint(ctx, w.maxSeen); err != nil {
			return nil, err
		}
	}

	d.logger().Info("discovery complete",
		"mode", mode,
		"subIndexes", w.result.SubIndexes,
		"seen", w.result.Seen,
		"new", w.result.New,
		"updated", w.result.Updated,
		"deleted", w.result.Deleted,
		"truncated", w.result.Truncated,
	)
	return w.result, nil
}

func (d *Differ) walk(ctx context.Context, w *walk, url string) error {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			return err
		}
	}

	sm, err := d.Sitemaps.ReadSitemap(ctx, url)
	if err != nil {
		return err
	}

	if sm.IsIndex() {
		entries := slices.Clone(sm.Sitemaps)
		if d.ReverseIndex {
			slices.Reverse(entries)
		}
		for _, e := range entries {
			if w.stopped {
				return nil
			}
			if err := d.walk(ctx, w, e.Loc); err != nil {
				return err
			}
		}
		return nil
	}

	return d.leaf(w, url, sm)
}

func (d *Differ) leaf(w *walk, url string, sm *hansard.Sitemap) error {
	w.result.SubIndexes++

	newest := sm.MaxLastModified()
	if !newest.IsZero() {
		if !w.prevMax.IsZero() && newest.After(w.prevMax) {
			return hansard.Errorf(hansard.EINVARIANT,
				"sitemap %s is newer (%s) than the sitemap before it (%s); index is not ordered newest-first",
				url, newest.Format(time.RFC3339), w.prevMax.Format(time.RFC3339))
		}
		w.prevMax = newest
	}

	if w.mode == DiscoverIncremental && !w.cutoff.IsZero() && !newest.IsZero() && newest.Before(w.cutoff) {
		d.logger().Info("stopping at sitemap older than checkpoint", "url", url, "newest", newest, "cutoff", w.cutoff)
		w.stopped = true
		return nil
	}

	for _, e := range sm.URLs {
		if e.LastModified.IsZero() {
			d.logger().Warn("skipping entry without lastmod", "url", e.Loc)
			continue
		}
		if !d.Filter.Match(e.Loc) {
			continue
		}

		// The ledger keeps the URL it first tracked for a key; the smallest
		// URL only matters for a key seen for the first time.
		key := hansard.DocumentKey(e.Loc)
		c, ok := w.candidates[key]
		if !ok {
			c = candidate{url: e.Loc, lastModified: e.LastModified}
		} else {
			if e.Loc < c.url {
				c.url = e.Loc
			}
			if e.LastModified.After(c.lastModified) {
				c.lastModified = e.LastModified
			}
		}
		w.candidates[key] = c

		if e.LastModified.After(w.maxSeen) {
			w.maxSeen = e.LastModified
		}
	}
	return nil
}

func (d *Differ) logger() *slog.Logger {
	return loggerOrDiscard(d.Logger)
}

func loggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return l
}
