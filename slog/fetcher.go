package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/hansard"
)

// Ensure LoggingFetcher implements hansard.Fetcher.
var _ hansard.Fetcher = (*LoggingFetcher)(nil)

// LoggingFetcher wraps a Fetcher with debug logging.
type LoggingFetcher struct {
	next   hansard.Fetcher
	logger *slog.Logger
}

// NewLoggingFetcher creates a new LoggingFetcher.
func NewLoggingFetcher(next hansard.Fetcher, logger *slog.Logger) *LoggingFetcher {
	return &LoggingFetcher{next: next, logger: logger}
}

// Fetch logs the URL being fetched and delegates to the wrapped fetcher.
func (f *LoggingFetcher) Fetch(ctx context.Context, url string) (body []byte, err error) {
	defer func(begin time.Time) {
		f.logger.Info("fetch",
			"url", url,
			"bytes", len(body),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return f.next.Fetch(ctx, url)
}

// Ensure LoggingRosterSource implements hansard.RosterSource.
var _ hansard.RosterSource = (*LoggingRosterSource)(nil)

// LoggingRosterSource wraps a RosterSource with debug logging.
type LoggingRosterSource struct {
	next   hansard.RosterSource
	logger *slog.Logger
}

// NewLoggingRosterSource creates a new LoggingRosterSource.
func NewLoggingRosterSource(next hansard.RosterSource, logger *slog.Logger) *LoggingRosterSource {
	return &LoggingRosterSource{next: next, logger: logger}
}

// FetchSpeakers delegates to the wrapped source and logs the operation.
func (s *LoggingRosterSource) FetchSpeakers(ctx context.Context) (speakers []*hansard.Speaker, err error) {
	defer func(begin time.Time) {
		s.logger.Info("fetch roster",
			"count", len(speakers),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.FetchSpeakers(ctx)
}
