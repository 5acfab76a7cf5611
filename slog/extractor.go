package slog

import (
	"log/slog"
	"time"

	"github.com/fwojciec/hansard"
)

// Ensure LoggingExtractor implements hansard.Extractor.
var _ hansard.Extractor = (*LoggingExtractor)(nil)

// LoggingExtractor wraps an Extractor with debug logging. Override skips are
// logged with their reason.
type LoggingExtractor struct {
	next   hansard.Extractor
	logger *slog.Logger
}

// NewLoggingExtractor creates a new LoggingExtractor.
func NewLoggingExtractor(next hansard.Extractor, logger *slog.Logger) *LoggingExtractor {
	return &LoggingExtractor{next: next, logger: logger}
}

// Extract delegates to the wrapped extractor and logs the outcome.
func (e *LoggingExtractor) Extract(doc *hansard.Document, payload []byte) (ext *hansard.Extraction, err error) {
	defer func(begin time.Time) {
		attrs := []any{"url", doc.URL, "bytes", len(payload)}
		if ext != nil {
			if ext.Skip != "" {
				attrs = append(attrs, "skip", ext.Skip)
			}
			attrs = append(attrs,
				"debates", len(ext.Debates),
				"speeches", len(ext.Speeches),
				"discards", len(ext.Discards),
			)
		}
		attrs = append(attrs, "duration", time.Since(begin), "err", err)
		e.logger.Info("extract", attrs...)
	}(time.Now())
	return e.next.Extract(doc, payload)
}
