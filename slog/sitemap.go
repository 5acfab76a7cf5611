// Package slog provides logging decorators for hansard services using log/slog.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/hansard"
)

// Ensure LoggingSitemapService implements hansard.SitemapService.
var _ hansard.SitemapService = (*LoggingSitemapService)(nil)

// LoggingSitemapService wraps a SitemapService with debug logging.
type LoggingSitemapService struct {
	next   hansard.SitemapService
	logger *slog.Logger
}

// NewLoggingSitemapService creates a new LoggingSitemapService.
func NewLoggingSitemapService(next hansard.SitemapService, logger *slog.Logger) *LoggingSitemapService {
	return &LoggingSitemapService{next: next, logger: logger}
}

// ReadSitemap delegates to the wrapped service and logs the operation.
func (s *LoggingSitemapService) ReadSitemap(ctx context.Context, url string) (sitemap *hansard.Sitemap, err error) {
	defer func(begin time.Time) {
		var sitemaps, urls int
		if sitemap != nil {
			sitemaps, urls = len(sitemap.Sitemaps), len(sitemap.URLs)
		}
		s.logger.Info("read sitemap",
			"url", url,
			"sitemaps", sitemaps,
			"urls", urls,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.ReadSitemap(ctx, url)
}
