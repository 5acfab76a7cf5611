package mock

import (
	"context"

	"github.com/fwojciec/hansard"
)

var _ hansard.SitemapService = (*SitemapService)(nil)

// SitemapService is a mock implementation of hansard.SitemapService.
type SitemapService struct {
	ReadSitemapFn func(ctx context.Context, url string) (*hansard.Sitemap, error)
}

func (s *SitemapService) ReadSitemap(ctx context.Context, url string) (*hansard.Sitemap, error) {
	return s.ReadSitemapFn(ctx, url)
}
