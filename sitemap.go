package hansard

import (
	"context"
	"regexp"
	"time"
)

// SitemapEntry is one <sitemap> or <url> element of a sitemap document.
type SitemapEntry struct {
	Loc          string
	LastModified time.Time
}

// Sitemap is a parsed sitemap document. An index lists sub-sitemaps in
// Sitemaps; a leaf lists documents in URLs.
type Sitemap struct {
	Sitemaps []SitemapEntry
	URLs     []SitemapEntry
}

// IsIndex reports whether the sitemap lists other sitemaps.
func (s *Sitemap) IsIndex() bool {
	return len(s.Sitemaps) > 0
}

// MaxLastModified returns the newest lastmod among the leaf entries.
func (s *Sitemap) MaxLastModified() time.Time {
	var newest time.Time
	for _, e := range s.URLs {
		if e.LastModified.After(newest) {
			newest = e.LastModified
		}
	}
	return newest
}

// SitemapService reads sitemap documents.
type SitemapService interface {
	// ReadSitemap fetches and parses one sitemap or sitemap index.
	// Transient failures are retried by the implementation; the returned
	// error means the sitemap could not be read at all.
	ReadSitemap(ctx context.Context, url string) (*Sitemap, error)
}

// URLFilter specifies patterns for including/excluding URLs.
type URLFilter struct {
	// Include patterns - if set, only URLs matching at least one pattern are included.
	Include []*regexp.Regexp

	// Exclude patterns - URLs matching any pattern are excluded.
	// Exclude is applied after Include.
	Exclude []*regexp.Regexp
}

// Match returns true if the URL passes the filter.
// If the filter is nil, all URLs pass.
func (f *URLFilter) Match(url string) bool {
	if f == nil {
		return true
	}

	if len(f.Include) > 0 {
		matched := false
		for _, re := range f.Include {
			if re.MatchString(url) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}

	for _, re := range f.Exclude {
		if re.MatchString(url) {
			return false
		}
	}

	return true
}
