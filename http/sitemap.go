package http

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/beevik/etree"
	"github.com/fwojciec/hansard"
)

// Ensure SitemapService implements hansard.SitemapService.
var _ hansard.SitemapService = (*SitemapService)(nil)

// lastmodLayouts are the W3C datetime variants accepted in <lastmod>.
var lastmodLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04Z07:00",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// SitemapService reads sitemap documents via HTTP.
type SitemapService struct {
	client *Client
}

// NewSitemapService creates a new SitemapService using client.
func NewSitemapService(client *Client) *SitemapService {
	return &SitemapService{client: client}
}

// ReadSitemap fetches and parses one <sitemapindex> or <urlset> document.
// Element names are matched regardless of namespace. Entries without a <loc>
// are ignored; an unreadable <lastmod> leaves LastModified zero.
func (s *SitemapService) ReadSitemap(ctx context.Context, url string) (*hansard.Sitemap, error) {
	body, err := s.client.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	return ParseSitemap(body)
}

// ParseSitemap parses a sitemap document.
func ParseSitemap(data []byte) (*hansard.Sitemap, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(data); err != nil {
		return nil, hansard.Errorf(hansard.EPARSE, "parsing sitemap XML: %v", err)
	}

	root := doc.Root()
	if root == nil {
		return nil, hansard.Errorf(hansard.EPARSE, "empty sitemap XML")
	}

	sitemap := &hansard.Sitemap{
		Sitemaps: []hansard.SitemapEntry{},
		URLs:     []hansard.SitemapEntry{},
	}
	switch root.Tag {
	case "sitemapindex":
		sitemap.Sitemaps = parseEntries(root, "sitemap")
	case "urlset":
		sitemap.URLs = parseEntries(root, "url")
	default:
		return nil, hansard.Errorf(hansard.EPARSE, "unexpected sitemap root element <%s>", root.Tag)
	}
	return sitemap, nil
}

func parseEntries(root *etree.Element, tag string) []hansard.SitemapEntry {
	entries := []hansard.SitemapEntry{}
	for _, el := range root.SelectElements(tag) {
		loc := el.SelectElement("loc")
		if loc == nil {
			continue
		}
		u := strings.TrimSpace(loc.Text())
		if u == "" {
			continue
		}

		entry := hansard.SitemapEntry{Loc: u}
		if lm := el.SelectElement("lastmod"); lm != nil {
			if t, err := parseLastmod(lm.Text()); err == nil {
				entry.LastModified = t
			}
		}
		entries = append(entries, entry)
	}
	return entries
}

func parseLastmod(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	for _, layout := range lastmodLayouts {
		if t, err := time.Parse(layout, v); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized lastmod %q", v)
}
