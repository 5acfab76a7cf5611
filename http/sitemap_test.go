package http_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/fwojciec/hansard"
	hansardhttp "github.com/fwojciec/hansard/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSitemapService_ReadSitemap_Index(t *testing.T) {
	t.Parallel()

	sitemapIndex := `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>{{BASE}}/sitemap-2024.xml</loc><lastmod>2024-06-01</lastmod></sitemap>
  <sitemap><loc>{{BASE}}/sitemap-2023.xml</loc></sitemap>
</sitemapindex>`

	srv := newTestServer(t, map[string]string{
		"/sitemapindex.xml": sitemapIndex,
	})
	defer srv.Close()

	svc := hansardhttp.NewSitemapService(newTestClient())
	sm, err := svc.ReadSitemap(context.Background(), srv.URL+"/sitemapindex.xml")

	require.NoError(t, err)
	assert.True(t, sm.IsIndex())
	assert.Empty(t, sm.URLs)
	require.Len(t, sm.Sitemaps, 2)
	assert.Equal(t, srv.URL+"/sitemap-2024.xml", sm.Sitemaps[0].Loc)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), sm.Sitemaps[0].LastModified)
	assert.True(t, sm.Sitemaps[1].LastModified.IsZero())
}

func TestSitemapService_ReadSitemap_URLSet(t *testing.T) {
	t.Parallel()

	sitemapXML := `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <url><loc>{{BASE}}/a</loc><lastmod>2024-01-02T03:04:05Z</lastmod></url>
  <url><loc> {{BASE}}/b </loc><lastmod>2024-01-02T03:04+10:00</lastmod></url>
  <url><loc>{{BASE}}/c</loc><lastmod>2024-01-02T03:04:05.123456+00:00</lastmod></url>
  <url><lastmod>2024-01-02</lastmod></url>
</urlset>`

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": sitemapXML,
	})
	defer srv.Close()

	svc := hansardhttp.NewSitemapService(newTestClient())
	sm, err := svc.ReadSitemap(context.Background(), srv.URL+"/sitemap.xml")

	require.NoError(t, err)
	assert.False(t, sm.IsIndex())
	require.Len(t, sm.URLs, 3)
	assert.Equal(t, srv.URL+"/a", sm.URLs[0].Loc)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), sm.URLs[0].LastModified)
	assert.Equal(t, srv.URL+"/b", sm.URLs[1].Loc)
	assert.Equal(t, time.Date(2024, 1, 1, 17, 4, 0, 0, time.UTC), sm.URLs[1].LastModified)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), sm.URLs[2].LastModified)
	assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 123456000, time.UTC), sm.MaxLastModified())
}

func TestParseSitemap(t *testing.T) {
	t.Parallel()

	t.Run("matches prefixed elements", func(t *testing.T) {
		t.Parallel()

		sm, err := hansardhttp.ParseSitemap([]byte(`<?xml version="1.0"?>
<sm:urlset xmlns:sm="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sm:url><sm:loc>https://example.com/a</sm:loc><sm:lastmod>2024-01-01</sm:lastmod></sm:url>
</sm:urlset>`))
		require.NoError(t, err)
		require.Len(t, sm.URLs, 1)
		assert.Equal(t, "https://example.com/a", sm.URLs[0].Loc)
	})

	t.Run("leaves unreadable lastmod zero", func(t *testing.T) {
		t.Parallel()

		sm, err := hansardhttp.ParseSitemap([]byte(`<urlset><url><loc>https://example.com/a</loc><lastmod>yesterday</lastmod></url></urlset>`))
		require.NoError(t, err)
		require.Len(t, sm.URLs, 1)
		assert.True(t, sm.URLs[0].LastModified.IsZero())
	})

	t.Run("returns EPARSE for non-XML body", func(t *testing.T) {
		t.Parallel()

		_, err := hansardhttp.ParseSitemap([]byte(`this is not a sitemap`))
		assert.Equal(t, hansard.EPARSE, hansard.ErrorCode(err))
	})

	t.Run("returns EPARSE for unexpected root", func(t *testing.T) {
		t.Parallel()

		_, err := hansardhttp.ParseSitemap([]byte(`<html><body/></html>`))
		assert.Equal(t, hansard.EPARSE, hansard.ErrorCode(err))
	})
}

func TestSitemapService_ReadSitemap_NotFound(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{})
	defer srv.Close()

	svc := hansardhttp.NewSitemapService(newTestClient())
	_, err := svc.ReadSitemap(context.Background(), srv.URL+"/sitemap.xml")

	assert.Equal(t, hansard.ENOTFOUND, hansard.ErrorCode(err))
}

func TestSitemapService_ReadSitemap_ContextCancellation(t *testing.T) {
	t.Parallel()

	srv := newTestServer(t, map[string]string{
		"/sitemap.xml": `<urlset/>`,
	})
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // Cancel immediately

	svc := hansardhttp.NewSitemapService(newTestClient())
	_, err := svc.ReadSitemap(ctx, srv.URL+"/sitemap.xml")

	require.Error(t, err)
	require.ErrorIs(t, err, context.Canceled)
}

// newTestClient returns a client with millisecond retry delays.
func newTestClient() *hansardhttp.Client {
	return hansardhttp.NewClient(hansardhttp.Config{
		UserAgent: "hansard-test",
		Retry: hansardhttp.RetryPolicy{
			MaxRetries: 2,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}, nil)
}

// newTestServer creates a test HTTP server with the given path->content mapping.
// Content strings may contain {{BASE}} which is replaced with the server URL.
func newTestServer(t *testing.T, content map[string]string) *httptest.Server {
	t.Helper()

	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := content[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		body = strings.ReplaceAll(body, "{{BASE}}", srv.URL)

		if r.URL.Path == "/robots.txt" {
			w.Header().Set("Content-Type", "text/plain")
		} else {
			w.Header().Set("Content-Type", "application/xml")
		}
		_, _ = w.Write([]byte(body))
	}))

	return srv
}
