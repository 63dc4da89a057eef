package http_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fwojciec/sweep"
	sweephttp "github.com/fwojciec/sweep/http"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collect(t *testing.T, adapter sweep.SourceAdapter, target sweep.Target, opts sweep.DiscoverOptions) []sweep.URLRecord {
	t.Helper()
	var records []sweep.URLRecord
	err := adapter.Discover(context.Background(), target, opts, func(rec sweep.URLRecord) error {
		records = append(records, rec)
		return nil
	})
	require.NoError(t, err)
	return records
}

func gzipBytes(data []byte) []byte {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write(data)
	zw.Close()
	return buf.Bytes()
}

func TestSitemapAdapter_IndexRecursionAndGzip(t *testing.T) {
	t.Parallel()

	var srv *httptest.Server
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("User-agent: *\nSitemap: " + srv.URL + "/sitemap-index.xml\n"))
	})
	mux.HandleFunc("/sitemap-index.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<?xml version="1.0"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>` + srv.URL + `/pages.xml.gz</loc></sitemap>
</sitemapindex>`))
	})
	mux.HandleFunc("/pages.xml.gz", func(w http.ResponseWriter, r *http.Request) {
		w.Write(gzipBytes([]byte(`<?xml version="1.0"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9" xmlns:xhtml="http://www.w3.org/1999/xhtml">
  <url>
    <loc>https://example.com/about</loc>
    <priority>0.8</priority>
    <lastmod>2024-02-01</lastmod>
    <xhtml:link rel="alternate" hreflang="de" href="https://example.com/de/about"/>
  </url>
  <url><loc>https://example.com/contact</loc></url>
  <url><loc>https://elsewhere.org/external</loc></url>
</urlset>`)))
	})
	srv = httptest.NewServer(mux)
	defer srv.Close()

	adapter := sweephttp.NewSitemapAdapter(srv.Client())
	adapter.BaseURL = srv.URL

	records := collect(t, adapter, sweep.Target{Domain: "example.com"}, sweep.DiscoverOptions{})
	require.Len(t, records, 3)

	assert.Equal(t, "https://example.com/about", records[0].URL)
	assert.Equal(t, "0.8", records[0].Priority)
	assert.Equal(t, "2024-02-01", records[0].LastMod)
	assert.Equal(t, "sitemap", records[0].Source)
	assert.Equal(t, "https://example.com/de/about", records[1].URL)
	assert.Equal(t, "https://example.com/contact", records[2].URL)
}

func TestSitemapAdapter_NoSitemapIsZeroResults(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	adapter := sweephttp.NewSitemapAdapter(srv.Client())
	adapter.BaseURL = srv.URL

	records := collect(t, adapter, sweep.Target{Domain: "example.com"}, sweep.DiscoverOptions{})
	assert.Empty(t, records)
}

func TestSitemapAdapter_Limit(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", http.NotFound)
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<urlset>
  <url><loc>https://example.com/1</loc></url>
  <url><loc>https://example.com/2</loc></url>
  <url><loc>https://example.com/3</loc></url>
</urlset>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := sweephttp.NewSitemapAdapter(srv.Client())
	adapter.BaseURL = srv.URL

	records := collect(t, adapter, sweep.Target{Domain: "example.com"}, sweep.DiscoverOptions{Limit: 2})
	assert.Len(t, records, 2)
}

func TestRobotsAdapter_PathsAndSitemaps(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`User-agent: *
DISALLOW: /admin/*
Allow: /public/reports
Disallow: /
Disallow: *
Sitemap: https://example.com/sitemap.xml
# Disallow: /commented-out
`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	adapter := sweephttp.NewRobotsAdapter(srv.Client())
	adapter.BaseURL = srv.URL

	records := collect(t, adapter, sweep.Target{Domain: "example.com"}, sweep.DiscoverOptions{})
	require.Len(t, records, 3)

	assert.Equal(t, "https://example.com/sitemap.xml", records[0].URL)
	assert.Equal(t, srv.URL+"/admin/", records[1].URL)
	assert.Equal(t, srv.URL+"/public/reports", records[2].URL)
	for _, rec := range records {
		assert.Equal(t, "robots", rec.Source)
	}
}
