// Package http implements the network-facing discovery adapters: sitemap and
// robots.txt readers, certificate-transparency and subdomain APIs, archive
// indexes (Wayback CDX, Common Crawl), search-engine scrapers, and the plain
// and Range fetchers the pipelines share.
package http

import (
	"bytes"
	"compress/gzip"
	"context"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/sweep"
)

// DefaultTimeout is the default per-request timeout.
const DefaultTimeout = 30 * time.Second

// userAgent identifies the tool on outbound requests. API sources see the
// honest agent; scrape adapters override it per engine.
const userAgent = "sweep/1.0 (+https://github.com/fwojciec/sweep)"

// maxBodyBytes caps response bodies so a misbehaving source cannot exhaust
// memory. Archive payloads are fetched by exact Range and bypass this cap.
const maxBodyBytes = 32 << 20

// NewClient returns the pooled HTTP client shared by the adapters.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 8,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}

// Ensure Fetcher implements sweep.Fetcher at compile time.
var _ sweep.Fetcher = (*Fetcher)(nil)

// Fetcher is the plain GET implementation of sweep.Fetcher shared by API and
// archive adapters. It does not execute JavaScript.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a Fetcher. If client is nil a pooled default is used.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = NewClient(0)
	}
	return &Fetcher{client: client}
}

// Fetch returns the response body for a GET of url.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return get(ctx, f.client, url, nil)
}

// get performs one GET with the shared error mapping. Extra headers are
// applied on top of the default User-Agent.
func get(ctx context.Context, client *http.Client, url string, headers map[string]string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sweep.Errorf(sweep.EINVALID, "creating request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, sweep.WrapError(sweep.ECANCELED, ctx.Err(), "fetching %s", url)
		}
		return nil, sweep.WrapError(sweep.EUNAVAILABLE, err, "fetching %s", url)
	}
	defer resp.Body.Close()

	if err := StatusError(resp.StatusCode, url); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, sweep.WrapError(sweep.EUNAVAILABLE, err, "reading %s", url)
	}
	return body, nil
}

// StatusError maps an HTTP status to the error taxonomy: 401/403 disable a
// source, 429 is retryable as rate limiting, 5xx is retryable as transient,
// 404 means the resource is absent.
func StatusError(status int, url string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return sweep.Errorf(sweep.EPERMISSION, "HTTP %d for %s", status, url)
	case status == http.StatusTooManyRequests:
		return sweep.Errorf(sweep.ERATELIMITED, "HTTP %d for %s", status, url)
	case status == http.StatusNotFound || status == http.StatusGone:
		return sweep.Errorf(sweep.ENOTFOUND, "HTTP %d for %s", status, url)
	case status >= 500:
		return sweep.Errorf(sweep.EUNAVAILABLE, "HTTP %d for %s", status, url)
	default:
		return sweep.Errorf(sweep.EINVALID, "HTTP %d for %s", status, url)
	}
}

// maybeGunzip inflates body when it is a gzip stream. Sitemaps and index
// responses are frequently served pre-compressed with no Content-Encoding.
func maybeGunzip(body []byte) ([]byte, error) {
	if len(body) < 2 || body[0] != 0x1f || body[1] != 0x8b {
		return body, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return io.ReadAll(zr)
}
