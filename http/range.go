package http

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/warc"
)

// Ensure RangeFetcher implements sweep.RangeFetcher.
var _ sweep.RangeFetcher = (*RangeFetcher)(nil)

// RangeFetcher retrieves exact byte ranges of archived WARC files over HTTP.
// Common Crawl segments live on a public bucket; a ref's filename is relative
// to BaseURL.
type RangeFetcher struct {
	client *http.Client

	// BaseURL prefixes ref filenames, default the Common Crawl data bucket.
	BaseURL string
}

// DefaultArchiveBaseURL is the public Common Crawl data bucket.
const DefaultArchiveBaseURL = "https://data.commoncrawl.org/"

// NewRangeFetcher creates a RangeFetcher against baseURL; empty baseURL uses
// the Common Crawl bucket.
func NewRangeFetcher(client *http.Client, baseURL string) *RangeFetcher {
	if client == nil {
		client = NewClient(0)
	}
	if baseURL == "" {
		baseURL = DefaultArchiveBaseURL
	}
	return &RangeFetcher{client: client, BaseURL: baseURL}
}

// FetchRange returns the inflated bytes addressed by ref. The server must
// honor Range requests; a 200 response instead of 206 means it ignored the
// header and the result would be the whole multi-gigabyte file, so that is an
// error.
func (f *RangeFetcher) FetchRange(ctx context.Context, ref sweep.PageRef) ([]byte, error) {
	if err := ref.Validate(); err != nil {
		return nil, err
	}

	url := f.BaseURL + ref.Filename
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, sweep.Errorf(sweep.EINVALID, "creating range request for %s: %v", url, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Range", fmt.Sprintf("bytes=%d-%d", ref.Offset, ref.Offset+ref.Length-1))

	resp, err := f.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, sweep.WrapError(sweep.ECANCELED, ctx.Err(), "range fetch %s", url)
		}
		return nil, sweep.WrapError(sweep.EUNAVAILABLE, err, "range fetch %s", url)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusPartialContent {
		if err := StatusError(resp.StatusCode, url); err != nil {
			return nil, err
		}
		return nil, sweep.Errorf(sweep.EINVALID, "server ignored range header for %s (HTTP %d)", url, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, ref.Length))
	if err != nil {
		return nil, sweep.WrapError(sweep.EUNAVAILABLE, err, "reading range from %s", url)
	}
	return warc.Inflate(body)
}
