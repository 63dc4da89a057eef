package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/fwojciec/sweep"
)

// Hosted site-mapping API adapters. The service exposes two shapes: a fast
// single-call map endpoint returning known links for a site, and a crawl job
// that is submitted and then polled until it completes.

// Ensure the adapters implement sweep.SourceAdapter.
var (
	_ sweep.SourceAdapter = (*FastMapAdapter)(nil)
	_ sweep.SourceAdapter = (*DeepCrawlAdapter)(nil)
)

// MapperClient calls the hosted mapping service.
type MapperClient struct {
	client  *http.Client
	BaseURL string
	APIKey  string
}

// NewMapperClient creates a MapperClient for the service at baseURL.
func NewMapperClient(client *http.Client, baseURL, apiKey string) *MapperClient {
	if client == nil {
		client = NewClient(0)
	}
	return &MapperClient{client: client, BaseURL: baseURL, APIKey: apiKey}
}

// post sends a JSON body and decodes the JSON response into out.
func (c *MapperClient) post(ctx context.Context, path string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return sweep.WrapError(sweep.EINTERNAL, err, "encoding request")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+path, bytes.NewReader(payload))
	if err != nil {
		return sweep.Errorf(sweep.EINVALID, "creating request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return c.do(req, out)
}

// getJSON fetches path and decodes the JSON response into out.
func (c *MapperClient) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return sweep.Errorf(sweep.EINVALID, "creating request: %v", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.APIKey)
	}
	return c.do(req, out)
}

func (c *MapperClient) do(req *http.Request, out any) error {
	resp, err := c.client.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return sweep.WrapError(sweep.ECANCELED, req.Context().Err(), "calling %s", req.URL)
		}
		return sweep.WrapError(sweep.EUNAVAILABLE, err, "calling %s", req.URL)
	}
	defer resp.Body.Close()
	if err := StatusError(resp.StatusCode, req.URL.String()); err != nil {
		return err
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return sweep.WrapError(sweep.EUNAVAILABLE, err, "reading %s", req.URL)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "decoding %s", req.URL)
	}
	return nil
}

// FastMapAdapter wraps the single-call map endpoint: one request returns the
// service's known link set for a site.
type FastMapAdapter struct {
	Client *MapperClient
}

// ID returns the adapter identifier.
func (a *FastMapAdapter) ID() string { return "fastmap" }

// Discover submits the target to /v1/map and emits every returned link.
func (a *FastMapAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	root := target.URL
	if root == "" {
		root = "https://" + target.Domain
	}

	in := map[string]any{"url": root}
	if opts.Limit > 0 {
		in["limit"] = opts.Limit
	}
	var out struct {
		Success bool     `json:"success"`
		Links   []string `json:"links"`
	}
	if err := a.Client.post(ctx, "/v1/map", in, &out); err != nil {
		return err
	}
	if !out.Success {
		return sweep.Errorf(sweep.EUNAVAILABLE, "map request was not accepted")
	}

	for _, link := range out.Links {
		rec := sweep.URLRecord{URL: link, Domain: target.Domain, Source: a.ID()}
		if !opts.AllowExternal && target.Domain != "" && !rec.BelongsTo(target.Domain) {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// DeepCrawlAdapter wraps the crawl-job endpoint: submit, then poll until the
// job completes, fails, or the context expires.
type DeepCrawlAdapter struct {
	Client *MapperClient

	// PollInterval between status checks, default 3s.
	PollInterval time.Duration
}

// ID returns the adapter identifier.
func (a *DeepCrawlAdapter) ID() string { return "deepcrawl" }

type crawlStatus struct {
	Status string `json:"status"`
	Data   []struct {
		URL      string `json:"url"`
		Title    string `json:"title"`
		Status   int    `json:"statusCode"`
		MIMEType string `json:"contentType"`
	} `json:"data"`
}

// Discover submits a crawl job for the target and polls it, emitting records
// once the job reports completed. Pages already emitted in an earlier poll
// are not re-emitted.
func (a *DeepCrawlAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	root := target.URL
	if root == "" {
		root = "https://" + target.Domain
	}

	in := map[string]any{"url": root}
	if opts.Limit > 0 {
		in["limit"] = opts.Limit
	}
	var submitted struct {
		ID string `json:"id"`
	}
	if err := a.Client.post(ctx, "/v1/crawl", in, &submitted); err != nil {
		return err
	}
	if submitted.ID == "" {
		return sweep.Errorf(sweep.EUNAVAILABLE, "crawl submission returned no job id")
	}

	interval := a.PollInterval
	if interval <= 0 {
		interval = 3 * time.Second
	}

	seen := make(map[string]bool)
	for {
		var status crawlStatus
		if err := a.Client.getJSON(ctx, "/v1/crawl/"+submitted.ID, &status); err != nil {
			return err
		}

		for _, page := range status.Data {
			if page.URL == "" || seen[page.URL] {
				continue
			}
			seen[page.URL] = true
			rec := sweep.URLRecord{
				URL:         page.URL,
				Domain:      target.Domain,
				Source:      a.ID(),
				Title:       page.Title,
				Status:      page.Status,
				ContentType: page.MIMEType,
			}
			if !opts.AllowExternal && target.Domain != "" && !rec.BelongsTo(target.Domain) {
				continue
			}
			if err := emit(rec); err != nil {
				return err
			}
		}

		switch status.Status {
		case "completed":
			return nil
		case "failed", "cancelled":
			return sweep.Errorf(sweep.EUNAVAILABLE, "crawl job %s ended with status %q", submitted.ID, status.Status)
		}

		select {
		case <-ctx.Done():
			return sweep.WrapError(sweep.ECANCELED, ctx.Err(), "waiting for crawl job %s", submitted.ID)
		case <-time.After(interval):
		}
	}
}
