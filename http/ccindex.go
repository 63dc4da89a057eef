package http

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"sync"

	"github.com/fwojciec/sweep"
)

// Ensure CCIndex implements both capability surfaces.
var (
	_ sweep.ArchiveIndex  = (*CCIndex)(nil)
	_ sweep.SourceAdapter = (*CCIndexAdapter)(nil)
)

// CCIndex queries the Common Crawl URL index. Lookups return byte-addressable
// PageRefs into the crawl's WARC segments; the collection list is fetched
// once and cached for the life of the index.
type CCIndex struct {
	client *http.Client

	// BaseURL overrides the index host, for tests.
	BaseURL string

	mu          sync.Mutex
	collections []ccCollection
}

type ccCollection struct {
	ID     string `json:"id"`
	CDXAPI string `json:"cdx-api"`
}

const defaultCCIndexBase = "https://index.commoncrawl.org"

// NewCCIndex creates a CCIndex.
func NewCCIndex(client *http.Client) *CCIndex {
	if client == nil {
		client = NewClient(0)
	}
	return &CCIndex{client: client, BaseURL: defaultCCIndexBase}
}

// Lookup resolves q against the index. An empty q.Archive uses the latest
// crawl. Responses are NDJSON, one capture per line; offset and length arrive
// as decimal strings.
func (x *CCIndex) Lookup(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
	if q.URLPattern == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "archive lookup requires a URL pattern")
	}

	api, archive, err := x.cdxAPI(ctx, q.Archive)
	if err != nil {
		return nil, err
	}

	params := url.Values{}
	params.Set("url", q.URLPattern)
	params.Set("output", "json")
	if q.MIME != "" {
		params.Set("filter", "mime:"+q.MIME)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	body, err := get(ctx, x.client, api+"?"+params.Encode(), nil)
	if err != nil {
		if sweep.ErrorCode(err) == sweep.ENOTFOUND {
			// The index returns 404 when no captures match.
			return nil, nil
		}
		return nil, err
	}

	var refs []sweep.PageRef
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var row struct {
			URL       string `json:"url"`
			Timestamp string `json:"timestamp"`
			MIME      string `json:"mime"`
			Status    string `json:"status"`
			Filename  string `json:"filename"`
			Offset    string `json:"offset"`
			Length    string `json:"length"`
		}
		if err := json.Unmarshal(line, &row); err != nil {
			// One malformed line must not discard the rest of the page.
			continue
		}
		offset, err1 := strconv.ParseInt(row.Offset, 10, 64)
		length, err2 := strconv.ParseInt(row.Length, 10, 64)
		if err1 != nil || err2 != nil || length <= 0 {
			continue
		}
		ref := sweep.PageRef{
			URL:       row.URL,
			Archive:   archive,
			Filename:  row.Filename,
			Offset:    offset,
			Length:    length,
			MIME:      row.MIME,
			Timestamp: row.Timestamp,
		}
		if status, err := strconv.Atoi(row.Status); err == nil {
			ref.Status = status
		}
		refs = append(refs, ref)
	}
	return refs, nil
}

// cdxAPI resolves the CDX endpoint for an archive id, defaulting to the
// newest collection.
func (x *CCIndex) cdxAPI(ctx context.Context, archive string) (api, id string, err error) {
	x.mu.Lock()
	cached := x.collections
	x.mu.Unlock()

	if cached == nil {
		body, err := get(ctx, x.client, x.BaseURL+"/collinfo.json", nil)
		if err != nil {
			return "", "", err
		}
		var cols []ccCollection
		if err := json.Unmarshal(body, &cols); err != nil {
			return "", "", sweep.WrapError(sweep.EINVALID, err, "decoding collection list")
		}
		if len(cols) == 0 {
			return "", "", sweep.Errorf(sweep.EUNAVAILABLE, "collection list is empty")
		}
		x.mu.Lock()
		x.collections = cols
		cached = cols
		x.mu.Unlock()
	}

	if archive == "" {
		// collinfo.json lists newest first.
		return cached[0].CDXAPI, cached[0].ID, nil
	}
	for _, col := range cached {
		if col.ID == archive {
			return col.CDXAPI, col.ID, nil
		}
	}
	return "", "", sweep.Errorf(sweep.ENOTFOUND, "unknown archive collection %q", archive)
}

// CCIndexAdapter exposes the Common Crawl index as a discovery source:
// captures become URLRecords annotated with their archive provenance. MIME
// filtering supports the filetype pipeline.
type CCIndexAdapter struct {
	Index *CCIndex
}

// ID returns the adapter identifier.
func (a *CCIndexAdapter) ID() string { return "commoncrawl" }

// Discover looks up the target's URL pattern and emits one record per
// capture.
func (a *CCIndexAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	pattern := target.URL
	if pattern == "" {
		pattern = target.Domain + "/*"
	}

	q := sweep.ArchiveIndexQuery{URLPattern: pattern, Limit: opts.Limit}
	if len(opts.Filetypes) == 1 {
		q.MIME = extensionMIME(opts.Filetypes[0])
	}

	refs, err := a.Index.Lookup(ctx, q)
	if err != nil {
		return err
	}
	seen := make(map[string]bool)
	for _, ref := range refs {
		if seen[ref.URL] {
			continue
		}
		seen[ref.URL] = true
		rec := sweep.URLRecord{
			URL:         ref.URL,
			Domain:      target.Domain,
			Source:      a.ID(),
			ContentType: ref.MIME,
			Status:      ref.Status,
		}
		if !opts.AllowExternal && target.Domain != "" && !rec.BelongsTo(target.Domain) {
			continue
		}
		rec = rec.WithArchive(ref.Archive+"/"+ref.Filename, "commoncrawl")
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}
