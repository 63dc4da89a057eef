package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fwojciec/sweep"
)

// Ensure WaybackAdapter implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*WaybackAdapter)(nil)

// WaybackAdapter enumerates a domain's URLs from the Internet Archive CDX
// index. Every record it emits is annotated with its archive snapshot URL so
// dead pages remain reachable.
type WaybackAdapter struct {
	client *http.Client

	// BaseURL overrides the CDX endpoint, for tests.
	BaseURL string
}

const defaultWaybackCDX = "https://web.archive.org/cdx/search/cdx"

// NewWaybackAdapter creates a WaybackAdapter.
func NewWaybackAdapter(client *http.Client) *WaybackAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &WaybackAdapter{client: client, BaseURL: defaultWaybackCDX}
}

// ID returns the adapter identifier.
func (a *WaybackAdapter) ID() string { return "wayback" }

// Discover queries the CDX API collapsed by urlkey so each URL appears once
// with its most recent capture. Filetype filters become a mimetype filter on
// the index side.
func (a *WaybackAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	pattern := target.URL
	if pattern == "" {
		pattern = target.Domain + "/*"
	}

	params := url.Values{}
	params.Set("url", pattern)
	params.Set("output", "json")
	params.Set("collapse", "urlkey")
	params.Set("fl", "timestamp,original,mimetype,statuscode")
	if opts.Limit > 0 {
		params.Set("limit", strconv.Itoa(opts.Limit))
	}
	if len(opts.Filetypes) == 1 {
		if mime := extensionMIME(opts.Filetypes[0]); mime != "" {
			params.Set("filter", "mimetype:"+mime)
		}
	}

	body, err := get(ctx, a.client, a.BaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return err
	}

	// The JSON output is an array of arrays; row zero is the field header.
	var rows [][]string
	if err := json.Unmarshal(body, &rows); err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "decoding CDX response")
	}

	for i, row := range rows {
		if i == 0 || len(row) < 4 {
			continue
		}
		timestamp, original, mimetype, statuscode := row[0], row[1], row[2], row[3]
		rec := sweep.URLRecord{
			URL:         original,
			Domain:      target.Domain,
			Source:      a.ID(),
			ContentType: mimetype,
		}
		if status, err := strconv.Atoi(statuscode); err == nil {
			rec.Status = status
		}
		if !opts.AllowExternal && target.Domain != "" && !rec.BelongsTo(target.Domain) {
			continue
		}
		rec = rec.WithArchive("https://web.archive.org/web/"+timestamp+"/"+original, "wayback")
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

// extensionMIME maps common document extensions to the MIME type archive
// indexes filter on.
func extensionMIME(ext string) string {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "pdf":
		return "application/pdf"
	case "doc":
		return "application/msword"
	case "docx":
		return "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
	case "xls":
		return "application/vnd.ms-excel"
	case "xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case "ppt":
		return "application/vnd.ms-powerpoint"
	case "pptx":
		return "application/vnd.openxmlformats-officedocument.presentationml.presentation"
	case "txt":
		return "text/plain"
	case "html", "htm":
		return "text/html"
	case "xml":
		return "text/xml"
	case "csv":
		return "text/csv"
	default:
		return ""
	}
}
