package http

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/fwojciec/sweep"
)

// Ensure MementoAdapter implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*MementoAdapter)(nil)

// MementoAdapter queries the Memento TimeTravel aggregator, which federates
// many web archives behind one TimeMap. Useful when a page never made it into
// Wayback or Common Crawl but a national or institutional archive holds it.
type MementoAdapter struct {
	client *http.Client

	// BaseURL overrides the aggregator endpoint, for tests.
	BaseURL string
}

const defaultMementoBase = "http://timetravel.mementoweb.org/timemap/link/"

// NewMementoAdapter creates a MementoAdapter.
func NewMementoAdapter(client *http.Client) *MementoAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &MementoAdapter{client: client, BaseURL: defaultMementoBase}
}

// ID returns the adapter identifier.
func (a *MementoAdapter) ID() string { return "memento" }

// Discover fetches the TimeMap for the target URL (or the domain's root) and
// emits one archived record per memento. TimeMaps use RFC 6690 link format,
// one link per line.
func (a *MementoAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	pageURL := target.URL
	if pageURL == "" {
		pageURL = "https://" + target.Domain + "/"
	}

	body, err := get(ctx, a.client, a.BaseURL+pageURL, nil)
	if err != nil {
		if sweep.ErrorCode(err) == sweep.ENOTFOUND {
			return nil
		}
		return err
	}

	emitted := 0
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimSuffix(scanner.Text(), ","))
		archiveURL, attrs := parseLinkLine(line)
		if archiveURL == "" || !strings.Contains(attrs[`rel`], "memento") {
			continue
		}

		rec := sweep.URLRecord{
			URL:     pageURL,
			Domain:  target.Domain,
			Source:  a.ID(),
			LastMod: attrs["datetime"],
		}
		rec = rec.WithArchive(archiveURL, "memento")
		if err := emit(rec); err != nil {
			return err
		}
		emitted++
		if opts.Limit > 0 && emitted >= opts.Limit {
			break
		}
	}
	return nil
}

// parseLinkLine splits `<url>; key="value"; ...` into the URL and its
// attributes. Returns "" when the line is not a link entry.
func parseLinkLine(line string) (string, map[string]string) {
	if !strings.HasPrefix(line, "<") {
		return "", nil
	}
	end := strings.Index(line, ">")
	if end == -1 {
		return "", nil
	}
	url := line[1:end]

	attrs := make(map[string]string)
	for _, part := range strings.Split(line[end+1:], ";") {
		key, value, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		attrs[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
	}
	return url, attrs
}
