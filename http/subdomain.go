package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sweep"
)

// Subdomain enumeration adapters. Each one wraps a single public service and
// emits one record per discovered host. Hosts outside the target domain are
// dropped regardless of AllowExternal since a subdomain source yielding
// foreign hosts is returning garbage.

// Ensure the adapters implement sweep.SourceAdapter.
var (
	_ sweep.SourceAdapter = (*CrtShAdapter)(nil)
	_ sweep.SourceAdapter = (*HackerTargetAdapter)(nil)
	_ sweep.SourceAdapter = (*AnubisAdapter)(nil)
	_ sweep.SourceAdapter = (*RapidDNSAdapter)(nil)
)

// subdomainEmitter dedupes hosts across a single adapter call and converts
// them to records.
type subdomainEmitter struct {
	source  string
	domain  string
	limit   int
	seen    map[string]bool
	emitted int
	emit    sweep.EmitFunc
}

func newSubdomainEmitter(source, domain string, opts sweep.DiscoverOptions, emit sweep.EmitFunc) *subdomainEmitter {
	return &subdomainEmitter{
		source: source,
		domain: domain,
		limit:  opts.Limit,
		seen:   make(map[string]bool),
		emit:   emit,
	}
}

func (e *subdomainEmitter) full() bool {
	return e.limit > 0 && e.emitted >= e.limit
}

// send normalizes one hostname and emits it. Wildcard prefixes from CT log
// entries are stripped.
func (e *subdomainEmitter) send(host string) error {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimPrefix(host, "*.")
	if host == "" || e.seen[host] || e.full() {
		return nil
	}
	if !sweep.HostBelongs(host, e.domain) {
		return nil
	}
	e.seen[host] = true

	sub := strings.TrimSuffix(host, e.domain)
	sub = strings.TrimSuffix(sub, ".")
	if err := e.emit(sweep.URLRecord{
		URL:       "https://" + host,
		Domain:    e.domain,
		Source:    e.source,
		Subdomain: sub,
	}); err != nil {
		return err
	}
	e.emitted++
	return nil
}

// CrtShAdapter queries the crt.sh certificate-transparency log.
type CrtShAdapter struct {
	client *http.Client

	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// NewCrtShAdapter creates a CrtShAdapter.
func NewCrtShAdapter(client *http.Client) *CrtShAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &CrtShAdapter{client: client, BaseURL: "https://crt.sh"}
}

// ID returns the adapter identifier.
func (a *CrtShAdapter) ID() string { return "crt.sh" }

// Discover queries crt.sh for certificates covering the target domain and
// emits every distinct covered hostname. name_value packs multiple hosts
// separated by newlines.
func (a *CrtShAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "crt.sh adapter requires a target domain")
	}

	body, err := get(ctx, a.client, a.BaseURL+"/?q=%25."+url.QueryEscape(target.Domain)+"&output=json", nil)
	if err != nil {
		return err
	}

	var entries []struct {
		NameValue  string `json:"name_value"`
		CommonName string `json:"common_name"`
	}
	if err := json.Unmarshal(body, &entries); err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "decoding crt.sh response")
	}

	sink := newSubdomainEmitter(a.ID(), target.Domain, opts, emit)
	for _, entry := range entries {
		for _, host := range strings.Split(entry.NameValue, "\n") {
			if err := sink.send(host); err != nil {
				return err
			}
		}
		if err := sink.send(entry.CommonName); err != nil {
			return err
		}
		if sink.full() {
			break
		}
	}
	return nil
}

// HackerTargetAdapter queries the HackerTarget host-search API.
type HackerTargetAdapter struct {
	client *http.Client

	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// NewHackerTargetAdapter creates a HackerTargetAdapter.
func NewHackerTargetAdapter(client *http.Client) *HackerTargetAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &HackerTargetAdapter{client: client, BaseURL: "https://api.hackertarget.com"}
}

// ID returns the adapter identifier.
func (a *HackerTargetAdapter) ID() string { return "hackertarget" }

// Discover queries the host-search endpoint, which returns "host,ip" CSV
// lines. The API signals quota exhaustion in the body with HTTP 200, which is
// mapped to a permission error so the runtime disables the source.
func (a *HackerTargetAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "hackertarget adapter requires a target domain")
	}

	body, err := get(ctx, a.client, a.BaseURL+"/hostsearch/?q="+url.QueryEscape(target.Domain), nil)
	if err != nil {
		return err
	}
	text := string(body)
	if strings.Contains(text, "API count exceeded") || strings.Contains(text, "API key required") {
		return sweep.Errorf(sweep.EPERMISSION, "hackertarget: %s", strings.TrimSpace(text))
	}
	if strings.HasPrefix(text, "error") {
		return sweep.Errorf(sweep.EUNAVAILABLE, "hackertarget: %s", strings.TrimSpace(text))
	}

	sink := newSubdomainEmitter(a.ID(), target.Domain, opts, emit)
	for _, line := range strings.Split(text, "\n") {
		host, _, _ := strings.Cut(strings.TrimSpace(line), ",")
		if err := sink.send(host); err != nil {
			return err
		}
		if sink.full() {
			break
		}
	}
	return nil
}

// AnubisAdapter queries the Anubis aggregated subdomain database.
type AnubisAdapter struct {
	client *http.Client

	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// NewAnubisAdapter creates an AnubisAdapter.
func NewAnubisAdapter(client *http.Client) *AnubisAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &AnubisAdapter{client: client, BaseURL: "https://jonlu.ca/anubis"}
}

// ID returns the adapter identifier.
func (a *AnubisAdapter) ID() string { return "anubis" }

// Discover queries the Anubis JSON endpoint, a flat array of hostnames
// aggregated from multiple passive sources.
func (a *AnubisAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "anubis adapter requires a target domain")
	}

	body, err := get(ctx, a.client, a.BaseURL+"/subdomains/"+url.PathEscape(target.Domain), nil)
	if err != nil {
		if sweep.ErrorCode(err) == sweep.ENOTFOUND {
			// Unknown domain, nothing indexed.
			return nil
		}
		return err
	}

	var hosts []string
	if err := json.Unmarshal(body, &hosts); err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "decoding anubis response")
	}

	sink := newSubdomainEmitter(a.ID(), target.Domain, opts, emit)
	for _, host := range hosts {
		if err := sink.send(host); err != nil {
			return err
		}
		if sink.full() {
			break
		}
	}
	return nil
}

// RapidDNSAdapter scrapes the RapidDNS subdomain report, which has no API.
type RapidDNSAdapter struct {
	client *http.Client

	// BaseURL overrides the service endpoint, for tests.
	BaseURL string
}

// NewRapidDNSAdapter creates a RapidDNSAdapter.
func NewRapidDNSAdapter(client *http.Client) *RapidDNSAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &RapidDNSAdapter{client: client, BaseURL: "https://rapiddns.io"}
}

// ID returns the adapter identifier.
func (a *RapidDNSAdapter) ID() string { return "rapiddns" }

// Discover scrapes the result table; the first cell of each row is a
// hostname.
func (a *RapidDNSAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "rapiddns adapter requires a target domain")
	}

	body, err := get(ctx, a.client, a.BaseURL+"/subdomain/"+url.PathEscape(target.Domain)+"?full=1", nil)
	if err != nil {
		return err
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(string(body)))
	if err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "parsing rapiddns page")
	}

	sink := newSubdomainEmitter(a.ID(), target.Domain, opts, emit)
	var sendErr error
	doc.Find("table tbody tr").EachWithBreak(func(_ int, row *goquery.Selection) bool {
		host := strings.TrimSpace(row.Find("td").First().Text())
		if err := sink.send(host); err != nil {
			sendErr = err
			return false
		}
		return !sink.full()
	})
	return sendErr
}
