// Package backlink discovers pages linking to a target domain. Host-level
// candidates come from a local web-graph index and optionally a paid
// provider; page-level evidence comes from archived captures fetched by byte
// range and parsed for anchors pointing at the target.
package backlink

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/goquery"
	"github.com/fwojciec/sweep/warc"
	"golang.org/x/sync/errgroup"
)

// DefaultTopDomains bounds how many source hosts are expanded at page level.
const DefaultTopDomains = 10

// DefaultRefsPerHost bounds how many archived captures are fetched per host.
const DefaultRefsPerHost = 20

// Core runs the backlink pipeline. Graph and Ranges are required for page
// expansion; Provider, Offline and Extractor are optional fallbacks.
type Core struct {
	Graph    sweep.GraphIndex
	Provider sweep.BacklinkProvider // paid domain list, nil to skip
	Index    sweep.ArchiveIndex     // live archive index
	Offline  sweep.ArchiveIndex     // pre-downloaded index, nil to skip
	Ranges   sweep.RangeFetcher

	// Extractor handles refs found by the offline index out of process;
	// when nil, offline refs go through the in-process Range path.
	Extractor sweep.LinkExtractorBinary

	// Concurrency bounds parallel archive work. Default 8.
	Concurrency int

	// RefsPerHost bounds captures fetched per source host. Default
	// DefaultRefsPerHost.
	RefsPerHost int
}

// Discover produces link records for the target with provider annotations.
// Individual step failures are logged and recovered; the pipeline only fails
// outright on an unusable target.
func (c *Core) Discover(ctx context.Context, target sweep.Target, opts sweep.BacklinkOptions) (*sweep.BacklinkResult, error) {
	domain, err := targetDomain(target)
	if err != nil {
		return nil, err
	}

	begin := time.Now()
	logs := sweep.NewLogStream()
	acc := newAccumulator()

	topDomains := opts.TopDomains
	if topDomains <= 0 {
		topDomains = DefaultTopDomains
	}

	hosts := c.hostCandidates(ctx, domain, topDomains, acc, logs)

	if opts.IncludeArchives && len(hosts) > 0 {
		c.expandHosts(ctx, domain, hosts, opts.Archive, acc, logs)
	}

	links := acc.links()
	if !opts.IncludeAnchorText {
		for i := range links {
			links[i].AnchorText = ""
		}
	}

	stats := acc.stats()
	summary := sweep.Summary{
		Total:   len(links),
		Stats:   stats,
		Elapsed: time.Since(begin),
	}
	for _, st := range stats {
		summary.SourcesUsed = append(summary.SourcesUsed, st.Source)
		if st.LastErr != "" {
			summary.Errors = append(summary.Errors, st.Source+": "+st.LastErr)
		}
	}

	return &sweep.BacklinkResult{
		Links:     links,
		Providers: acc.providers(),
		Elapsed:   time.Since(begin),
		Logs:      logs.Entries(),
		Summary:   summary,
	}, nil
}

// hostCandidates gathers host-level edges from the graph index and the paid
// provider, and returns the source hosts ranked for page-level expansion.
func (c *Core) hostCandidates(ctx context.Context, domain string, limit int, acc *accumulator, logs *sweep.LogStream) []string {
	var hosts []string
	seen := make(map[string]bool)

	if c.Graph != nil {
		edges, err := c.Graph.IncomingHosts(ctx, domain, limit)
		if err != nil {
			acc.fail(sweep.ProviderHostGraph, err)
			logs.Append(sweep.ProviderHostGraph, "graph lookup failed: "+err.Error(), 0)
		}
		for _, e := range edges {
			acc.add(sweep.LinkRecord{
				SourceURL: e.Host,
				TargetURL: domain,
				Weight:    e.Weight,
				Provider:  sweep.ProviderHostGraph,
			})
			if !seen[e.Host] {
				seen[e.Host] = true
				hosts = append(hosts, e.Host)
			}
		}
		logs.Append(sweep.ProviderHostGraph, "host edges", len(edges))
	}

	if c.Provider != nil {
		refs, err := c.Provider.RefDomains(ctx, domain, limit)
		if err != nil {
			acc.fail(sweep.ProviderMajestic, err)
			logs.Append(sweep.ProviderMajestic, "provider lookup failed: "+err.Error(), 0)
		}
		for _, r := range refs {
			acc.add(sweep.LinkRecord{
				SourceURL:    r.Domain,
				TargetURL:    domain,
				Weight:       r.Backlinks,
				Provider:     sweep.ProviderMajestic,
				TrustFlow:    r.TrustFlow,
				CitationFlow: r.CitationFlow,
			})
			if !seen[r.Domain] && len(hosts) < limit {
				seen[r.Domain] = true
				hosts = append(hosts, r.Domain)
			}
		}
		logs.Append(sweep.ProviderMajestic, "referring domains", len(refs))
	}

	if len(hosts) > limit {
		hosts = hosts[:limit]
	}
	return hosts
}

// expandHosts runs the per-host archive state machine in parallel: index
// lookup, Range fetches, anchor extraction. Live index misses fall back to
// the offline index when one is configured.
func (c *Core) expandHosts(ctx context.Context, domain string, hosts []string, archive string, acc *accumulator, logs *sweep.LogStream) {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 8
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, host := range hosts {
		host := host
		g.Go(func() error {
			c.expandHost(gctx, domain, host, archive, acc, logs)
			return nil
		})
	}
	_ = g.Wait()
}

func (c *Core) expandHost(ctx context.Context, domain, host, archive string, acc *accumulator, logs *sweep.LogStream) {
	limit := c.RefsPerHost
	if limit <= 0 {
		limit = DefaultRefsPerHost
	}
	query := sweep.ArchiveIndexQuery{
		URLPattern: host + "/*",
		Archive:    archive,
		MIME:       "text/html",
		Limit:      limit,
	}

	var refs []sweep.PageRef
	var err error
	if c.Index != nil {
		refs, err = c.Index.Lookup(ctx, query)
		if err != nil {
			acc.fail(sweep.ProviderCCWAT, err)
			logs.Append(sweep.ProviderCCWAT, host+" index lookup failed: "+err.Error(), 0)
		}
	}

	if len(refs) == 0 && c.Offline != nil {
		c.expandOffline(ctx, domain, host, query, acc, logs)
		return
	}
	if len(refs) == 0 {
		return
	}

	found := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		found += c.extractRef(ctx, domain, ref, sweep.ProviderCCWAT, acc, logs)
	}
	logs.Append(sweep.ProviderCCWAT, host+" anchors", found)
}

// expandOffline resolves refs from the pre-downloaded index. When an
// extractor binary is configured the refs are handed to it wholesale;
// otherwise each ref goes through the same Range path as live refs.
func (c *Core) expandOffline(ctx context.Context, domain, host string, query sweep.ArchiveIndexQuery, acc *accumulator, logs *sweep.LogStream) {
	refs, err := c.Offline.Lookup(ctx, query)
	if err != nil {
		acc.fail(sweep.ProviderCCWATOffline, err)
		logs.Append(sweep.ProviderCCWATOffline, host+" offline lookup failed: "+err.Error(), 0)
		return
	}
	if len(refs) == 0 {
		return
	}

	if c.Extractor != nil {
		links, err := c.Extractor.Extract(ctx, domain, refs)
		if err != nil {
			acc.fail(sweep.ProviderCCWATOffline, err)
			logs.Append(sweep.ProviderCCWATOffline, host+" extractor failed: "+err.Error(), 0)
			return
		}
		for _, l := range links {
			l.Provider = sweep.ProviderCCWATOffline
			acc.add(l)
		}
		logs.Append(sweep.ProviderCCWATOffline, host+" anchors", len(links))
		return
	}

	found := 0
	for _, ref := range refs {
		if ctx.Err() != nil {
			return
		}
		found += c.extractRef(ctx, domain, ref, sweep.ProviderCCWATOffline, acc, logs)
	}
	logs.Append(sweep.ProviderCCWATOffline, host+" anchors", found)
}

// extractRef fetches one archived capture and emits anchors pointing at the
// target. Returns the number of links found.
func (c *Core) extractRef(ctx context.Context, domain string, ref sweep.PageRef, provider string, acc *accumulator, logs *sweep.LogStream) int {
	raw, err := c.Ranges.FetchRange(ctx, ref)
	if err != nil {
		acc.fail(provider, err)
		logs.Append(provider, ref.URL+" range fetch failed: "+err.Error(), 0)
		return 0
	}

	rec, err := warc.Parse(raw)
	if err != nil {
		acc.fail(provider, err)
		logs.Append(provider, ref.URL+" parse failed: "+err.Error(), 0)
		return 0
	}

	pageURL := rec.TargetURI()
	if pageURL == "" {
		pageURL = ref.URL
	}
	links, err := goquery.AnchorsToTarget(string(rec.Body), pageURL, domain)
	if err != nil {
		acc.fail(provider, err)
		return 0
	}

	for _, l := range links {
		l.Provider = provider
		l.LastSeen = rec.Date
		acc.add(l)
	}
	return len(links)
}

// targetDomain resolves the domain under inspection from a Target.
func targetDomain(target sweep.Target) (string, error) {
	if target.Domain != "" {
		return strings.ToLower(target.Domain), nil
	}
	if target.URL != "" {
		u, err := url.Parse(target.URL)
		if err != nil || u.Hostname() == "" {
			return "", sweep.Errorf(sweep.EINVALID, "unparseable target URL %q", target.URL)
		}
		return strings.ToLower(u.Hostname()), nil
	}
	return "", sweep.Errorf(sweep.EINVALID, "backlink target required")
}

// accumulator collects link records from concurrent workers, deduplicating
// by (source, target, provider) and tracking per-provider stats.
type accumulator struct {
	mu    sync.Mutex
	seen  map[string]bool
	out   []sweep.LinkRecord
	stat  map[string]*sweep.SourceStats
	order []string
}

func newAccumulator() *accumulator {
	return &accumulator{
		seen: make(map[string]bool),
		stat: make(map[string]*sweep.SourceStats),
	}
}

func (a *accumulator) add(l sweep.LinkRecord) {
	key := l.SourceURL + "|" + l.TargetURL + "|" + l.Provider
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.seen[key] {
		return
	}
	a.seen[key] = true
	a.out = append(a.out, l)
	a.statFor(l.Provider).Records++
}

func (a *accumulator) fail(provider string, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st := a.statFor(provider)
	st.Errors++
	st.LastErr = err.Error()
}

// statFor must be called with mu held.
func (a *accumulator) statFor(provider string) *sweep.SourceStats {
	st, ok := a.stat[provider]
	if !ok {
		st = &sweep.SourceStats{Source: provider}
		a.stat[provider] = st
		a.order = append(a.order, provider)
	}
	return st
}

func (a *accumulator) links() []sweep.LinkRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]sweep.LinkRecord, len(a.out))
	copy(out, a.out)
	return out
}

// providers returns the providers that contributed at least one record,
// sorted for stable summaries.
func (a *accumulator) providers() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []string
	for _, p := range a.order {
		if a.stat[p].Records > 0 {
			out = append(out, p)
		}
	}
	sort.Strings(out)
	return out
}

func (a *accumulator) stats() []sweep.SourceStats {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]sweep.SourceStats, 0, len(a.order))
	for _, p := range a.order {
		out = append(out, *a.stat[p])
	}
	return out
}
