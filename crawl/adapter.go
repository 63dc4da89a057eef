package crawl

import (
	"context"
	"net/url"
	"path"
	"strings"
	"sync"

	"github.com/fwojciec/sweep"
	gq "github.com/fwojciec/sweep/goquery"
)

// Ensure Adapter implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*Adapter)(nil)

// Frontier sizing.
const (
	frontierExpectedURLs      = 10000
	frontierFalsePositiveRate = 0.01
)

// Default crawl bounds.
const (
	DefaultMaxURLs     = 1000
	DefaultConcurrency = 10
	DefaultRPS         = 2.0
)

// Adapter crawls the target site by following links and asset references from
// the root page. It emits every URL it encounters; only HTML pages on the
// target domain are fetched and expanded.
type Adapter struct {
	Fetcher sweep.Fetcher

	// MaxURLs caps how many pages are fetched, default DefaultMaxURLs.
	MaxURLs int

	// Concurrency sizes the worker pool, default DefaultConcurrency.
	Concurrency int

	// Limiter is the per-domain rate limiter; nil gets DefaultRPS.
	Limiter *DomainLimiter

	// Text extracts page titles from fetched HTML; nil leaves titles empty.
	Text sweep.TextExtractor
}

// ID returns the adapter identifier.
func (a *Adapter) ID() string { return "crawl" }

// crawlResult is one fetched page with its outbound references.
type crawlResult struct {
	link       Link
	title      string
	discovered []Link
	err        error
}

// Discover walks the site breadth-first from the root (or target.URL when
// set). Every reference found is emitted once; pages on the target domain are
// fetched and their links pushed back into the frontier. In fast mode the
// walk stops one level below the root.
func (a *Adapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	root := target.URL
	if root == "" {
		root = "https://" + target.Domain
	}
	domain := target.Domain
	if domain == "" {
		u, err := url.Parse(root)
		if err != nil {
			return sweep.Errorf(sweep.EINVALID, "invalid crawl root: %v", err)
		}
		domain = u.Hostname()
	}

	maxURLs := a.MaxURLs
	if maxURLs <= 0 {
		maxURLs = DefaultMaxURLs
	}
	if opts.Limit > 0 && opts.Limit < maxURLs {
		maxURLs = opts.Limit
	}
	maxDepth := -1
	if opts.Mode == sweep.ModeFast {
		maxDepth = 1
	}
	concurrency := a.Concurrency
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	limiter := a.Limiter
	if limiter == nil {
		limiter = NewDomainLimiter(DefaultRPS)
	}

	frontier := NewFrontier(frontierExpectedURLs, frontierFalsePositiveRate)
	frontier.Push(Link{URL: root, Priority: PriorityNavigation})

	workCh := make(chan Link, concurrency)
	resultCh := make(chan crawlResult)

	var wg sync.WaitGroup
	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for link := range workCh {
				result := a.fetch(ctx, limiter, domain, link)
				select {
				case resultCh <- result:
				case <-ctx.Done():
					return
				}
			}
		}()
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Coordinator loop: dispatch from the frontier and fold results back in,
	// emitting as we go.
	dispatched := 0
	pending := 0
	var emitErr error
	var next *Link
	if link, ok := frontier.Pop(); ok {
		next = &link
	}

	handle := func(res crawlResult) {
		if emitErr != nil {
			return
		}
		if res.err == nil {
			rec := sweep.URLRecord{
				URL:       res.link.URL,
				Domain:    domain,
				Source:    a.ID(),
				Title:     res.title,
				ParentURL: res.link.Parent,
			}
			if err := emit(rec); err != nil {
				emitErr = err
				return
			}
		}
		for _, found := range res.discovered {
			if maxDepth >= 0 && found.Depth > maxDepth {
				continue
			}
			onTarget := belongsTo(found.URL, domain)
			if !onTarget || !crawlable(found.URL) {
				// External references and assets are reported once but never
				// fetched.
				if !onTarget && !opts.AllowExternal {
					continue
				}
				if frontier.MarkSeen(found.URL) {
					rec := sweep.URLRecord{URL: found.URL, Domain: domain, Source: a.ID(), ParentURL: found.Parent}
					if err := emit(rec); err != nil {
						emitErr = err
						return
					}
				}
				continue
			}
			frontier.Push(found)
		}
	}

	for (next != nil || pending > 0) && ctx.Err() == nil && emitErr == nil {
		if next != nil && dispatched < maxURLs {
			select {
			case <-ctx.Done():
			case workCh <- *next:
				dispatched++
				pending++
				next = nil
			case res := <-resultCh:
				pending--
				handle(res)
			}
		} else {
			select {
			case <-ctx.Done():
			case res, ok := <-resultCh:
				if !ok {
					break
				}
				pending--
				handle(res)
			}
		}
		if next == nil && dispatched < maxURLs {
			if link, ok := frontier.Pop(); ok {
				next = &link
			}
		}
		if next != nil && dispatched >= maxURLs {
			next = nil
		}
	}

	close(workCh)
	for res := range resultCh {
		pending--
		handle(res)
	}

	if emitErr != nil {
		return emitErr
	}
	if err := ctx.Err(); err != nil {
		return sweep.WrapError(sweep.ECANCELED, err, "crawl interrupted")
	}
	return nil
}

// fetch retrieves one page and extracts its references.
func (a *Adapter) fetch(ctx context.Context, limiter *DomainLimiter, domain string, link Link) crawlResult {
	result := crawlResult{link: link}

	u, err := url.Parse(link.URL)
	if err != nil {
		result.err = sweep.Errorf(sweep.EINVALID, "invalid crawl URL %q", link.URL)
		return result
	}
	if err := limiter.Wait(ctx, u.Host); err != nil {
		result.err = sweep.WrapError(sweep.ECANCELED, err, "rate limit wait")
		return result
	}

	body, err := a.Fetcher.Fetch(ctx, link.URL)
	if err != nil {
		result.err = err
		return result
	}

	if a.Text != nil {
		if title, _, err := a.Text.Text(string(body)); err == nil {
			result.title = title
		}
	}

	refs, err := gq.PageAssets(string(body), link.URL)
	if err != nil {
		return result
	}
	for _, ref := range refs {
		result.discovered = append(result.discovered, Link{
			URL:      ref,
			Parent:   link.URL,
			Priority: refPriority(ref),
			Depth:    link.Depth + 1,
		})
	}
	return result
}

// assetExtensions are references worth reporting but not parsing.
var assetExtensions = map[string]bool{
	".css": true, ".js": true, ".png": true, ".jpg": true, ".jpeg": true,
	".gif": true, ".svg": true, ".webp": true, ".ico": true, ".woff": true,
	".woff2": true, ".ttf": true, ".mp4": true, ".webm": true, ".mp3": true,
	".pdf": true, ".doc": true, ".docx": true, ".xls": true, ".xlsx": true,
	".ppt": true, ".pptx": true, ".zip": true, ".gz": true,
}

// crawlable reports whether the URL is worth fetching and expanding.
func crawlable(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return !assetExtensions[strings.ToLower(path.Ext(u.Path))]
}

// refPriority ranks a reference for frontier ordering.
func refPriority(rawURL string) int {
	if !crawlable(rawURL) {
		return PriorityAsset
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return PriorityAsset
	}
	// Shallow paths are navigation pages, deep ones content.
	if strings.Count(strings.Trim(u.Path, "/"), "/") <= 1 {
		return PriorityNavigation
	}
	return PriorityContent
}

func belongsTo(rawURL, domain string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return sweep.HostBelongs(u.Hostname(), domain)
}
