package http

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"net/url"
	"strings"

	"github.com/beevik/etree"
	"github.com/fwojciec/sweep"
)

// Ensure SitemapAdapter implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*SitemapAdapter)(nil)

// SitemapAdapter discovers URLs from a site's sitemaps. Sitemap locations come
// from robots.txt Sitemap directives with /sitemap.xml as fallback; index
// files are followed recursively and gzip payloads are inflated.
type SitemapAdapter struct {
	client *http.Client

	// BaseURL overrides "https://{domain}" as the site root, for tests.
	BaseURL string
}

// NewSitemapAdapter creates a SitemapAdapter. If client is nil a pooled
// default is used.
func NewSitemapAdapter(client *http.Client) *SitemapAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &SitemapAdapter{client: client}
}

// ID returns the adapter identifier.
func (a *SitemapAdapter) ID() string { return "sitemap" }

// maxSitemapDepth bounds index recursion; real indexes nest two levels, a
// loop in the wild should not hang a session.
const maxSitemapDepth = 5

// Discover enumerates the target's sitemaps and emits one record per <url>
// entry, carrying priority and lastmod when present. xhtml:link alternates
// are emitted as separate records.
func (a *SitemapAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	domain := target.Domain
	if domain == "" {
		u, err := url.Parse(target.URL)
		if err != nil {
			return sweep.Errorf(sweep.EINVALID, "invalid target URL: %v", err)
		}
		domain = u.Hostname()
	}

	root := a.BaseURL
	if root == "" {
		root = "https://" + domain
	}

	roots, err := a.findSitemaps(ctx, root)
	if err != nil {
		return err
	}
	if len(roots) == 0 {
		// No sitemap is a valid zero-result outcome, not a failure.
		return nil
	}

	seen := make(map[string]bool)
	emitted := 0
	for _, root := range roots {
		if err := a.walk(ctx, root, domain, opts, seen, &emitted, emit, 0); err != nil {
			return err
		}
		if opts.Limit > 0 && emitted >= opts.Limit {
			break
		}
	}
	return nil
}

// findSitemaps returns sitemap URLs from robots.txt, falling back to the
// conventional /sitemap.xml when robots.txt lists none.
func (a *SitemapAdapter) findSitemaps(ctx context.Context, root string) ([]string, error) {
	robotsBody, err := get(ctx, a.client, root+"/robots.txt", nil)
	if err == nil {
		var sitemaps []string
		scanner := bufio.NewScanner(bytes.NewReader(robotsBody))
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if strings.HasPrefix(strings.ToLower(line), "sitemap:") {
				if loc := strings.TrimSpace(line[len("sitemap:"):]); loc != "" {
					sitemaps = append(sitemaps, loc)
				}
			}
		}
		if len(sitemaps) > 0 {
			return sitemaps, nil
		}
	} else if sweep.ErrorCode(err) == sweep.ECANCELED || sweep.ErrorCode(err) == sweep.EPERMISSION {
		return nil, err
	}

	fallback := root + "/sitemap.xml"
	if _, err := get(ctx, a.client, fallback, nil); err != nil {
		if sweep.ErrorCode(err) == sweep.ECANCELED || sweep.ErrorCode(err) == sweep.EPERMISSION {
			return nil, err
		}
		return nil, nil
	}
	return []string{fallback}, nil
}

// walk fetches one sitemap document and recurses into index entries.
func (a *SitemapAdapter) walk(ctx context.Context, sitemapURL, domain string, opts sweep.DiscoverOptions, seen map[string]bool, emitted *int, emit sweep.EmitFunc, depth int) error {
	if depth > maxSitemapDepth || seen[sitemapURL] {
		return nil
	}
	seen[sitemapURL] = true
	if err := ctx.Err(); err != nil {
		return sweep.WrapError(sweep.ECANCELED, err, "sitemap walk")
	}

	body, err := get(ctx, a.client, sitemapURL, nil)
	if err != nil {
		if sweep.ErrorCode(err) == sweep.ENOTFOUND {
			return nil
		}
		return err
	}
	body, err = maybeGunzip(body)
	if err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "inflating sitemap %s", sitemapURL)
	}

	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "parsing sitemap %s", sitemapURL)
	}
	root := doc.Root()
	if root == nil {
		return nil
	}

	if root.Tag == "sitemapindex" {
		for _, sm := range root.SelectElements("sitemap") {
			loc := sm.SelectElement("loc")
			if loc == nil {
				continue
			}
			if err := a.walk(ctx, strings.TrimSpace(loc.Text()), domain, opts, seen, emitted, emit, depth+1); err != nil {
				return err
			}
			if opts.Limit > 0 && *emitted >= opts.Limit {
				return nil
			}
		}
		return nil
	}

	for _, entry := range root.SelectElements("url") {
		loc := entry.SelectElement("loc")
		if loc == nil {
			continue
		}
		pageURL := strings.TrimSpace(loc.Text())
		if pageURL == "" {
			continue
		}

		rec := sweep.URLRecord{URL: pageURL, Domain: domain, Source: a.ID()}
		if p := entry.SelectElement("priority"); p != nil {
			rec.Priority = strings.TrimSpace(p.Text())
		}
		if lm := entry.SelectElement("lastmod"); lm != nil {
			rec.LastMod = strings.TrimSpace(lm.Text())
		}
		if err := a.send(rec, domain, opts, emitted, emit); err != nil {
			return err
		}
		if opts.Limit > 0 && *emitted >= opts.Limit {
			return nil
		}

		// Language alternates are distinct URLs worth recording.
		for _, alt := range entry.SelectElements("link") {
			href := alt.SelectAttrValue("href", "")
			if href == "" || href == pageURL {
				continue
			}
			altRec := sweep.URLRecord{URL: href, Domain: domain, Source: a.ID()}
			if err := a.send(altRec, domain, opts, emitted, emit); err != nil {
				return err
			}
			if opts.Limit > 0 && *emitted >= opts.Limit {
				return nil
			}
		}
	}
	return nil
}

func (a *SitemapAdapter) send(rec sweep.URLRecord, domain string, opts sweep.DiscoverOptions, emitted *int, emit sweep.EmitFunc) error {
	if !opts.AllowExternal && !rec.BelongsTo(domain) {
		return nil
	}
	if err := emit(rec); err != nil {
		return err
	}
	*emitted++
	return nil
}
