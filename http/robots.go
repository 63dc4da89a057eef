package http

import (
	"bufio"
	"bytes"
	"context"
	"net/http"
	"strings"

	"github.com/fwojciec/sweep"
	"github.com/temoto/robotstxt"
)

// Ensure RobotsAdapter implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*RobotsAdapter)(nil)

// RobotsAdapter mines robots.txt for site structure. Allow and Disallow
// directives name real paths site operators chose to call out, which makes
// them high-value discovery leads; Sitemap directives are emitted as well.
type RobotsAdapter struct {
	client *http.Client

	// BaseURL overrides "https://{domain}" as the site root, for tests.
	BaseURL string
}

// NewRobotsAdapter creates a RobotsAdapter. If client is nil a pooled default
// is used.
func NewRobotsAdapter(client *http.Client) *RobotsAdapter {
	if client == nil {
		client = NewClient(0)
	}
	return &RobotsAdapter{client: client}
}

// ID returns the adapter identifier.
func (a *RobotsAdapter) ID() string { return "robots" }

// Discover fetches https://{domain}/robots.txt and emits one record per
// concrete path named in a directive. Wildcard-only patterns carry no usable
// path and are skipped. Directive keywords match case-insensitively.
func (a *RobotsAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "robots adapter requires a target domain")
	}

	root := a.BaseURL
	if root == "" {
		root = "https://" + target.Domain
	}
	body, err := get(ctx, a.client, root+"/robots.txt", nil)
	if err != nil {
		if sweep.ErrorCode(err) == sweep.ENOTFOUND {
			return nil
		}
		return err
	}

	// The parser validates structure and collects Sitemap directives; a file
	// it rejects outright is not worth mining line by line.
	robots, err := robotstxt.FromBytes(body)
	if err != nil {
		return sweep.WrapError(sweep.EINVALID, err, "parsing robots.txt for %s", target.Domain)
	}

	emitted := 0
	send := func(rawURL string) error {
		if opts.Limit > 0 && emitted >= opts.Limit {
			return nil
		}
		rec := sweep.URLRecord{URL: rawURL, Domain: target.Domain, Source: a.ID()}
		if err := emit(rec); err != nil {
			return err
		}
		emitted++
		return nil
	}

	for _, sm := range robots.Sitemaps {
		if err := send(sm); err != nil {
			return err
		}
	}

	scanner := bufio.NewScanner(bytes.NewReader(body))
	seen := make(map[string]bool)
	for scanner.Scan() {
		if err := ctx.Err(); err != nil {
			return sweep.WrapError(sweep.ECANCELED, err, "robots scan")
		}
		line := strings.TrimSpace(scanner.Text())
		if i := strings.Index(line, "#"); i != -1 {
			line = strings.TrimSpace(line[:i])
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		switch strings.ToLower(strings.TrimSpace(key)) {
		case "allow", "disallow":
		default:
			continue
		}
		path := strings.TrimSpace(value)
		if !usablePath(path) || seen[path] {
			continue
		}
		seen[path] = true
		if err := send(root + cleanPattern(path)); err != nil {
			return err
		}
		if opts.Limit > 0 && emitted >= opts.Limit {
			break
		}
	}
	return nil
}

// usablePath reports whether a directive value names a concrete path rather
// than a bare wildcard or the whole site.
func usablePath(p string) bool {
	if p == "" || p == "/" || p == "*" || p == "/*" {
		return false
	}
	return strings.HasPrefix(p, "/")
}

// cleanPattern strips trailing wildcard markers so the emitted URL is a real
// prefix, e.g. "/admin/*" becomes "/admin/".
func cleanPattern(p string) string {
	p = strings.TrimSuffix(p, "$")
	for strings.HasSuffix(p, "*") {
		p = strings.TrimSuffix(p, "*")
	}
	return p
}
