package goquery

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sweep"
)

// SERPSelectors names the CSS selectors for one engine's result markup.
// Result is matched first; Link, Title and Snippet are evaluated relative to
// each result node.
type SERPSelectors struct {
	Result  string
	Link    string
	Title   string
	Snippet string
}

// serpSelectors maps engine codes to their current result-page markup. Engines
// change markup without notice; parsers return whatever matched rather than
// erroring on empty pages.
var serpSelectors = map[string]SERPSelectors{
	"google": {
		Result:  "div.g, div[data-hveid] div[jscontroller]:has(a h3)",
		Link:    "a:has(h3)",
		Title:   "h3",
		Snippet: "div[data-sncf], div[style*='-webkit-line-clamp']",
	},
	"bing": {
		Result:  "li.b_algo",
		Link:    "h2 a",
		Title:   "h2",
		Snippet: "div.b_caption p",
	},
	"duckduckgo": {
		Result:  "article[data-testid='result'], div.result",
		Link:    "a[data-testid='result-title-a'], a.result__a",
		Title:   "a[data-testid='result-title-a'], a.result__a",
		Snippet: "div[data-result='snippet'], a.result__snippet",
	},
	"yandex": {
		Result:  "li.serp-item",
		Link:    "a.Link_theme_normal, a.organic__url",
		Title:   "h2",
		Snippet: "div.organic__content-wrapper, div.text-container",
	},
	"brave": {
		Result:  "div.snippet[data-type='web']",
		Link:    "a.result-header, a.heading-serpresult",
		Title:   "div.title, span.snippet-title",
		Snippet: "div.snippet-description",
	},
	"mojeek": {
		Result:  "ul.results-standard li",
		Link:    "h2 a.title",
		Title:   "h2 a.title",
		Snippet: "p.s",
	},
}

// ParseSERP extracts result records from a search result page for the named
// engine. Results with no resolvable link are skipped; engine-internal links
// (redirects back into the engine's own host) are unwrapped where recognized.
func ParseSERP(engine, html string) ([]sweep.ResultRecord, error) {
	sel, ok := serpSelectors[engine]
	if !ok {
		return nil, sweep.Errorf(sweep.EINVALID, "no result selectors for engine %q", engine)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sweep.Errorf(sweep.EINVALID, "failed to parse result page: %v", err)
	}

	badge := ""
	if e, ok := sweep.Engines[engine]; ok {
		badge = e.Badge
	}

	var out []sweep.ResultRecord
	seen := make(map[string]bool)
	doc.Find(sel.Result).Each(func(_ int, res *goquery.Selection) {
		href, _ := res.Find(sel.Link).First().Attr("href")
		link := unwrapRedirect(engine, href)
		if link == "" || seen[link] {
			return
		}
		seen[link] = true
		out = append(out, sweep.ResultRecord{
			URL:         link,
			Title:       strings.TrimSpace(res.Find(sel.Title).First().Text()),
			Snippet:     strings.TrimSpace(res.Find(sel.Snippet).First().Text()),
			Engine:      engine,
			EngineBadge: badge,
		})
	})

	return out, nil
}

// unwrapRedirect resolves engine redirect wrappers to the destination URL and
// rejects links that stay inside the engine itself.
func unwrapRedirect(engine, href string) string {
	href = strings.TrimSpace(href)
	if href == "" {
		return ""
	}
	// DuckDuckGo HTML endpoint wraps links as //duckduckgo.com/l/?uddg=<url>.
	if strings.Contains(href, "duckduckgo.com/l/") {
		if u, err := url.Parse(href); err == nil {
			if dest := u.Query().Get("uddg"); dest != "" {
				href = dest
			}
		}
	}
	// Google wraps as /url?q=<url> when JS is off.
	if strings.HasPrefix(href, "/url?") {
		if u, err := url.Parse(href); err == nil {
			if dest := u.Query().Get("q"); dest != "" {
				href = dest
			}
		}
	}
	u, err := url.Parse(href)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return ""
	}
	host := strings.ToLower(u.Hostname())
	for _, own := range []string{"google.", "bing.com", "duckduckgo.com", "yandex.", "search.brave.com", "mojeek.com"} {
		if strings.Contains(host, own) {
			return ""
		}
	}
	return href
}
