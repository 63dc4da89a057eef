// Package goquery provides HTML extraction for the discovery pipelines:
// anchor elements pointing at a target, asset references, and search-engine
// result pages.
package goquery

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/fwojciec/sweep"
)

// AnchorsToTarget parses HTML (tolerantly; malformed markup is repaired, not
// rejected) and returns every <a href> whose destination host belongs to the
// target domain, as LinkRecords sourced from pageURL.
func AnchorsToTarget(html, pageURL, targetDomain string) ([]sweep.LinkRecord, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sweep.Errorf(sweep.EINVALID, "failed to parse HTML: %v", err)
	}

	base, _ := url.Parse(pageURL)

	var links []sweep.LinkRecord
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		if href == "" || isNonHTTPLink(href) {
			return
		}
		resolved := resolveURL(base, href)
		if resolved == "" {
			return
		}
		u, err := url.Parse(resolved)
		if err != nil || !sweep.HostBelongs(u.Hostname(), targetDomain) {
			return
		}
		links = append(links, sweep.LinkRecord{
			SourceURL:  pageURL,
			TargetURL:  resolved,
			AnchorText: strings.TrimSpace(sel.Text()),
		})
	})

	return links, nil
}

// cssURLPattern matches url(...) references inside style attributes and
// inline stylesheets.
var cssURLPattern = regexp.MustCompile(`url\(\s*['"]?([^'")\s]+)['"]?\s*\)`)

// PageAssets extracts every asset and link reference from HTML: anchors,
// images (src, data-src, srcset), stylesheets, scripts, iframes, and
// url(...) targets inside CSS. Relative references are resolved against
// pageURL. Duplicates are removed preserving first occurrence.
func PageAssets(html, pageURL string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, sweep.Errorf(sweep.EINVALID, "failed to parse HTML: %v", err)
	}

	base, _ := url.Parse(pageURL)
	seen := make(map[string]bool)
	var out []string

	add := func(ref string) {
		if ref == "" || isNonHTTPLink(ref) {
			return
		}
		resolved := resolveURL(base, ref)
		if resolved == "" || seen[resolved] {
			return
		}
		seen[resolved] = true
		out = append(out, resolved)
	}

	doc.Find("a[href], link[href]").Each(func(_ int, sel *goquery.Selection) {
		href, _ := sel.Attr("href")
		add(href)
	})
	doc.Find("img, script, iframe, source").Each(func(_ int, sel *goquery.Selection) {
		src, _ := sel.Attr("src")
		add(src)
		dataSrc, _ := sel.Attr("data-src")
		add(dataSrc)
		if srcset, ok := sel.Attr("srcset"); ok {
			for _, candidate := range strings.Split(srcset, ",") {
				fields := strings.Fields(strings.TrimSpace(candidate))
				if len(fields) > 0 {
					add(fields[0])
				}
			}
		}
	})
	doc.Find("style").Each(func(_ int, sel *goquery.Selection) {
		for _, m := range cssURLPattern.FindAllStringSubmatch(sel.Text(), -1) {
			add(m[1])
		}
	})
	doc.Find("[style]").Each(func(_ int, sel *goquery.Selection) {
		style, _ := sel.Attr("style")
		for _, m := range cssURLPattern.FindAllStringSubmatch(style, -1) {
			add(m[1])
		}
	})

	return out, nil
}

// isNonHTTPLink reports whether href uses a scheme we never follow.
func isNonHTTPLink(href string) bool {
	lower := strings.ToLower(strings.TrimSpace(href))
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:", "ftp:", "#"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}
	return false
}

// resolveURL resolves href against base, returning "" when unparseable.
func resolveURL(base *url.URL, href string) string {
	if base == nil {
		if u, err := url.Parse(href); err == nil && u.IsAbs() {
			return u.String()
		}
		return ""
	}
	u, err := base.Parse(href)
	if err != nil {
		return ""
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return ""
	}
	u.Fragment = ""
	return u.String()
}
