package http

import (
	"context"
	"net/url"
	"strings"

	"github.com/fwojciec/sweep"
	gq "github.com/fwojciec/sweep/goquery"
)

// Ensure the SERP types implement their capability surfaces.
var (
	_ sweep.SERPClient    = (*ScrapeSERP)(nil)
	_ sweep.SourceAdapter = (*EngineAdapter)(nil)
)

// ScrapeSERP implements sweep.SERPClient by driving a browser Scraper against
// the engines' public result pages and parsing the markup. No API keys; the
// cost is captchas, which surface as rate-limit errors so the retry layer
// backs off hard.
type ScrapeSERP struct {
	Scraper sweep.Scraper
}

// searchURL builds the result-page URL for one engine query.
func searchURL(engine, query, locale string) (string, error) {
	e, ok := sweep.Engines[engine]
	if !ok {
		return "", sweep.Errorf(sweep.EINVALID, "unknown engine %q", engine)
	}

	var base string
	params := url.Values{}
	switch engine {
	case "google":
		base = "https://www.google.com/search"
		params.Set("q", query)
		params.Set("num", "100")
	case "bing":
		base = "https://www.bing.com/search"
		params.Set("q", query)
		params.Set("count", "50")
	case "duckduckgo":
		// The html endpoint renders without JavaScript.
		base = "https://html.duckduckgo.com/html/"
		params.Set("q", query)
	case "yandex":
		base = "https://yandex.com/search/"
		params.Set("text", query)
	case "brave":
		base = "https://search.brave.com/search"
		params.Set("q", query)
	case "mojeek":
		base = "https://www.mojeek.com/search"
		params.Set("q", query)
	}
	if locale != "" && e.LocaleParam != "" {
		params.Set(e.LocaleParam, locale)
	}
	return base + "?" + params.Encode(), nil
}

// captchaMarkers are page fragments that mean the engine served a bot wall
// instead of results.
var captchaMarkers = []string{
	"detected unusual traffic",
	"g-recaptcha",
	"cf-challenge",
	"are you a robot",
	"enter the characters you see",
	"smartcaptcha",
}

// Search executes one query against one engine and returns normalized hits.
func (s *ScrapeSERP) Search(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
	pageURL, err := searchURL(engine, query, locale)
	if err != nil {
		return nil, err
	}

	html, err := s.Scraper.Scrape(ctx, pageURL)
	if err != nil {
		return nil, err
	}

	lower := strings.ToLower(html)
	for _, marker := range captchaMarkers {
		if strings.Contains(lower, marker) {
			return nil, sweep.Errorf(sweep.ERATELIMITED, "%s served a captcha page", engine)
		}
	}

	results, err := gq.ParseSERP(engine, html)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}
	for i := range results {
		results[i].Query = query
		results[i].Locale = locale
		results[i].SearchType = sweep.SearchTypeNormal
	}
	return results, nil
}

// EngineAdapter executes one planned leaf query against one engine through a
// SERPClient, emitting the hits as URLRecords for the shared fan-out.
type EngineAdapter struct {
	Engine string
	Client sweep.SERPClient
}

// ID returns the engine code.
func (a *EngineAdapter) ID() string { return a.Engine }

// Discover runs opts.Leaf when one is planned. Without a leaf a filetype
// sweep builds its own site-scoped queries, one per requested extension;
// anything else is rejected since engines enumerate queries, not domains.
func (a *EngineAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if opts.Leaf != nil {
		return a.search(ctx, target, opts, opts.Leaf.Query, opts.Leaf.Locale, emit)
	}
	if len(opts.Filetypes) == 0 || target.Domain == "" {
		return sweep.Errorf(sweep.EINVALID, "engine adapter %s requires a planned leaf query", a.Engine)
	}

	for _, ft := range opts.Filetypes {
		ft = strings.ToLower(strings.TrimPrefix(ft, "."))
		query := "site:" + target.Domain + " filetype:" + ft
		if err := a.search(ctx, target, opts, query, "", emit); err != nil {
			return err
		}
	}
	return nil
}

func (a *EngineAdapter) search(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, query, locale string, emit sweep.EmitFunc) error {
	results, err := a.Client.Search(ctx, a.Engine, query, locale, opts.Limit)
	if err != nil {
		return err
	}
	for _, hit := range results {
		rec := hit.Record()
		if !opts.AllowExternal && target.Domain != "" && !rec.BelongsTo(target.Domain) {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}
