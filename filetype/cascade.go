// Package filetype discovers documents of requested types on a domain and,
// when a keyword is given, searches inside the PDFs it finds. Text comes out
// of a four-tier extraction cascade so a scanned or half-broken PDF still
// gets a chance at matching.
package filetype

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/dedup"
	"github.com/fwojciec/sweep/fanout"
	"github.com/fwojciec/sweep/warc"
	"golang.org/x/sync/errgroup"
)

// minTextLen is the shortest extraction a tier must produce to win. Shorter
// output usually means a scanned PDF whose text layer is noise.
const minTextLen = 50

// DefaultTierTimeout bounds each extraction tier per document.
const DefaultTierTimeout = 60 * time.Second

// Cascade runs filetype discovery. Sources are the filetype-capable
// adapters; the remaining capabilities are the extraction tiers, any of
// which may be nil to skip that tier.
type Cascade struct {
	Sources []sweep.SourceAdapter

	Parser  sweep.DocParser         // tier 1: cloud parser
	Index   sweep.ArchiveIndex      // tier 2: archived capture lookup
	Ranges  sweep.RangeFetcher      // tier 2: capture fetch
	Fetcher sweep.Fetcher           // tier 3: direct download
	PDF     sweep.PDFTextExtractor  // tiers 2 and 3: local extraction
	OCR     sweep.VisionOCR         // tier 4: vision fallback

	// Markdown converts fetched HTML documents to markdown for keyword
	// search; nil skips HTML content search.
	Markdown MarkdownConverter

	// Refiner isolates the main content of fetched HTML before markdown
	// conversion, so navigation text does not count toward matches. Nil
	// converts the whole page.
	Refiner ContentRefiner

	// Runner executes the source adapters; a zero Runner is usable.
	Runner fanout.Runner

	// Concurrency bounds parallel per-document extraction. Default 4.
	Concurrency int

	// TierTimeout bounds each tier per document. Default DefaultTierTimeout.
	TierTimeout time.Duration
}

// Discover runs every source adapter in parallel, deduplicates the results,
// and when a keyword is present searches it inside each discovered PDF.
// Every adapter always runs; an adapter failure costs only its own records.
func (c *Cascade) Discover(ctx context.Context, req sweep.FiletypeRequest) (*sweep.FiletypeResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	begin := time.Now()
	logs := sweep.NewLogStream()
	c.Runner.Logs = logs

	target := sweep.Target{Domain: req.Domain}
	opts := sweep.DiscoverOptions{
		Mode:      sweep.ModeFast,
		Limit:     req.Limit,
		Filetypes: req.Types,
		Keyword:   req.Keyword,
	}

	tasks := make([]fanout.Task, 0, len(c.Sources))
	for _, src := range c.Sources {
		src := src
		tasks = append(tasks, fanout.Task{
			Source: src.ID(),
			Run: func(tctx context.Context, emit sweep.EmitFunc) error {
				return src.Discover(tctx, target, opts, emit)
			},
		})
	}

	run := c.Runner.Start(ctx, tasks)
	seen := dedup.New(1024)
	var results []sweep.URLRecord
	for rec := range run.Records {
		if !matchesTypes(rec, req.Types) {
			continue
		}
		results = append(results, seen.Add(rec)...)
	}
	summary := run.Wait()

	response := &sweep.FiletypeResponse{
		Results:     results,
		SourcesUsed: summary.SourcesUsed,
		Summary:     summary,
	}

	if req.Keyword != "" {
		response.ContentMatches = c.searchKeyword(ctx, req.Keyword, pdfRecords(results), logs)
		response.ContentMatches = append(response.ContentMatches, c.searchHTML(ctx, req.Keyword, htmlRecords(results), logs)...)
		sort.SliceStable(response.ContentMatches, func(i, j int) bool {
			return response.ContentMatches[i].KeywordMatches > response.ContentMatches[j].KeywordMatches
		})
	}

	response.Elapsed = time.Since(begin)
	response.Logs = logs.Entries()
	return response, nil
}

// searchKeyword extracts text from each PDF with bounded concurrency and
// counts keyword occurrences. Unreadable documents are skipped.
func (c *Cascade) searchKeyword(ctx context.Context, keyword string, pdfs []sweep.URLRecord, logs *sweep.LogStream) []sweep.ContentMatch {
	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}

	matches := make([]sweep.ContentMatch, len(pdfs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for i, rec := range pdfs {
		i, rec := i, rec
		g.Go(func() error {
			text, method := c.extractText(gctx, rec.URL, logs)
			if text == "" {
				return nil
			}
			count, snippet := CountKeyword(text, keyword)
			if count == 0 {
				return nil
			}
			matches[i] = sweep.ContentMatch{
				URL:              rec.URL,
				KeywordMatches:   count,
				Snippet:          snippet,
				ExtractionMethod: method,
			}
			return nil
		})
	}
	_ = g.Wait()

	out := matches[:0]
	for _, m := range matches {
		if m.KeywordMatches > 0 {
			out = append(out, m)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].KeywordMatches > out[j].KeywordMatches
	})
	return out
}

// extractText walks the tiers in order and returns the first extraction of
// at least minTextLen characters, with the method that produced it. All four
// tiers failing yields ("", "").
func (c *Cascade) extractText(ctx context.Context, docURL string, logs *sweep.LogStream) (string, string) {
	timeout := c.TierTimeout
	if timeout <= 0 {
		timeout = DefaultTierTimeout
	}

	// Tier 1: cloud parser, URL in, markdown out.
	if c.Parser != nil {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		md, err := c.Parser.Parse(tctx, docURL)
		cancel()
		if err == nil && longEnough(md) {
			return md, sweep.ExtractionCloud
		}
		if err != nil {
			logs.Append("cascade", docURL+" cloud parse failed: "+err.Error(), 0)
		}
	}

	// Tier 2: archived capture, extracted locally.
	if c.Index != nil && c.Ranges != nil && c.PDF != nil {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		text, err := c.archiveExtract(tctx, docURL)
		cancel()
		if err == nil && longEnough(text) {
			return text, sweep.ExtractionArchive
		}
		if err != nil {
			logs.Append("cascade", docURL+" archive extract failed: "+err.Error(), 0)
		}
	}

	// Tier 3: direct download plus local extraction. The downloaded bytes
	// are kept for the vision tier.
	var pdfBytes []byte
	if c.Fetcher != nil {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		body, err := c.Fetcher.Fetch(tctx, docURL)
		cancel()
		if err != nil {
			logs.Append("cascade", docURL+" download failed: "+err.Error(), 0)
		} else {
			pdfBytes = body
			if c.PDF != nil {
				tctx, cancel := context.WithTimeout(ctx, timeout)
				text, err := c.PDF.ExtractText(tctx, body)
				cancel()
				if err == nil && longEnough(text) {
					return text, sweep.ExtractionLocal
				}
			}
		}
	}

	// Tier 4: vision OCR over the downloaded bytes.
	if c.OCR != nil && len(pdfBytes) > 0 {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		text, err := c.OCR.OCR(tctx, pdfBytes)
		cancel()
		if err == nil && longEnough(text) {
			return text, sweep.ExtractionVision
		}
		if err != nil {
			logs.Append("cascade", docURL+" vision OCR failed: "+err.Error(), 0)
		}
	}

	return "", ""
}

// archiveExtract locates the newest archived capture of the document and
// extracts its payload locally.
func (c *Cascade) archiveExtract(ctx context.Context, docURL string) (string, error) {
	refs, err := c.Index.Lookup(ctx, sweep.ArchiveIndexQuery{
		URLPattern: docURL,
		MIME:       "application/pdf",
		Limit:      1,
	})
	if err != nil {
		return "", err
	}
	if len(refs) == 0 {
		return "", sweep.Errorf(sweep.ENOTFOUND, "no archived capture of %s", docURL)
	}

	raw, err := c.Ranges.FetchRange(ctx, refs[0])
	if err != nil {
		return "", err
	}
	rec, err := warc.Parse(raw)
	if err != nil {
		return "", err
	}
	return c.PDF.ExtractText(ctx, rec.Body)
}

func longEnough(text string) bool {
	return len(strings.TrimSpace(text)) >= minTextLen
}

// MarkdownConverter turns raw HTML into markdown.
type MarkdownConverter interface {
	Convert(html string) (string, error)
}

// ContentRefiner strips boilerplate from a page, returning its title and the
// main content as HTML.
type ContentRefiner interface {
	ContentHTML(rawHTML string) (title, contentHTML string, err error)
}

// searchHTML fetches HTML documents, converts them to markdown so tags do
// not break word boundaries, and counts the keyword.
func (c *Cascade) searchHTML(ctx context.Context, keyword string, pages []sweep.URLRecord, logs *sweep.LogStream) []sweep.ContentMatch {
	if c.Fetcher == nil || c.Markdown == nil {
		return nil
	}

	timeout := c.TierTimeout
	if timeout <= 0 {
		timeout = DefaultTierTimeout
	}

	var out []sweep.ContentMatch
	for _, rec := range pages {
		tctx, cancel := context.WithTimeout(ctx, timeout)
		body, err := c.Fetcher.Fetch(tctx, rec.URL)
		cancel()
		if err != nil {
			logs.Append("cascade", rec.URL+" download failed: "+err.Error(), 0)
			continue
		}
		page := string(body)
		if c.Refiner != nil {
			if _, content, err := c.Refiner.ContentHTML(page); err == nil && content != "" {
				page = content
			}
		}
		md, err := c.Markdown.Convert(page)
		if err != nil {
			continue
		}
		count, snippet := CountKeyword(md, keyword)
		if count == 0 {
			continue
		}
		out = append(out, sweep.ContentMatch{
			URL:              rec.URL,
			KeywordMatches:   count,
			Snippet:          snippet,
			ExtractionMethod: sweep.ExtractionLocal,
		})
	}
	return out
}

// htmlRecords filters discovery results down to HTML pages.
func htmlRecords(records []sweep.URLRecord) []sweep.URLRecord {
	var out []sweep.URLRecord
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.ContentType), "html") ||
			hasExtension(r.URL, "html") || hasExtension(r.URL, "htm") {
			out = append(out, r)
		}
	}
	return out
}

// pdfRecords filters discovery results down to PDFs.
func pdfRecords(records []sweep.URLRecord) []sweep.URLRecord {
	var out []sweep.URLRecord
	for _, r := range records {
		if isPDF(r) {
			out = append(out, r)
		}
	}
	return out
}

func isPDF(r sweep.URLRecord) bool {
	if strings.Contains(strings.ToLower(r.ContentType), "pdf") {
		return true
	}
	return hasExtension(r.URL, "pdf")
}

// matchesTypes keeps records whose extension or content type is one of the
// requested types. Records with neither signal are dropped rather than
// guessed at.
func matchesTypes(r sweep.URLRecord, types []string) bool {
	ct := strings.ToLower(r.ContentType)
	for _, t := range types {
		t = strings.ToLower(strings.TrimPrefix(t, "."))
		if hasExtension(r.URL, t) {
			return true
		}
		if ct != "" && strings.Contains(ct, t) {
			return true
		}
	}
	return false
}

func hasExtension(rawURL, ext string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	return strings.HasSuffix(strings.ToLower(u.Path), "."+ext)
}
