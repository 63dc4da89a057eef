package sweep

import (
	"context"
	"time"
)

// Scraper retrieves rendered HTML from URLs. Implementations may use browser
// automation to handle JavaScript-rendered content and bot walls.
type Scraper interface {
	// Scrape navigates to the URL and returns the rendered HTML.
	// The context controls timeout and cancellation.
	Scrape(ctx context.Context, url string) (html string, err error)

	// Close releases browser resources.
	Close() error
}

// Fetcher performs plain HTTP fetches. It exists separately from Scraper so
// archive and API adapters can share a pooled client without paying for a
// browser.
type Fetcher interface {
	// Fetch returns the response body for a GET of url.
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// RangeFetcher retrieves exact byte ranges from archived corpora via HTTP
// Range requests. Implementations must transparently inflate gzip when the
// container signals it.
type RangeFetcher interface {
	// FetchRange returns the bytes addressed by ref: one WARC record.
	FetchRange(ctx context.Context, ref PageRef) ([]byte, error)
}

// ArchiveIndexQuery filters an archive-index lookup.
type ArchiveIndexQuery struct {
	// URLPattern is a URL or wildcard pattern, e.g. "example.com/*".
	URLPattern string

	// Archive selects a specific collection (e.g. "CC-MAIN-2024-10");
	// empty means the index's default/latest.
	Archive string

	// MIME restricts results to a content type, e.g. "application/pdf".
	MIME string

	// Limit bounds the number of refs returned, 0 = index default.
	Limit int
}

// ArchiveIndex looks up byte-addressable pointers into an archived corpus
// (Wayback CDX, Common Crawl Index, or an offline copy of either).
type ArchiveIndex interface {
	Lookup(ctx context.Context, q ArchiveIndexQuery) ([]PageRef, error)
}

// HostEdge is an incoming host-level edge from a web-graph index.
type HostEdge struct {
	Host   string // source host linking to the target
	Weight int    // link count
}

// GraphIndex answers host-level backlink queries from a local web graph.
type GraphIndex interface {
	// IncomingHosts returns source hosts linking to domain, ranked by
	// descending link count.
	IncomingHosts(ctx context.Context, domain string, limit int) ([]HostEdge, error)
}

// RefDomain is a referring domain from a paid backlink provider.
type RefDomain struct {
	Domain       string
	Backlinks    int
	TrustFlow    int
	CitationFlow int
}

// BacklinkProvider is a paid backlink API (Majestic-style).
type BacklinkProvider interface {
	RefDomains(ctx context.Context, domain string, limit int) ([]RefDomain, error)
}

// SERPClient executes one search-engine query and returns normalized hits.
// Implementations wrap either a scraping adapter or a SERP API; the engine
// adapters own pagination and operator syntax above this interface.
type SERPClient interface {
	Search(ctx context.Context, engine, query, locale string, limit int) ([]ResultRecord, error)
}

// DocParser is a cloud document-parsing service: given a URL it returns the
// document's text as markdown. First tier of the filetype cascade.
type DocParser interface {
	Parse(ctx context.Context, url string) (markdown string, err error)
}

// PDFTextExtractor extracts plain text from PDF bytes. Third tier of the
// filetype cascade.
type PDFTextExtractor interface {
	ExtractText(ctx context.Context, pdf []byte) (string, error)
}

// VisionOCR submits a document to a vision-capable model for OCR. Fourth and
// last tier of the filetype cascade.
type VisionOCR interface {
	OCR(ctx context.Context, pdf []byte) (string, error)
}

// TextExtractor extracts readable text from HTML. Used for exact-phrase
// verification and archived-HTML keyword search.
type TextExtractor interface {
	Text(html string) (title, text string, err error)
}

// LocalIndexEntry is a previously discovered URL stored in the local index.
type LocalIndexEntry struct {
	URL          string
	Domain       string
	Source       string
	Title        string
	ContentType  string
	Status       int
	DiscoveredAt time.Time
}

// LocalIndex queries and records previously discovered URLs. It is the only
// state that survives a session, and the caller opts into writing it.
type LocalIndex interface {
	// ByDomain returns entries whose domain matches exactly or by subdomain.
	ByDomain(ctx context.Context, domain string, limit int) ([]LocalIndexEntry, error)

	// ByPattern returns entries whose URL matches a SQL-style wildcard
	// pattern, e.g. "https://example.com/%.pdf".
	ByPattern(ctx context.Context, pattern string, limit int) ([]LocalIndexEntry, error)

	// Record persists entries; duplicates by URL are upserted.
	Record(ctx context.Context, entries []LocalIndexEntry) error
}

// LinkExtractorBinary runs an out-of-process link extractor against
// pre-downloaded archive files. Input is written as a JSON temp file; the
// binary streams NDJSON LinkRecords on stdout.
type LinkExtractorBinary interface {
	Extract(ctx context.Context, targetDomain string, refs []PageRef) ([]LinkRecord, error)
}
