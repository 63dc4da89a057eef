package sweep

import (
	"net/url"
	"strings"
	"time"
)

// URLRecord is the canonical discovery result. Every source adapter produces
// URLRecords; Dedup guarantees each canonical URL is emitted at most once per
// session.
//
// Records are value objects: never mutated after creation. Enrichment
// produces a new record (see WithArchive).
type URLRecord struct {
	URL    string `json:"url"`
	Domain string `json:"domain"`
	Source string `json:"source"` // adapter id, e.g. "crt.sh", "wayback"

	Title        string    `json:"title,omitempty"`
	Snippet      string    `json:"snippet,omitempty"`
	DiscoveredAt time.Time `json:"discoveredAt,omitempty"`
	Status       int       `json:"status,omitempty"`
	ContentType  string    `json:"contentType,omitempty"`
	ParentURL    string    `json:"parentUrl,omitempty"` // set when found via crawl

	// Sitemap metadata.
	Priority string `json:"priority,omitempty"`
	LastMod  string `json:"lastmod,omitempty"`

	// Archive metadata.
	IsArchived    bool   `json:"isArchived,omitempty"`
	ArchiveURL    string `json:"archiveUrl,omitempty"`
	ArchiveSource string `json:"archiveSource,omitempty"`

	// Subdomain segment, set by CT-log style sources.
	Subdomain string `json:"subdomain,omitempty"`
}

// Validate returns an error if the record is missing required fields.
func (r *URLRecord) Validate() error {
	if r.URL == "" {
		return Errorf(EINVALID, "record URL required")
	}
	if r.Source == "" {
		return Errorf(EINVALID, "record source required")
	}
	return nil
}

// WithArchive returns a copy of the record annotated with archive provenance.
func (r URLRecord) WithArchive(archiveURL, archiveSource string) URLRecord {
	r.IsArchived = true
	r.ArchiveURL = archiveURL
	r.ArchiveSource = archiveSource
	return r
}

// BelongsTo reports whether the record's host is the target domain or one of
// its subdomains.
func (r *URLRecord) BelongsTo(domain string) bool {
	u, err := url.Parse(r.URL)
	if err != nil {
		return false
	}
	return HostBelongs(u.Hostname(), domain)
}

// HostBelongs reports whether host equals domain or is a subdomain of it.
func HostBelongs(host, domain string) bool {
	host = strings.ToLower(host)
	domain = strings.ToLower(domain)
	return host == domain || strings.HasSuffix(host, "."+domain)
}

// LinkRecord is a directed edge from one URL or domain to another.
type LinkRecord struct {
	SourceURL string `json:"sourceUrl"` // page containing the link
	TargetURL string `json:"targetUrl"` // link destination

	Weight     int       `json:"weight,omitempty"` // link count for host-level edges
	AnchorText string    `json:"anchorText,omitempty"`
	FirstSeen  time.Time `json:"firstSeen,omitempty"`
	LastSeen   time.Time `json:"lastSeen,omitempty"`
	IsLive     bool      `json:"isLive,omitempty"`
	Provider   string    `json:"provider,omitempty"` // host_graph, cc_wat, cc_wat_offline, majestic, wayback

	// Trust and citation flow scores from paid providers, 0 when unknown.
	TrustFlow    int `json:"trustFlow,omitempty"`
	CitationFlow int `json:"citationFlow,omitempty"`
}

// Backlink providers, as annotated on LinkRecord.Provider and in summaries.
const (
	ProviderHostGraph    = "host_graph"
	ProviderCCWAT        = "cc_wat"
	ProviderCCWATOffline = "cc_wat_offline"
	ProviderMajestic     = "majestic"
	ProviderWayback      = "wayback"
)

// Search types for ResultRecord.
const (
	SearchTypeNormal    = "normal"
	SearchTypeException = "exception" // produced by the iterative excluder
)

// ResultRecord is a search-engine hit.
type ResultRecord struct {
	URL     string `json:"url"`
	Title   string `json:"title,omitempty"`
	Snippet string `json:"snippet,omitempty"`

	Engine      string `json:"engine"`          // engine code, e.g. "google"
	EngineBadge string `json:"badge,omitempty"` // short tag, e.g. "G"
	Query       string `json:"query"`           // fully materialized leaf query
	SearchType  string `json:"searchType,omitempty"`
	Iteration   int    `json:"iteration,omitempty"` // exclusion iteration, 0 for first pass
	Locale      string `json:"locale,omitempty"`
}

// Record converts a search hit into a URLRecord for deduplication.
func (r ResultRecord) Record() URLRecord {
	domain := ""
	if u, err := url.Parse(r.URL); err == nil {
		domain = u.Hostname()
	}
	return URLRecord{
		URL:     r.URL,
		Domain:  domain,
		Source:  r.Engine,
		Title:   r.Title,
		Snippet: r.Snippet,
	}
}

// PageRef is a byte-addressable pointer into an archived corpus. The bytes at
// [Offset, Offset+Length) of Filename inside the archive are one WARC record.
type PageRef struct {
	URL       string `json:"url"`
	Archive   string `json:"archive"` // e.g. "CC-MAIN-2024-10"
	Filename  string `json:"filename"`
	Offset    int64  `json:"offset"`
	Length    int64  `json:"length"`
	MIME      string `json:"mime,omitempty"`
	Status    int    `json:"status,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // archive timestamp, 14-digit
}

// Validate returns an error if the ref cannot address bytes.
func (p *PageRef) Validate() error {
	if p.Filename == "" {
		return Errorf(EINVALID, "page ref filename required")
	}
	if p.Length <= 0 {
		return Errorf(EINVALID, "page ref length must be positive")
	}
	return nil
}

// CanonicalURL normalizes a URL for deduplication: lowercased scheme and
// host, trailing slash removed from the path, fragment dropped. Query values
// keep their case since they may be significant.
func CanonicalURL(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" {
		// Not parseable as absolute; fall back to trimmed input.
		s := strings.TrimSpace(raw)
		if i := strings.Index(s, "#"); i != -1 {
			s = s[:i]
		}
		return strings.TrimSuffix(s, "/")
	}
	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)
	u.Fragment = ""
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u.String()
}
