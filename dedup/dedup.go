// Package dedup provides the session-scoped unique-URL filter every
// discovery stream passes through.
package dedup

import (
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/bloom"
)

// Dedup is a concurrent set keyed by canonical URL. It guarantees each URL
// is emitted at most once per session regardless of how many adapters yield
// it. The Bloom filter is a lock-free-ish negative pre-check only; the map
// stays authoritative so a false positive can never drop a URL.
type Dedup struct {
	mu   sync.Mutex
	seen map[uint64]struct{}
	pre  *bloom.Filter

	phrase *regexp.Regexp // optional exact-phrase post-filter
	after  time.Time      // optional time-slice post-filter
	before time.Time
}

// Option configures a Dedup.
type Option func(*Dedup)

// WithExactPhrase enables the exact-phrase post-filter: a record's title,
// snippet or URL must contain the phrase. Whitespace, hyphens, underscores,
// periods and slashes are tolerated between words.
func WithExactPhrase(phrase string) Option {
	return func(d *Dedup) {
		d.phrase = PhraseRegexp(phrase)
	}
}

// WithTimeSlice enables the time-slice post-filter: records carrying a
// discovery date must fall within [after, before]. Zero bounds are open.
func WithTimeSlice(after, before time.Time) Option {
	return func(d *Dedup) {
		d.after = after
		d.before = before
	}
}

// New creates a Dedup sized for n expected URLs.
func New(n uint, opts ...Option) *Dedup {
	d := &Dedup{
		seen: make(map[uint64]struct{}, n),
		pre:  bloom.NewFilter(n, bloom.DefaultRate),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Add atomically inserts records not already present and returns only the
// freshly added ones, in input order. Records failing a post-filter are
// dropped without being marked seen, so a later record for the same URL that
// does pass can still be emitted.
func (d *Dedup) Add(records ...sweep.URLRecord) []sweep.URLRecord {
	var fresh []sweep.URLRecord
	for _, r := range records {
		if !d.pass(r) {
			continue
		}
		canonical := sweep.CanonicalURL(r.URL)
		key := xxhash.Sum64String(canonical)
		d.mu.Lock()
		_, dup := d.seen[key]
		if !dup {
			d.seen[key] = struct{}{}
		}
		d.mu.Unlock()
		if !dup {
			d.pre.Add(canonical)
			fresh = append(fresh, r)
		}
	}
	return fresh
}

// Seen reports whether a URL has already been emitted. Both the Bloom filter
// and the map are keyed on the canonical form, so any variant of an added URL
// answers true. The pre-check avoids taking the lock for URLs that were
// definitely never added.
func (d *Dedup) Seen(url string) bool {
	canonical := sweep.CanonicalURL(url)
	if !d.pre.Test(canonical) {
		return false
	}
	key := xxhash.Sum64String(canonical)
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[key]
	return ok
}

// Len returns the number of unique URLs emitted so far.
func (d *Dedup) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.seen)
}

// pass applies the post-filters.
func (d *Dedup) pass(r sweep.URLRecord) bool {
	if d.phrase != nil {
		hay := r.Title + " " + r.Snippet + " " + r.URL
		if !d.phrase.MatchString(hay) {
			return false
		}
	}
	if !r.DiscoveredAt.IsZero() {
		if !d.after.IsZero() && r.DiscoveredAt.Before(d.after) {
			return false
		}
		if !d.before.IsZero() && r.DiscoveredAt.After(d.before) {
			return false
		}
	}
	return true
}

// PhraseRegexp builds the case-insensitive exact-phrase matcher. Words must
// appear in order; any run of whitespace, hyphens, underscores, periods or
// slashes may separate them, so "Backward Spyglass" matches
// "backward-spyglass" and "backward/spyglass" but not "spyglass backward".
func PhraseRegexp(phrase string) *regexp.Regexp {
	words := strings.Fields(strings.Trim(phrase, `"`))
	if len(words) == 0 {
		return nil
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = regexp.QuoteMeta(w)
	}
	return regexp.MustCompile(`(?i)` + strings.Join(parts, `[\s\-_./]+`))
}
