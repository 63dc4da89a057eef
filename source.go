package sweep

import (
	"context"
	"time"
)

// Mode selects the depth of a domain-mapping session.
type Mode string

// Recognized modes.
const (
	ModeFast Mode = "fast" // single-call sources only
	ModeDeep Mode = "deep" // includes crawl and deep archive sweeps
)

// Target identifies what is being discovered: a domain (e.g. "example.com")
// or a specific URL whose neighborhood is enumerated.
type Target struct {
	Domain string
	URL    string
}

// Validate returns an error if the target is empty.
func (t Target) Validate() error {
	if t.Domain == "" && t.URL == "" {
		return Errorf(EINVALID, "target domain or URL required")
	}
	return nil
}

// DiscoverOptions carries per-call options into a source adapter.
type DiscoverOptions struct {
	Mode          Mode
	AllowExternal bool // admit URLs outside the target domain
	Limit         int  // max records this adapter should yield, 0 = unbounded

	Filetypes []string // extension filters for filetype-capable sources
	Keyword   string   // content keyword for filetype search

	// Leaf is set when the adapter executes one planned leaf query
	// (search-engine adapters); nil otherwise.
	Leaf *LeafQuery
}

// Validate rejects unrecognized option values at planning time.
func (o DiscoverOptions) Validate() error {
	switch o.Mode {
	case "", ModeFast, ModeDeep:
	default:
		return Errorf(EINVALID, "unrecognized mode %q", o.Mode)
	}
	if o.Limit < 0 {
		return Errorf(EINVALID, "limit must be non-negative")
	}
	return nil
}

// EmitFunc receives one record from an adapter. It returns an error when the
// session is shutting down; adapters must stop producing when it does.
type EmitFunc func(URLRecord) error

// SourceAdapter is the uniform contract for a single discovery source.
//
// Discover produces a finite sequence of URLRecords for the target via emit.
// Implementations must honor ctx cancellation within one retry cycle, must
// not yield URLs outside the target domain unless opts.AllowExternal is set,
// and must return (not panic) on malformed upstream data. A nil error with
// zero emissions is a valid outcome and is distinct from a timeout error.
type SourceAdapter interface {
	// ID returns the stable source identifier, e.g. "crt.sh" or "wayback".
	ID() string

	Discover(ctx context.Context, target Target, opts DiscoverOptions, emit EmitFunc) error
}

// SourceStats summarizes one adapter's contribution to a session.
type SourceStats struct {
	Source   string        `json:"source"`
	Records  int           `json:"records"`
	Errors   int           `json:"errors"`
	Elapsed  time.Duration `json:"elapsed"`
	LastErr  string        `json:"lastError,omitempty"`
	Disabled bool          `json:"disabled,omitempty"` // permission failure shut it down
}

// Summary is attached to every session response.
type Summary struct {
	Total       int           `json:"total"`
	SourcesUsed []string      `json:"sourcesUsed"`
	Stats       []SourceStats `json:"stats"`
	Errors      []string      `json:"errors"`
	Elapsed     time.Duration `json:"elapsed"`
}

// Failed reports whether no adapter ran to completion. A session succeeds
// whenever at least one adapter completed, even with zero records.
func (s *Summary) Failed() bool {
	if len(s.Stats) == 0 {
		return true
	}
	for _, st := range s.Stats {
		if st.LastErr == "" || st.Records > 0 {
			return false
		}
	}
	return true
}
