package sweep

import "time"

// BacklinkOptions controls a backlink discovery run.
type BacklinkOptions struct {
	IncludeAnchorText bool
	IncludeArchives   bool
	TopDomains        int    // host-level candidates to expand at page level
	Archive           string // specific archive id, "" = latest
}

// BacklinkResult is the outcome of a backlink discovery run.
type BacklinkResult struct {
	Links     []LinkRecord  `json:"links"`
	Providers []string      `json:"providers"` // which providers contributed
	Elapsed   time.Duration `json:"elapsed"`
	Logs      []LogEntry    `json:"logs"`
	Summary   Summary       `json:"summary"`
}
