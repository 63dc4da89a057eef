package sweep

import "time"

// Extraction methods reported on ContentMatch.
const (
	ExtractionCloud   = "cloud"
	ExtractionArchive = "archive"
	ExtractionLocal   = "local"
	ExtractionVision  = "vision"
)

// FiletypeRequest asks for documents of specific types on a domain, with an
// optional keyword searched inside fetched PDFs.
type FiletypeRequest struct {
	Domain  string
	Types   []string // extensions, e.g. "pdf", "docx"
	Keyword string   // optional; enables the content-search cascade
	Limit   int
}

// Validate returns an error if the request cannot be planned.
func (r *FiletypeRequest) Validate() error {
	if r.Domain == "" {
		return Errorf(EINVALID, "filetype request domain required")
	}
	if len(r.Types) == 0 {
		return Errorf(EINVALID, "filetype request needs at least one type")
	}
	return nil
}

// ContentMatch reports keyword occurrences inside one fetched document.
type ContentMatch struct {
	URL              string `json:"url"`
	KeywordMatches   int    `json:"keywordMatches"`
	Snippet          string `json:"snippet,omitempty"` // ±200 chars around the first hit
	ExtractionMethod string `json:"extractionMethod"`
}

// FiletypeResponse is the full result of a filetype discovery run.
type FiletypeResponse struct {
	Results        []URLRecord    `json:"results"`
	ContentMatches []ContentMatch `json:"contentMatches,omitempty"` // sorted by matches desc
	SourcesUsed    []string       `json:"sourcesUsed"`
	Elapsed        time.Duration  `json:"elapsed"`
	Logs           []LogEntry     `json:"logs"`
	Summary        Summary        `json:"summary"`
}
