package sweep

import "fmt"

// BaseOperator selects the query template applied before site, locale and
// extension axes are expanded.
type BaseOperator string

// Recognized base operators.
const (
	BasePlain    BaseOperator = "PLAIN"    // "phrase"
	BaseFiletype BaseOperator = "FILETYPE" // "phrase" filetype:ext
	BaseDocSet   BaseOperator = "DOCSET"   // "phrase" filetype:doc OR filetype:docx
	BaseInTitle  BaseOperator = "INTITLE"  // intitle:"phrase"
	BaseInBody   BaseOperator = "INBODY"   // inbody:"phrase"
	BaseInURL    BaseOperator = "INURL"    // inurl:phrase
)

// DefaultBases is the standard operator set for recall search.
func DefaultBases() []BaseOperator {
	return []BaseOperator{BasePlain, BaseFiletype, BaseDocSet, BaseInTitle, BaseInBody}
}

// PlanRequest describes what the planner should expand.
type PlanRequest struct {
	Phrase string

	// Engines to plan for; empty means every engine in the capability table.
	Engines []string

	// SiteGroups are chunked lists of host patterns; each chunk becomes one
	// (site:a OR site:b ...) block. A nil element axis entry (no site filter)
	// is always included.
	SiteGroups [][]string

	// Locales are market codes (e.g. "en-US"); the no-locale variant is
	// always included.
	Locales []string

	// Extensions are filetype extensions; the no-extension variant is always
	// included.
	Extensions []string

	// Bases selects operators; nil means DefaultBases.
	Bases []BaseOperator

	// ExcludeDomains adds exclusion clauses to every leaf (iterative
	// excluder). Chunked to fit each engine's MaxTerms.
	ExcludeDomains []string

	// Iteration is stamped onto leaves for tracing; 0 for the first pass.
	Iteration int
}

// Validate rejects unusable requests before any network work.
func (r *PlanRequest) Validate() error {
	if r.Phrase == "" {
		return Errorf(EINVALID, "plan phrase required")
	}
	for _, code := range r.Engines {
		if _, ok := Engines[code]; !ok {
			return Errorf(EINVALID, "unknown engine %q", code)
		}
	}
	for _, b := range r.Bases {
		switch b {
		case BasePlain, BaseFiletype, BaseDocSet, BaseInTitle, BaseInBody, BaseInURL:
		default:
			return Errorf(EINVALID, "unknown base operator %q", b)
		}
	}
	return nil
}

// LeafQuery is one fully materialized query for one source adapter.
type LeafQuery struct {
	Tag    string // stable trace tag: {Base}-S{i}-L{j}-E{k}_{seq}
	Query  string // final query string submitted to the engine
	Source string // engine/adapter id
	Locale string // market code, "" for none

	Base      BaseOperator
	SiteGroup []string // host patterns in this leaf's site chunk, nil for none
	Extension string   // "" for none
	Iteration int
}

// QueryPlan is a deterministic, ordered fan-out of leaves. Identical inputs
// always produce identical plans.
type QueryPlan struct {
	Phrase string
	Leaves []LeafQuery
}

// Tag formats a stable leaf tag.
func Tag(base BaseOperator, siteIdx, localeIdx, extIdx, seq int) string {
	return fmt.Sprintf("%s-S%d-L%d-E%d_%d", base, siteIdx, localeIdx, extIdx, seq)
}
