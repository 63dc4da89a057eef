// Package plan turns a recall-search request into a deterministic, ordered
// set of leaf queries, one per (engine, base, site-group, locale, extension)
// combination. Identical inputs always produce identical plans; the
// iterative excluder depends on this for its bookkeeping.
package plan

import (
	"fmt"
	"strings"

	"github.com/fwojciec/sweep"
)

// Planner expands PlanRequests against the engine capability table.
type Planner struct {
	// Engines overrides the global capability table; nil uses sweep.Engines.
	Engines map[string]sweep.Engine
}

// Expand produces the query plan. Leaves are ordered engine-major, then
// base, site group, locale, extension. Operators unsupported by an engine
// are dropped, never rewritten.
func (p *Planner) Expand(req sweep.PlanRequest) (*sweep.QueryPlan, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	engines := p.Engines
	if engines == nil {
		engines = sweep.Engines
	}

	codes := req.Engines
	if len(codes) == 0 {
		codes = sweep.EngineCodes()
	}

	bases := req.Bases
	if bases == nil {
		bases = sweep.DefaultBases()
	}

	// Each axis includes an explicit no-filter element so unfiltered
	// variants are always planned.
	siteGroups := append([][]string{nil}, req.SiteGroups...)
	locales := append([]string{""}, req.Locales...)
	exts := append([]string{""}, req.Extensions...)

	qp := &sweep.QueryPlan{Phrase: req.Phrase}
	seq := 0

	for _, code := range codes {
		eng, ok := engines[code]
		if !ok {
			return nil, sweep.Errorf(sweep.EINVALID, "unknown engine %q", code)
		}

		exclusionChunks := chunkExclusions(req.ExcludeDomains, eng)

		for _, base := range bases {
			if !supportsBase(eng, base) {
				continue
			}
			for si, group := range siteGroups {
				for li, locale := range locales {
					for ei, ext := range exts {
						if ext != "" && !eng.SupportsFiletype {
							continue
						}
						// The doc-set clause is fixed, so further
						// extension elements would repeat the same query
						// under a different tag.
						if base == sweep.BaseDocSet && ei > 0 {
							continue
						}
						for _, excl := range exclusionChunks {
							q := buildQuery(eng, req.Phrase, base, group, ext, excl)
							qp.Leaves = append(qp.Leaves, sweep.LeafQuery{
								Tag:       sweep.Tag(base, si, li, ei, seq),
								Query:     q,
								Source:    code,
								Locale:    locale,
								Base:      base,
								SiteGroup: group,
								Extension: ext,
								Iteration: req.Iteration,
							})
							seq++
						}
					}
				}
			}
		}
	}

	return qp, nil
}

// supportsBase reports whether the engine can express the base operator.
func supportsBase(e sweep.Engine, base sweep.BaseOperator) bool {
	switch base {
	case sweep.BaseInTitle:
		return e.SupportsInTitle
	case sweep.BaseInBody:
		return e.SupportsInBody
	case sweep.BaseInURL:
		return e.SupportsInURL
	case sweep.BaseFiletype, sweep.BaseDocSet:
		return e.SupportsFiletype
	}
	return true
}

// buildQuery materializes one leaf query string.
func buildQuery(e sweep.Engine, phrase string, base sweep.BaseOperator, group []string, ext string, excl []string) string {
	var b strings.Builder

	quoted := fmt.Sprintf("%q", phrase)
	switch base {
	case sweep.BasePlain:
		b.WriteString(quoted)
	case sweep.BaseFiletype:
		// The dedicated filetype base defaults to pdf when the extension
		// axis carries no value.
		ft := ext
		if ft == "" {
			ft = "pdf"
		}
		fmt.Fprintf(&b, "%s filetype:%s", quoted, ft)
	case sweep.BaseDocSet:
		fmt.Fprintf(&b, "%s filetype:doc OR filetype:docx", quoted)
	case sweep.BaseInTitle:
		fmt.Fprintf(&b, "intitle:%s", quoted)
	case sweep.BaseInBody:
		fmt.Fprintf(&b, "inbody:%s", quoted)
	case sweep.BaseInURL:
		fmt.Fprintf(&b, "inurl:%s", quoted)
	}

	if len(group) > 0 {
		sites := make([]string, len(group))
		for i, h := range group {
			sites[i] = "site:" + h
		}
		fmt.Fprintf(&b, " (%s)", strings.Join(sites, " OR "))
	}

	// The extension axis qualifies plain/title/body bases; the filetype
	// bases already carry their clause.
	if ext != "" && base != sweep.BaseFiletype && base != sweep.BaseDocSet {
		fmt.Fprintf(&b, " filetype:%s", ext)
	}

	for _, d := range excl {
		if e.SupportsMinusSite {
			fmt.Fprintf(&b, " -site:%s", d)
		} else if e.SupportsNOT {
			fmt.Fprintf(&b, " NOT site:%s", d)
		}
	}

	return b.String()
}

// chunkExclusions splits the exclusion domains into chunks that stay under
// the engine's max-terms limit. With no exclusions it returns a single nil
// chunk so the Cartesian product is unaffected.
func chunkExclusions(domains []string, e sweep.Engine) [][]string {
	if len(domains) == 0 {
		return [][]string{nil}
	}
	size := e.MaxTerms
	if size <= 0 {
		size = 20
	}
	var chunks [][]string
	for start := 0; start < len(domains); start += size {
		end := min(start+size, len(domains))
		chunks = append(chunks, domains[start:end])
	}
	return chunks
}
