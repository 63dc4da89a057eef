package plan_test

import (
	"strings"
	"testing"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/plan"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeEngine supports everything, so no leaves are dropped.
var fakeEngine = sweep.Engine{
	Code: "fake", Badge: "F",
	SupportsMinusSite: true,
	SupportsInTitle:   true,
	SupportsInBody:    true,
	SupportsInURL:     true,
	SupportsFiletype:  true,
	MaxTerms:          20,
}

func fullPlanner() *plan.Planner {
	return &plan.Planner{Engines: map[string]sweep.Engine{"fake": fakeEngine}}
}

func TestPlanner_CountLaw(t *testing.T) {
	t.Parallel()

	p := fullPlanner()
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:     "widget foo",
		Engines:    []string{"fake"},
		SiteGroups: [][]string{{"*.gov"}},
		Extensions: []string{"pdf"},
	})
	require.NoError(t, err)

	// |bases|=5 x |siteGroups+None|=2 x |locales+None|=1 x |exts+None|=2,
	// minus the extension axis for DOCSET, whose clause is fixed.
	assert.Len(t, qp.Leaves, 4*2*1*2+1*2*1*1)
}

func TestPlanner_DocSetCollapsesExtensionAxis(t *testing.T) {
	t.Parallel()

	p := fullPlanner()
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:     "widget foo",
		Engines:    []string{"fake"},
		Bases:      []sweep.BaseOperator{sweep.BaseDocSet},
		Extensions: []string{"pdf", "xlsx"},
	})
	require.NoError(t, err)

	// One leaf, not one per extension element: the extension value never
	// reaches the doc-set query, so extra elements would only duplicate it.
	require.Len(t, qp.Leaves, 1)
	assert.Contains(t, qp.Leaves[0].Query, "filetype:doc OR filetype:docx")
}

func TestPlanner_Deterministic(t *testing.T) {
	t.Parallel()

	req := sweep.PlanRequest{
		Phrase:     "widget foo",
		Engines:    []string{"fake"},
		SiteGroups: [][]string{{"a.gov", "b.gov"}},
		Locales:    []string{"en-US"},
		Extensions: []string{"pdf", "xlsx"},
	}

	p := fullPlanner()
	a, err := p.Expand(req)
	require.NoError(t, err)
	b, err := p.Expand(req)
	require.NoError(t, err)

	require.Equal(t, len(a.Leaves), len(b.Leaves))
	for i := range a.Leaves {
		assert.Equal(t, a.Leaves[i], b.Leaves[i])
	}
}

func TestPlanner_DropsUnsupportedOperators(t *testing.T) {
	t.Parallel()

	limited := fakeEngine
	limited.Code = "limited"
	limited.SupportsInBody = false
	limited.SupportsFiletype = false

	p := &plan.Planner{Engines: map[string]sweep.Engine{"limited": limited}}
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:     "widget foo",
		Engines:    []string{"limited"},
		Extensions: []string{"pdf"},
	})
	require.NoError(t, err)

	for _, leaf := range qp.Leaves {
		assert.NotContains(t, leaf.Query, "inbody:")
		assert.NotContains(t, leaf.Query, "filetype:")
	}
	// PLAIN and INTITLE survive, extension axis collapsed to None.
	assert.Len(t, qp.Leaves, 2)
}

func TestPlanner_QueryShapes(t *testing.T) {
	t.Parallel()

	p := fullPlanner()
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:     "widget foo",
		Engines:    []string{"fake"},
		SiteGroups: [][]string{{"a.gov", "b.gov"}},
	})
	require.NoError(t, err)

	byBase := map[sweep.BaseOperator][]sweep.LeafQuery{}
	for _, l := range qp.Leaves {
		byBase[l.Base] = append(byBase[l.Base], l)
	}

	assert.Equal(t, `"widget foo"`, byBase[sweep.BasePlain][0].Query)
	assert.Equal(t, `"widget foo" filetype:pdf`, byBase[sweep.BaseFiletype][0].Query)
	assert.Equal(t, `"widget foo" filetype:doc OR filetype:docx`, byBase[sweep.BaseDocSet][0].Query)
	assert.Equal(t, `intitle:"widget foo"`, byBase[sweep.BaseInTitle][0].Query)
	assert.Equal(t, `inbody:"widget foo"`, byBase[sweep.BaseInBody][0].Query)

	// Second site-group element carries the OR block.
	assert.Equal(t, `"widget foo" (site:a.gov OR site:b.gov)`, byBase[sweep.BasePlain][1].Query)
}

func TestPlanner_ExclusionChunks(t *testing.T) {
	t.Parallel()

	small := fakeEngine
	small.Code = "small"
	small.MaxTerms = 2

	p := &plan.Planner{Engines: map[string]sweep.Engine{"small": small}}
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:         "widget foo",
		Engines:        []string{"small"},
		Bases:          []sweep.BaseOperator{sweep.BasePlain},
		ExcludeDomains: []string{"a.gov", "b.gov", "c.gov"},
		Iteration:      2,
	})
	require.NoError(t, err)

	// 3 exclusions at MaxTerms=2 -> 2 chunks per combination.
	require.Len(t, qp.Leaves, 2)
	assert.Equal(t, `"widget foo" -site:a.gov -site:b.gov`, qp.Leaves[0].Query)
	assert.Equal(t, `"widget foo" -site:c.gov`, qp.Leaves[1].Query)
	assert.Equal(t, 2, qp.Leaves[0].Iteration)
}

func TestPlanner_NOTFallback(t *testing.T) {
	t.Parallel()

	notOnly := fakeEngine
	notOnly.Code = "notonly"
	notOnly.SupportsMinusSite = false
	notOnly.SupportsNOT = true

	p := &plan.Planner{Engines: map[string]sweep.Engine{"notonly": notOnly}}
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:         "widget foo",
		Engines:        []string{"notonly"},
		Bases:          []sweep.BaseOperator{sweep.BasePlain},
		ExcludeDomains: []string{"a.gov"},
	})
	require.NoError(t, err)

	require.Len(t, qp.Leaves, 1)
	assert.Equal(t, `"widget foo" NOT site:a.gov`, qp.Leaves[0].Query)
	assert.NotContains(t, qp.Leaves[0].Query, "-site:")
}

func TestPlanner_StableTags(t *testing.T) {
	t.Parallel()

	p := fullPlanner()
	qp, err := p.Expand(sweep.PlanRequest{
		Phrase:  "widget foo",
		Engines: []string{"fake"},
		Bases:   []sweep.BaseOperator{sweep.BaseInTitle},
	})
	require.NoError(t, err)

	require.Len(t, qp.Leaves, 1)
	assert.True(t, strings.HasPrefix(qp.Leaves[0].Tag, "INTITLE-S0-L0-E0_"), qp.Leaves[0].Tag)
}

func TestPlanner_RejectsUnknownEngine(t *testing.T) {
	t.Parallel()

	p := &plan.Planner{}
	_, err := p.Expand(sweep.PlanRequest{Phrase: "x", Engines: []string{"altavista"}})
	assert.Equal(t, sweep.EINVALID, sweep.ErrorCode(err))
}
