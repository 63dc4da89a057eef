package discover_test

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/discover"
	"github.com/fwojciec/sweep/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exclusionSERP simulates the domain-clustering behavior the excluder works
// around: the plain query surfaces two domains, and only once those are
// excluded does the third domain appear.
type exclusionSERP struct {
	mu      sync.Mutex
	queries []string
}

func (s *exclusionSERP) Search(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
	s.mu.Lock()
	s.queries = append(s.queries, query)
	s.mu.Unlock()

	if !strings.Contains(query, "-site:") {
		return []sweep.ResultRecord{
			{URL: "https://alpha.example/report", Title: "Backward Spyglass report", Engine: engine, Query: query},
			{URL: "https://beta.example/mirror", Title: "Backward Spyglass mirror", Engine: engine, Query: query},
		}, nil
	}
	if !strings.Contains(query, "-site:gamma.example") {
		return []sweep.ResultRecord{
			{URL: "https://gamma.example/copy", Title: "Backward Spyglass copy", Engine: engine, Query: query},
		}, nil
	}
	return nil, nil
}

func recallOpts() discover.RecallOptions {
	return discover.RecallOptions{
		Engines:     []string{"google"},
		Bases:       []sweep.BaseOperator{sweep.BasePlain},
		EngineRPS:   1000,
		PoliteDelay: -1,
	}
}

func TestSession_RecallSearch_IterativeExclusion(t *testing.T) {
	t.Parallel()

	serp := &exclusionSERP{}
	session := &discover.Session{SERP: serp}

	run, err := session.RecallSearch(context.Background(), "Backward Spyglass", recallOpts())
	require.NoError(t, err)

	var results []sweep.ResultRecord
	for r := range run.Results {
		results = append(results, r)
	}
	summary := run.Wait()

	require.Len(t, results, 3)
	assert.Equal(t, 3, summary.Total)

	byDomain := make(map[string]sweep.ResultRecord)
	for _, r := range results {
		host := strings.TrimPrefix(strings.Split(r.URL, "/")[2], "www.")
		byDomain[host] = r
	}

	// First-pass hits are untagged; the exclusion-pass hit carries the
	// exception tag and its iteration number.
	assert.Zero(t, byDomain["alpha.example"].Iteration)
	assert.NotEqual(t, sweep.SearchTypeException, byDomain["alpha.example"].SearchType)
	assert.Equal(t, sweep.SearchTypeException, byDomain["gamma.example"].SearchType)
	assert.Equal(t, 1, byDomain["gamma.example"].Iteration)

	// Each exclusion list is a superset of the previous iteration's.
	serp.mu.Lock()
	defer serp.mu.Unlock()
	var exclusionQueries []string
	for _, q := range serp.queries {
		if strings.Contains(q, "-site:") {
			exclusionQueries = append(exclusionQueries, q)
		}
	}
	require.GreaterOrEqual(t, len(exclusionQueries), 2)
	first, second := exclusionQueries[0], exclusionQueries[1]
	assert.Contains(t, first, "-site:alpha.example")
	assert.Contains(t, first, "-site:beta.example")
	assert.NotContains(t, first, "gamma.example")
	assert.Contains(t, second, "-site:alpha.example")
	assert.Contains(t, second, "-site:beta.example")
	assert.Contains(t, second, "-site:gamma.example")
}

func TestSession_RecallSearch_StopsOnZeroNewResults(t *testing.T) {
	t.Parallel()

	serp := &exclusionSERP{}
	session := &discover.Session{SERP: serp}
	opts := recallOpts()
	opts.MaxIterations = 10

	run, err := session.RecallSearch(context.Background(), "Backward Spyglass", opts)
	require.NoError(t, err)
	for range run.Results {
	}
	run.Wait()

	// One plain pass, one productive exclusion pass, one empty pass.
	serp.mu.Lock()
	defer serp.mu.Unlock()
	assert.Len(t, serp.queries, 3)
}

func TestSession_RecallSearch_QuotedPhraseFilter(t *testing.T) {
	t.Parallel()

	serp := &mock.SERPClient{
		SearchFn: func(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
			return []sweep.ResultRecord{
				{URL: "https://a.example/1", Title: "Backward Spyglass announcement", Engine: engine},
				{URL: "https://b.example/2", Title: "unrelated listing", Engine: engine},
				{URL: "https://c.example/backward-spyglass", Title: "no title", Engine: engine},
			}, nil
		},
	}
	session := &discover.Session{SERP: serp}
	opts := recallOpts()
	opts.MaxIterations = -1

	run, err := session.RecallSearch(context.Background(), `"Backward Spyglass"`, opts)
	require.NoError(t, err)

	var urls []string
	for r := range run.Results {
		urls = append(urls, r.URL)
	}
	run.Wait()

	// The phrase must appear in title, snippet or URL; hyphens count as
	// word separators.
	assert.ElementsMatch(t, []string{"https://a.example/1", "https://c.example/backward-spyglass"}, urls)
}

func TestSession_RecallSearch_PoliteDelaySpacesQueries(t *testing.T) {
	t.Parallel()

	serp := &mock.SERPClient{
		SearchFn: func(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
			return nil, nil
		},
	}
	session := &discover.Session{SERP: serp}
	opts := recallOpts()
	opts.Extensions = []string{"pdf", "doc"} // three leaves with the no-filter axis element
	opts.Concurrency = 1
	opts.MaxIterations = -1
	opts.PoliteDelay = 40 * time.Millisecond

	start := time.Now()
	run, err := session.RecallSearch(context.Background(), "Backward Spyglass", opts)
	require.NoError(t, err)
	for range run.Results {
	}
	run.Wait()

	// Jitter bottoms out at half the base delay, so three serialized leaves
	// take at least 3 x 20ms.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestSession_RecallSearch_EngineFailureIsRecoverable(t *testing.T) {
	t.Parallel()

	serp := &mock.SERPClient{
		SearchFn: func(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
			return nil, sweep.Errorf(sweep.ERATELIMITED, "captcha wall")
		},
	}
	session := &discover.Session{SERP: serp}
	opts := recallOpts()
	opts.MaxIterations = -1

	run, err := session.RecallSearch(context.Background(), "Backward Spyglass", opts)
	require.NoError(t, err)
	for range run.Results {
	}
	summary := run.Wait()

	assert.Zero(t, summary.Total)
	assert.NotEmpty(t, summary.Errors)
}

func TestSession_RecallSearch_InvalidRequest(t *testing.T) {
	t.Parallel()

	session := &discover.Session{SERP: &mock.SERPClient{}}

	_, err := session.RecallSearch(context.Background(), "", recallOpts())
	require.Error(t, err)
	assert.Equal(t, sweep.EINVALID, sweep.ErrorCode(err))

	opts := recallOpts()
	opts.Engines = []string{"altavista"}
	_, err = session.RecallSearch(context.Background(), "phrase", opts)
	require.Error(t, err)
	assert.Equal(t, sweep.EINVALID, sweep.ErrorCode(err))
}
