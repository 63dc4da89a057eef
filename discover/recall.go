package discover

import (
	"context"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/dedup"
	"github.com/fwojciec/sweep/fanout"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// DefaultMaxIterations bounds the exclusion passes after the main fan-out.
const DefaultMaxIterations = 3

// RecallOptions parameterizes a recall search.
type RecallOptions struct {
	// Engines restricts the plan; empty uses every engine in the table.
	Engines []string

	SiteGroups [][]string
	Locales    []string
	Extensions []string
	Bases      []sweep.BaseOperator

	// PerQueryLimit is the hit count requested per leaf query. Default 30.
	PerQueryLimit int

	// Concurrency bounds parallel leaf execution. Default 8.
	Concurrency int

	// EngineRPS is each engine's token-bucket rate. Default 1/s.
	EngineRPS float64

	// PoliteDelay is the base inter-query delay per engine, jittered ±50%.
	// 0 uses fanout.DefaultPoliteDelay since every engine here is scraped;
	// negative disables the delay.
	PoliteDelay time.Duration

	// MaxIterations bounds exclusion passes; 0 uses DefaultMaxIterations,
	// negative disables them.
	MaxIterations int

	// After and Before bound record dates when set.
	After, Before time.Time
}

// RecallRun is a live recall-search stream.
type RecallRun struct {
	Results <-chan sweep.ResultRecord

	done    chan struct{}
	summary sweep.Summary
	logs    *sweep.LogStream
}

// Wait blocks until the run completes, including exclusion iterations.
func (r *RecallRun) Wait() sweep.Summary {
	<-r.done
	return r.summary
}

// Logs returns the progress entries accumulated so far.
func (r *RecallRun) Logs() []sweep.LogEntry {
	return r.logs.Entries()
}

// RecallSearch maximizes recall for an exact phrase: the planned fan-out
// runs first, then up to MaxIterations exclusion passes re-query with
// already-seen domains excluded, surfacing results the engines were hiding
// behind domain clustering. Exclusion-pass records carry
// search_type="exception" and their iteration number.
func (s *Session) RecallSearch(ctx context.Context, phrase string, opts RecallOptions) (*RecallRun, error) {
	if s.SERP == nil {
		return nil, sweep.Errorf(sweep.EINVALID, "recall search not configured")
	}

	quoted := strings.HasPrefix(phrase, `"`) && strings.HasSuffix(phrase, `"`) && len(phrase) > 1
	bare := strings.Trim(phrase, `"`)

	req := sweep.PlanRequest{
		Phrase:     bare,
		Engines:    opts.Engines,
		SiteGroups: opts.SiteGroups,
		Locales:    opts.Locales,
		Extensions: opts.Extensions,
		Bases:      opts.Bases,
	}
	// Config errors are the only fatal ones; surface them before any
	// network work.
	firstPlan, err := s.Planner.Expand(req)
	if err != nil {
		return nil, err
	}

	dedupOpts := []dedup.Option{}
	if quoted {
		dedupOpts = append(dedupOpts, dedup.WithExactPhrase(bare))
	}
	if !opts.After.IsZero() || !opts.Before.IsZero() {
		dedupOpts = append(dedupOpts, dedup.WithTimeSlice(opts.After, opts.Before))
	}

	out := make(chan sweep.ResultRecord, 64)
	logs := sweep.NewLogStream()
	run := &RecallRun{Results: out, done: make(chan struct{}), logs: logs}

	go func() {
		defer close(run.done)
		defer close(out)

		begin := time.Now()
		polite := opts.PoliteDelay
		if polite == 0 {
			polite = fanout.DefaultPoliteDelay
		}
		exec := &recallExecutor{
			serp:     s.SERP,
			seen:     dedup.New(4096, dedupOpts...),
			out:      out,
			logs:     logs,
			limiters: make(map[string]*rate.Limiter),
			stats:    make(map[string]*sweep.SourceStats),
			rps:      opts.EngineRPS,
			limit:    opts.PerQueryLimit,
			workers:  opts.Concurrency,
			polite:   polite,
		}

		exec.runPlan(ctx, firstPlan)
		logs.Append("planner", "main fan-out complete", exec.fresh)

		maxIter := opts.MaxIterations
		if maxIter == 0 {
			maxIter = DefaultMaxIterations
		}
		for i := 1; i <= maxIter && ctx.Err() == nil; i++ {
			// Snapshot the domain set before planning so every worker in
			// this pass excludes the same list; domains discovered during
			// the pass join the next snapshot.
			excl := exec.domainSnapshot()
			if len(excl) == 0 {
				break
			}
			iterReq := req
			iterReq.ExcludeDomains = excl
			iterReq.Iteration = i

			iterPlan, err := s.Planner.Expand(iterReq)
			if err != nil {
				logs.Append("planner", "exclusion expand failed: "+err.Error(), 0)
				break
			}

			before := exec.fresh
			exec.runPlan(ctx, iterPlan)
			gained := exec.fresh - before
			logs.Append("planner", "exclusion pass complete", gained)
			if gained == 0 {
				break
			}
		}

		run.summary = exec.summarize(time.Since(begin))
	}()

	return run, nil
}

// recallExecutor runs one plan's leaves and carries state across iterations.
type recallExecutor struct {
	serp sweep.SERPClient
	seen *dedup.Dedup
	out  chan<- sweep.ResultRecord
	logs *sweep.LogStream

	rps     float64
	limit   int
	workers int
	polite  time.Duration

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
	stats    map[string]*sweep.SourceStats
	order    []string
	domains  map[string]bool
	fresh    int
}

func (e *recallExecutor) runPlan(ctx context.Context, qp *sweep.QueryPlan) {
	workers := e.workers
	if workers <= 0 {
		workers = 8
	}
	limit := e.limit
	if limit <= 0 {
		limit = 30
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, leaf := range qp.Leaves {
		leaf := leaf
		g.Go(func() error {
			if err := e.limiterFor(leaf.Source).Wait(gctx); err != nil {
				return nil
			}
			fanout.PoliteSleep(gctx, e.polite)

			hits, err := e.serp.Search(gctx, leaf.Source, leaf.Query, leaf.Locale, limit)
			if err != nil {
				e.fail(leaf.Source, err)
				e.logs.Append(leaf.Source, leaf.Tag+" failed: "+err.Error(), 0)
				return nil
			}

			emitted := 0
			for _, hit := range hits {
				if leaf.Iteration > 0 {
					hit.SearchType = sweep.SearchTypeException
					hit.Iteration = leaf.Iteration
				}
				if e.emit(gctx, hit, leaf.Source) {
					emitted++
				}
			}
			e.logs.Append(leaf.Source, leaf.Tag, emitted)
			return nil
		})
	}
	_ = g.Wait()
}

// emit passes the hit through dedup and streams it if fresh. Returns whether
// the hit was new.
func (e *recallExecutor) emit(ctx context.Context, hit sweep.ResultRecord, source string) bool {
	if len(e.seen.Add(hit.Record())) == 0 {
		return false
	}

	e.mu.Lock()
	e.statFor(source).Records++
	e.fresh++
	if host := hostOf(hit.URL); host != "" {
		if e.domains == nil {
			e.domains = make(map[string]bool)
		}
		e.domains[host] = true
	}
	e.mu.Unlock()

	select {
	case e.out <- hit:
		return true
	case <-ctx.Done():
		return false
	}
}

// domainSnapshot returns the sorted domains seen so far. The set only ever
// grows, so each iteration's exclusion list is a superset of the previous.
func (e *recallExecutor) domainSnapshot() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.domains))
	for d := range e.domains {
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

func (e *recallExecutor) fail(source string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	st := e.statFor(source)
	st.Errors++
	st.LastErr = err.Error()
}

// statFor must be called with mu held.
func (e *recallExecutor) statFor(source string) *sweep.SourceStats {
	st, ok := e.stats[source]
	if !ok {
		st = &sweep.SourceStats{Source: source}
		e.stats[source] = st
		e.order = append(e.order, source)
	}
	return st
}

func (e *recallExecutor) limiterFor(source string) *rate.Limiter {
	e.mu.Lock()
	defer e.mu.Unlock()
	l, ok := e.limiters[source]
	if !ok {
		rps := e.rps
		if rps <= 0 {
			rps = 1
		}
		l = rate.NewLimiter(rate.Limit(rps), 1)
		e.limiters[source] = l
	}
	return l
}

func (e *recallExecutor) summarize(elapsed time.Duration) sweep.Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	summary := sweep.Summary{Total: e.fresh, Elapsed: elapsed}
	for _, src := range e.order {
		st := e.stats[src]
		summary.SourcesUsed = append(summary.SourcesUsed, src)
		summary.Stats = append(summary.Stats, *st)
		if st.LastErr != "" {
			summary.Errors = append(summary.Errors, src+": "+st.LastErr)
		}
	}
	return summary
}

func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Hostname())
}
