// Package fanout executes discovery tasks concurrently: a bounded worker
// pool per source, a token bucket per source, and one shared output channel
// closed after every worker completes. One task's failure never terminates
// the run; errors are captured in per-source stats.
package fanout

import (
	"context"
	"sync"
	"time"

	"github.com/fwojciec/sweep"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// Task is one unit of work bound to a source. Run emits records via emit and
// returns an error only for its own bookkeeping; the runner never propagates
// it past the stats.
type Task struct {
	Source string
	Run    func(ctx context.Context, emit sweep.EmitFunc) error
}

// DefaultPoliteDelay is the base inter-task delay for sources that scrape
// pages rather than call APIs. Jittered by PoliteSleep it lands in the
// 0.25-0.75s range per task.
const DefaultPoliteDelay = 500 * time.Millisecond

// SourceConfig tunes one source's pool. Zero values fall back to defaults.
type SourceConfig struct {
	Workers     int           // pool size; default 4
	RPS         float64       // token bucket refill; default 5/s
	Timeout     time.Duration // per-task deadline; default 30s
	PoliteDelay time.Duration // base inter-task delay, jittered ±50%; 0 disables
	Retry       *RetryPolicy  // nil uses DefaultRetryPolicy
}

func (c SourceConfig) withDefaults() SourceConfig {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.RPS <= 0 {
		c.RPS = 5
	}
	if c.Timeout <= 0 {
		c.Timeout = 30 * time.Second
	}
	return c
}

// Runner dispatches tasks grouped by source.
type Runner struct {
	// Configs tunes individual sources; sources not present use Default.
	Configs map[string]SourceConfig
	Default SourceConfig

	// Logs receives per-source progress events; may be nil.
	Logs *sweep.LogStream

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Run starts all tasks and returns immediately. Records arrive on the
// returned channel in arrival order (no cross-source ordering); the channel
// is closed once every worker has finished. Wait blocks for completion and
// returns the summary.
type Run struct {
	Records <-chan sweep.URLRecord

	done    chan struct{}
	summary sweep.Summary
}

// Wait blocks until all workers signal completion, then returns the summary
// with per-source record and error counts.
func (r *Run) Wait() sweep.Summary {
	<-r.done
	return r.summary
}

// Start executes the tasks. The caller must drain Records (or cancel ctx) or
// workers will block on the shared channel.
func (r *Runner) Start(ctx context.Context, tasks []Task) *Run {
	out := make(chan sweep.URLRecord, 64)
	run := &Run{Records: out, done: make(chan struct{})}

	bySource := make(map[string][]Task)
	var order []string
	for _, t := range tasks {
		if _, ok := bySource[t.Source]; !ok {
			order = append(order, t.Source)
		}
		bySource[t.Source] = append(bySource[t.Source], t)
	}

	stats := make(map[string]*sweep.SourceStats, len(order))
	var statsMu sync.Mutex
	for _, src := range order {
		stats[src] = &sweep.SourceStats{Source: src}
	}

	started := time.Now()
	var wg sync.WaitGroup
	for _, src := range order {
		src := src
		cfg := r.configFor(src)
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.runSource(ctx, src, cfg, bySource[src], out, stats[src], &statsMu)
		}()
	}

	go func() {
		wg.Wait()
		close(out)

		summary := sweep.Summary{Elapsed: time.Since(started)}
		for _, src := range order {
			st := stats[src]
			summary.Total += st.Records
			summary.SourcesUsed = append(summary.SourcesUsed, src)
			summary.Stats = append(summary.Stats, *st)
			if st.LastErr != "" {
				summary.Errors = append(summary.Errors, src+": "+st.LastErr)
			}
		}
		run.summary = summary
		close(run.done)
	}()

	return run
}

// runSource drives one source's bounded pool to completion.
func (r *Runner) runSource(ctx context.Context, src string, cfg SourceConfig, tasks []Task, out chan<- sweep.URLRecord, st *sweep.SourceStats, statsMu *sync.Mutex) {
	begin := time.Now()
	limiter := r.limiterFor(src, cfg)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.Workers)

	disabled := false
	for _, task := range tasks {
		task := task
		statsMu.Lock()
		stop := disabled
		statsMu.Unlock()
		if stop {
			break
		}

		g.Go(func() error {
			if err := limiter.Wait(gctx); err != nil {
				return nil
			}
			PoliteSleep(gctx, cfg.PoliteDelay)

			emit := func(rec sweep.URLRecord) error {
				select {
				case out <- rec:
					statsMu.Lock()
					st.Records++
					statsMu.Unlock()
					return nil
				case <-gctx.Done():
					return sweep.WrapError(sweep.ECANCELED, gctx.Err(), "emit after cancel")
				}
			}

			policy := DefaultRetryPolicy()
			if cfg.Retry != nil {
				policy = *cfg.Retry
			}

			err := Retry(gctx, policy, func(rctx context.Context) error {
				tctx, cancel := context.WithTimeout(rctx, cfg.Timeout)
				defer cancel()
				return task.Run(tctx, emit)
			})
			if err != nil {
				statsMu.Lock()
				st.Errors++
				st.LastErr = err.Error()
				if sweep.ErrorCode(err) == sweep.EPERMISSION {
					// 401/403/quota: shed the source's remaining work and
					// report once.
					st.Disabled = true
					disabled = true
				}
				statsMu.Unlock()
				if r.Logs != nil {
					r.Logs.Append(src, "task failed: "+err.Error(), 0)
				}
			}
			return nil
		})
	}
	_ = g.Wait()

	statsMu.Lock()
	st.Elapsed = time.Since(begin)
	records := st.Records
	statsMu.Unlock()
	if r.Logs != nil {
		r.Logs.Append(src, "completed", records)
	}
}

// limiterFor returns the per-source token bucket. Buckets are keyed by
// source id and survive individual runs on the same Runner.
func (r *Runner) limiterFor(src string, cfg SourceConfig) *rate.Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.limiters == nil {
		r.limiters = make(map[string]*rate.Limiter)
	}
	l, ok := r.limiters[src]
	if !ok {
		l = rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Workers)
		r.limiters[src] = l
	}
	return l
}

func (r *Runner) configFor(src string) SourceConfig {
	if cfg, ok := r.Configs[src]; ok {
		return cfg.withDefaults()
	}
	return r.Default.withDefaults()
}

// PoliteSleep inserts the jittered inter-task delay used to look less like a
// burst of automation on scrape sources. It returns early when ctx is done.
func PoliteSleep(ctx context.Context, base time.Duration) {
	if base <= 0 {
		return
	}
	select {
	case <-ctx.Done():
	case <-time.After(jitter(base)):
	}
}
