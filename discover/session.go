// Package discover wires the discovery building blocks into the four
// session operations: domain mapping, recall search, backlink discovery and
// filetype discovery. A session holds no cross-run state; only what the
// caller opts to write into the local index survives.
package discover

import (
	"context"
	"time"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/backlink"
	"github.com/fwojciec/sweep/dedup"
	"github.com/fwojciec/sweep/fanout"
	"github.com/fwojciec/sweep/filetype"
	"github.com/fwojciec/sweep/plan"
)

// Session executes discovery operations over an injected set of adapters
// and capabilities.
type Session struct {
	// Sources are the domain-mapping adapters, fanned out by DiscoverDomain.
	Sources []sweep.SourceAdapter

	// SERP executes engine queries for RecallSearch.
	SERP sweep.SERPClient

	// Planner expands recall requests; the zero value uses the built-in
	// engine table.
	Planner plan.Planner

	// Runner executes domain-mapping fan-outs; a zero Runner is usable.
	Runner fanout.Runner

	// Backlinks and Filetypes run their respective pipelines; nil disables
	// the operation.
	Backlinks *backlink.Core
	Filetypes *filetype.Cascade

	// Index receives discovered URLs when a request opts into recording;
	// nil disables write-back.
	Index sweep.LocalIndex
}

// DomainRequest parameterizes one DiscoverDomain run.
type DomainRequest struct {
	Target  sweep.Target
	Options sweep.DiscoverOptions

	// Sources restricts the run to the named adapter ids; empty runs all.
	Sources []string

	// Record writes the results into the session's local index.
	Record bool
}

// DomainRun is a live domain-mapping stream. Records arrive as adapters
// produce them; Wait blocks for completion and returns the summary.
type DomainRun struct {
	Records <-chan sweep.URLRecord

	done    chan struct{}
	summary sweep.Summary
	logs    *sweep.LogStream
}

// Wait blocks until every adapter has finished.
func (r *DomainRun) Wait() sweep.Summary {
	<-r.done
	return r.summary
}

// Logs returns the progress entries accumulated so far.
func (r *DomainRun) Logs() []sweep.LogEntry {
	return r.logs.Entries()
}

// DiscoverDomain fans every selected adapter out against the target and
// streams deduplicated records. Adapter failures are captured in the
// summary, never raised; the call fails only on an invalid request.
func (s *Session) DiscoverDomain(ctx context.Context, req DomainRequest) (*DomainRun, error) {
	if err := req.Target.Validate(); err != nil {
		return nil, err
	}
	if err := req.Options.Validate(); err != nil {
		return nil, err
	}

	sources := s.selectSources(req.Sources)
	if len(sources) == 0 {
		return nil, sweep.Errorf(sweep.EINVALID, "no matching sources")
	}

	logs := sweep.NewLogStream()
	s.Runner.Logs = logs

	tasks := make([]fanout.Task, 0, len(sources))
	for _, src := range sources {
		src := src
		tasks = append(tasks, fanout.Task{
			Source: src.ID(),
			Run: func(tctx context.Context, emit sweep.EmitFunc) error {
				return src.Discover(tctx, req.Target, req.Options, emit)
			},
		})
	}

	inner := s.Runner.Start(ctx, tasks)
	out := make(chan sweep.URLRecord, 64)
	run := &DomainRun{Records: out, done: make(chan struct{}), logs: logs}

	go func() {
		defer close(run.done)
		defer close(out)

		seen := dedup.New(4096)
		var recorded []sweep.LocalIndexEntry
		for rec := range inner.Records {
			for _, fresh := range seen.Add(rec) {
				if req.Record && s.Index != nil {
					recorded = append(recorded, indexEntry(fresh))
				}
				select {
				case out <- fresh:
				case <-ctx.Done():
					// Keep draining so workers can finish.
				}
			}
		}
		run.summary = inner.Wait()
		run.summary.Total = seen.Len()

		if len(recorded) > 0 {
			if err := s.Index.Record(context.WithoutCancel(ctx), recorded); err != nil {
				logs.Append("localindex", "write-back failed: "+err.Error(), 0)
			} else {
				logs.Append("localindex", "recorded", len(recorded))
			}
		}
	}()

	return run, nil
}

// DiscoverBacklinks runs the backlink pipeline.
func (s *Session) DiscoverBacklinks(ctx context.Context, target sweep.Target, opts sweep.BacklinkOptions) (*sweep.BacklinkResult, error) {
	if s.Backlinks == nil {
		return nil, sweep.Errorf(sweep.EINVALID, "backlink discovery not configured")
	}
	return s.Backlinks.Discover(ctx, target, opts)
}

// DiscoverFiletypes runs the filetype cascade.
func (s *Session) DiscoverFiletypes(ctx context.Context, req sweep.FiletypeRequest) (*sweep.FiletypeResponse, error) {
	if s.Filetypes == nil {
		return nil, sweep.Errorf(sweep.EINVALID, "filetype discovery not configured")
	}
	return s.Filetypes.Discover(ctx, req)
}

// selectSources filters the session's adapters by id; empty keeps all.
func (s *Session) selectSources(ids []string) []sweep.SourceAdapter {
	if len(ids) == 0 {
		return s.Sources
	}
	want := make(map[string]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []sweep.SourceAdapter
	for _, src := range s.Sources {
		if want[src.ID()] {
			out = append(out, src)
		}
	}
	return out
}

func indexEntry(r sweep.URLRecord) sweep.LocalIndexEntry {
	discovered := r.DiscoveredAt
	if discovered.IsZero() {
		discovered = time.Now()
	}
	return sweep.LocalIndexEntry{
		URL:          r.URL,
		Domain:       r.Domain,
		Source:       r.Source,
		Title:        r.Title,
		ContentType:  r.ContentType,
		Status:       r.Status,
		DiscoveredAt: discovered,
	}
}
