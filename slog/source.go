// Package slog provides logging decorators for the discovery capabilities.
package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sweep"
)

// Ensure LoggingSource implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*LoggingSource)(nil)

// LoggingSource wraps a SourceAdapter with per-discovery logging.
type LoggingSource struct {
	next   sweep.SourceAdapter
	logger *slog.Logger
}

// NewLoggingSource creates a new LoggingSource.
func NewLoggingSource(next sweep.SourceAdapter, logger *slog.Logger) *LoggingSource {
	return &LoggingSource{next: next, logger: logger}
}

// ID delegates to the wrapped adapter.
func (s *LoggingSource) ID() string {
	return s.next.ID()
}

// Discover delegates to the wrapped adapter and logs the operation with the
// number of records the adapter emitted.
func (s *LoggingSource) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) (err error) {
	var count int
	counting := func(r sweep.URLRecord) error {
		count++
		return emit(r)
	}
	defer func(begin time.Time) {
		s.logger.Info("source discovery",
			"source", s.next.ID(),
			"domain", target.Domain,
			"records", count,
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Discover(ctx, target, opts, counting)
}

// WrapSources wraps every adapter with a LoggingSource.
func WrapSources(adapters []sweep.SourceAdapter, logger *slog.Logger) []sweep.SourceAdapter {
	wrapped := make([]sweep.SourceAdapter, len(adapters))
	for i, a := range adapters {
		wrapped[i] = NewLoggingSource(a, logger)
	}
	return wrapped
}
