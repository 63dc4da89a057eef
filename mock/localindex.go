package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.LocalIndex = (*LocalIndex)(nil)

// LocalIndex is a mock implementation of sweep.LocalIndex.
type LocalIndex struct {
	ByDomainFn  func(ctx context.Context, domain string, limit int) ([]sweep.LocalIndexEntry, error)
	ByPatternFn func(ctx context.Context, pattern string, limit int) ([]sweep.LocalIndexEntry, error)
	RecordFn    func(ctx context.Context, entries []sweep.LocalIndexEntry) error
}

func (l *LocalIndex) ByDomain(ctx context.Context, domain string, limit int) ([]sweep.LocalIndexEntry, error) {
	return l.ByDomainFn(ctx, domain, limit)
}

func (l *LocalIndex) ByPattern(ctx context.Context, pattern string, limit int) ([]sweep.LocalIndexEntry, error) {
	return l.ByPatternFn(ctx, pattern, limit)
}

func (l *LocalIndex) Record(ctx context.Context, entries []sweep.LocalIndexEntry) error {
	return l.RecordFn(ctx, entries)
}
