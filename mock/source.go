package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.SourceAdapter = (*SourceAdapter)(nil)

// SourceAdapter is a mock implementation of sweep.SourceAdapter.
type SourceAdapter struct {
	IDFn       func() string
	DiscoverFn func(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error
}

func (s *SourceAdapter) ID() string {
	return s.IDFn()
}

func (s *SourceAdapter) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	return s.DiscoverFn(ctx, target, opts, emit)
}

// StaticSource returns a mock adapter that emits the given records and
// succeeds. Convenient for fan-out and session tests.
func StaticSource(id string, records ...sweep.URLRecord) *SourceAdapter {
	return &SourceAdapter{
		IDFn: func() string { return id },
		DiscoverFn: func(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
			for _, r := range records {
				if err := emit(r); err != nil {
					return err
				}
			}
			return nil
		},
	}
}
