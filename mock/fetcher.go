package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.Fetcher = (*Fetcher)(nil)

// Fetcher is a mock implementation of sweep.Fetcher.
type Fetcher struct {
	FetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	return f.FetchFn(ctx, url)
}

var _ sweep.RangeFetcher = (*RangeFetcher)(nil)

// RangeFetcher is a mock implementation of sweep.RangeFetcher.
type RangeFetcher struct {
	FetchRangeFn func(ctx context.Context, ref sweep.PageRef) ([]byte, error)
}

func (f *RangeFetcher) FetchRange(ctx context.Context, ref sweep.PageRef) ([]byte, error) {
	return f.FetchRangeFn(ctx, ref)
}
