package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.Scraper = (*Scraper)(nil)

// Scraper is a mock implementation of sweep.Scraper.
type Scraper struct {
	ScrapeFn func(ctx context.Context, url string) (string, error)
	CloseFn  func() error
}

func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	return s.ScrapeFn(ctx, url)
}

func (s *Scraper) Close() error {
	if s.CloseFn == nil {
		return nil
	}
	return s.CloseFn()
}
