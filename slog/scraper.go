package slog

import (
	"context"
	"log/slog"
	"time"

	"github.com/fwojciec/sweep"
)

// Ensure LoggingScraper implements sweep.Scraper.
var _ sweep.Scraper = (*LoggingScraper)(nil)

// LoggingScraper wraps a Scraper with debug logging.
type LoggingScraper struct {
	next   sweep.Scraper
	logger *slog.Logger
}

// NewLoggingScraper creates a new LoggingScraper.
func NewLoggingScraper(next sweep.Scraper, logger *slog.Logger) *LoggingScraper {
	return &LoggingScraper{next: next, logger: logger}
}

// Scrape delegates to the wrapped scraper and logs the operation.
func (s *LoggingScraper) Scrape(ctx context.Context, url string) (html string, err error) {
	defer func(begin time.Time) {
		s.logger.Info("scrape",
			"url", url,
			"bytes", len(html),
			"duration", time.Since(begin),
			"err", err,
		)
	}(time.Now())
	return s.next.Scrape(ctx, url)
}

// Close delegates to the wrapped scraper.
func (s *LoggingScraper) Close() error {
	return s.next.Close()
}
