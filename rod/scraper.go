package rod

import (
	"context"

	"github.com/fwojciec/sweep"
	"github.com/go-rod/rod/lib/proto"
)

// Ensure Scraper implements sweep.Scraper at compile time.
var _ sweep.Scraper = (*Scraper)(nil)

// Scraper retrieves rendered HTML using Chrome browser automation. Safe for
// concurrent use by multiple goroutines.
type Scraper struct {
	manager *BrowserManager
}

// NewScraper creates a Scraper backed by a managed, auto-recycled browser.
// Close must be called when the Scraper is no longer needed.
func NewScraper(opts ...ManagerOption) (*Scraper, error) {
	manager, err := NewBrowserManager(opts...)
	if err != nil {
		return nil, err
	}
	return &Scraper{manager: manager}, nil
}

// desktopUA replaces the headless UA, which engines reject outright.
const desktopUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36"

// Scrape navigates to the URL and returns the rendered HTML once the page has
// loaded and the DOM has settled.
func (s *Scraper) Scrape(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", sweep.WrapError(sweep.ECANCELED, err, "scrape %s", url)
	}

	page, err := s.manager.Browser().Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", sweep.WrapError(sweep.EUNAVAILABLE, err, "opening page for %s", url)
	}
	defer page.Close()

	page = page.Context(ctx)

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: desktopUA}); err != nil {
		return "", sweep.WrapError(sweep.EUNAVAILABLE, err, "setting user agent")
	}
	if err := page.Navigate(url); err != nil {
		return "", sweep.WrapError(sweep.EUNAVAILABLE, err, "navigating to %s", url)
	}
	if err := page.WaitLoad(); err != nil {
		return "", sweep.WrapError(sweep.EUNAVAILABLE, err, "waiting for %s", url)
	}

	html, err := page.HTML()
	if err != nil {
		return "", sweep.WrapError(sweep.EUNAVAILABLE, err, "reading HTML of %s", url)
	}

	s.manager.IncrementPageCount()
	return html, nil
}

// Close releases browser resources.
func (s *Scraper) Close() error {
	return s.manager.Close()
}
