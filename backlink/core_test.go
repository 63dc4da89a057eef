package backlink_test

import (
	"context"
	"errors"
	"testing"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/backlink"
	"github.com/fwojciec/sweep/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// warcCapture builds a minimal archived capture of a page on blog.example.net
// linking to the target domain.
func warcCapture(html string) []byte {
	return []byte("WARC/1.0\r\n" +
		"WARC-Type: response\r\n" +
		"WARC-Target-URI: http://blog.example.net/post\r\n" +
		"WARC-Date: 2024-03-01T00:00:00Z\r\n" +
		"\r\n" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Type: text/html\r\n" +
		"\r\n" +
		html)
}

func TestCore_Discover_ArchiveExpansion(t *testing.T) {
	t.Parallel()

	graph := &mock.GraphIndex{
		IncomingHostsFn: func(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
			return []sweep.HostEdge{{Host: "blog.example.net", Weight: 7}}, nil
		},
	}
	index := &mock.ArchiveIndex{
		LookupFn: func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
			assert.Equal(t, "blog.example.net/*", q.URLPattern)
			return []sweep.PageRef{{
				URL:      "http://blog.example.net/post",
				Archive:  "CC-MAIN-2024-10",
				Filename: "crawl-data/seg/warc/file.warc.gz",
				Offset:   1000,
				Length:   500,
			}}, nil
		},
	}
	ranges := &mock.RangeFetcher{
		FetchRangeFn: func(ctx context.Context, ref sweep.PageRef) ([]byte, error) {
			return warcCapture(`<html><body>
				<a href="https://example.com/whitepaper">Good read</a>
				<a href="https://unrelated.org/x">elsewhere</a>
			</body></html>`), nil
		},
	}

	core := &backlink.Core{Graph: graph, Index: index, Ranges: ranges}
	result, err := core.Discover(context.Background(), sweep.Target{Domain: "example.com"}, sweep.BacklinkOptions{
		IncludeAnchorText: true,
		IncludeArchives:   true,
	})

	require.NoError(t, err)
	assert.ElementsMatch(t, []string{sweep.ProviderHostGraph, sweep.ProviderCCWAT}, result.Providers)

	var hostEdge, anchor *sweep.LinkRecord
	for i := range result.Links {
		switch result.Links[i].Provider {
		case sweep.ProviderHostGraph:
			hostEdge = &result.Links[i]
		case sweep.ProviderCCWAT:
			anchor = &result.Links[i]
		}
	}
	require.NotNil(t, hostEdge)
	assert.Equal(t, "blog.example.net", hostEdge.SourceURL)
	assert.Equal(t, 7, hostEdge.Weight)

	require.NotNil(t, anchor)
	assert.Equal(t, "http://blog.example.net/post", anchor.SourceURL)
	assert.Equal(t, "https://example.com/whitepaper", anchor.TargetURL)
	assert.Equal(t, "Good read", anchor.AnchorText)
	assert.Equal(t, "2024-03-01", anchor.LastSeen.Format("2006-01-02"))

	// The off-target anchor never becomes a record.
	assert.Len(t, result.Links, 2)
	assert.NotEmpty(t, result.Logs)
}

func TestCore_Discover_OfflineFallback(t *testing.T) {
	t.Parallel()

	graph := &mock.GraphIndex{
		IncomingHostsFn: func(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
			return []sweep.HostEdge{{Host: "news.example.org", Weight: 2}}, nil
		},
	}
	live := &mock.ArchiveIndex{
		LookupFn: func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
			return nil, errors.New("index unreachable")
		},
	}
	offline := &mock.ArchiveIndex{
		LookupFn: func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
			return []sweep.PageRef{{
				URL:      "http://news.example.org/story",
				Filename: "local/file.warc.gz",
				Length:   400,
			}}, nil
		},
	}
	extractor := &mock.LinkExtractorBinary{
		ExtractFn: func(ctx context.Context, targetDomain string, refs []sweep.PageRef) ([]sweep.LinkRecord, error) {
			require.Len(t, refs, 1)
			assert.Equal(t, "example.com", targetDomain)
			return []sweep.LinkRecord{{
				SourceURL:  "http://news.example.org/story",
				TargetURL:  "https://example.com/",
				AnchorText: "the project",
			}}, nil
		},
	}

	core := &backlink.Core{Graph: graph, Index: live, Offline: offline, Extractor: extractor}
	result, err := core.Discover(context.Background(), sweep.Target{Domain: "example.com"}, sweep.BacklinkOptions{
		IncludeAnchorText: true,
		IncludeArchives:   true,
	})

	require.NoError(t, err)
	assert.Contains(t, result.Providers, sweep.ProviderCCWATOffline)

	var offlineLink *sweep.LinkRecord
	for i := range result.Links {
		if result.Links[i].Provider == sweep.ProviderCCWATOffline {
			offlineLink = &result.Links[i]
		}
	}
	require.NotNil(t, offlineLink)
	assert.Equal(t, "the project", offlineLink.AnchorText)

	// The live index failure is recoverable and surfaced in the summary.
	assert.NotEmpty(t, result.Summary.Errors)
}

func TestCore_Discover_ProviderMerge(t *testing.T) {
	t.Parallel()

	graph := &mock.GraphIndex{
		IncomingHostsFn: func(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
			return nil, nil
		},
	}
	provider := &mock.BacklinkProvider{
		RefDomainsFn: func(ctx context.Context, domain string, limit int) ([]sweep.RefDomain, error) {
			return []sweep.RefDomain{
				{Domain: "press.example.io", Backlinks: 40, TrustFlow: 31, CitationFlow: 28},
			}, nil
		},
	}

	core := &backlink.Core{Graph: graph, Provider: provider}
	result, err := core.Discover(context.Background(), sweep.Target{Domain: "example.com"}, sweep.BacklinkOptions{})

	require.NoError(t, err)
	require.Len(t, result.Links, 1)
	assert.Equal(t, sweep.ProviderMajestic, result.Links[0].Provider)
	assert.Equal(t, 31, result.Links[0].TrustFlow)
	assert.Equal(t, []string{sweep.ProviderMajestic}, result.Providers)
}

func TestCore_Discover_AnchorTextStripped(t *testing.T) {
	t.Parallel()

	graph := &mock.GraphIndex{
		IncomingHostsFn: func(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
			return []sweep.HostEdge{{Host: "blog.example.net", Weight: 1}}, nil
		},
	}
	index := &mock.ArchiveIndex{
		LookupFn: func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
			return []sweep.PageRef{{URL: "http://blog.example.net/post", Filename: "f.warc.gz", Length: 100}}, nil
		},
	}
	ranges := &mock.RangeFetcher{
		FetchRangeFn: func(ctx context.Context, ref sweep.PageRef) ([]byte, error) {
			return warcCapture(`<a href="https://example.com/a">anchor words</a>`), nil
		},
	}

	core := &backlink.Core{Graph: graph, Index: index, Ranges: ranges}
	result, err := core.Discover(context.Background(), sweep.Target{Domain: "example.com"}, sweep.BacklinkOptions{
		IncludeArchives: true,
	})

	require.NoError(t, err)
	for _, l := range result.Links {
		assert.Empty(t, l.AnchorText)
	}
}

func TestCore_Discover_InvalidTarget(t *testing.T) {
	t.Parallel()

	core := &backlink.Core{}
	_, err := core.Discover(context.Background(), sweep.Target{}, sweep.BacklinkOptions{})
	require.Error(t, err)
	assert.Equal(t, sweep.EINVALID, sweep.ErrorCode(err))
}
