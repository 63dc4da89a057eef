package filetype_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/filetype"
	"github.com/fwojciec/sweep/mock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pdfSource(id string, urls ...string) *mock.SourceAdapter {
	records := make([]sweep.URLRecord, len(urls))
	for i, u := range urls {
		records[i] = sweep.URLRecord{URL: u, Domain: "example.com", Source: id, ContentType: "application/pdf"}
	}
	return mock.StaticSource(id, records...)
}

func TestCascade_Discover_DedupAcrossSources(t *testing.T) {
	t.Parallel()

	cascade := &filetype.Cascade{
		Sources: []sweep.SourceAdapter{
			pdfSource("wayback", "https://example.com/a.pdf", "https://example.com/b.pdf"),
			pdfSource("commoncrawl", "https://example.com/b.pdf", "https://example.com/c.pdf"),
		},
	}

	resp, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{
		Domain: "example.com",
		Types:  []string{"pdf"},
	})

	require.NoError(t, err)
	assert.Len(t, resp.Results, 3)
	assert.ElementsMatch(t, []string{"wayback", "commoncrawl"}, resp.SourcesUsed)
	assert.Empty(t, resp.ContentMatches)
}

func TestCascade_Discover_TypeFilter(t *testing.T) {
	t.Parallel()

	src := mock.StaticSource("sitemap",
		sweep.URLRecord{URL: "https://example.com/report.pdf", Source: "sitemap"},
		sweep.URLRecord{URL: "https://example.com/page", Source: "sitemap", ContentType: "text/html"},
	)
	cascade := &filetype.Cascade{Sources: []sweep.SourceAdapter{src}}

	resp, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{
		Domain: "example.com",
		Types:  []string{"pdf"},
	})

	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "https://example.com/report.pdf", resp.Results[0].URL)
}

func TestCascade_Discover_KeywordTiers(t *testing.T) {
	t.Parallel()

	cloudText := strings.Repeat("filler ", 20) + "budget allocation details and the budget summary table"
	visionText := strings.Repeat("scanned page transcription ", 5) + "one budget mention"

	cascade := &filetype.Cascade{
		Sources: []sweep.SourceAdapter{
			pdfSource("wayback", "https://example.com/clean.pdf", "https://example.com/scanned.pdf"),
		},
		Parser: &mock.DocParser{
			ParseFn: func(ctx context.Context, url string) (string, error) {
				if url == "https://example.com/clean.pdf" {
					return cloudText, nil
				}
				return "", errors.New("parser upstream error")
			},
		},
		Fetcher: &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) ([]byte, error) {
				return []byte("%PDF-1.4 raw bytes"), nil
			},
		},
		PDF: &mock.PDFTextExtractor{
			ExtractTextFn: func(ctx context.Context, pdf []byte) (string, error) {
				// Scanned document: text layer is noise, under the minimum.
				return "a b", nil
			},
		},
		OCR: &mock.VisionOCR{
			OCRFn: func(ctx context.Context, pdf []byte) (string, error) {
				return visionText, nil
			},
		},
	}

	resp, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{
		Domain:  "example.com",
		Types:   []string{"pdf"},
		Keyword: "budget",
	})

	require.NoError(t, err)
	require.Len(t, resp.ContentMatches, 2)

	// Sorted by match count descending.
	assert.Equal(t, "https://example.com/clean.pdf", resp.ContentMatches[0].URL)
	assert.Equal(t, 2, resp.ContentMatches[0].KeywordMatches)
	assert.Equal(t, sweep.ExtractionCloud, resp.ContentMatches[0].ExtractionMethod)
	assert.Contains(t, resp.ContentMatches[0].Snippet, "budget allocation")

	assert.Equal(t, "https://example.com/scanned.pdf", resp.ContentMatches[1].URL)
	assert.Equal(t, 1, resp.ContentMatches[1].KeywordMatches)
	assert.Equal(t, sweep.ExtractionVision, resp.ContentMatches[1].ExtractionMethod)
}

func TestCascade_Discover_ArchiveTier(t *testing.T) {
	t.Parallel()

	archived := "WARC/1.0\r\n" +
		"WARC-Target-URI: https://example.com/old.pdf\r\n" +
		"\r\n" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Type: application/pdf\r\n" +
		"\r\n" +
		"%PDF-1.4 archived body"
	extracted := strings.Repeat("restored text ", 5) + "with one budget line"

	cascade := &filetype.Cascade{
		Sources: []sweep.SourceAdapter{pdfSource("wayback", "https://example.com/old.pdf")},
		Index: &mock.ArchiveIndex{
			LookupFn: func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
				assert.Equal(t, "application/pdf", q.MIME)
				return []sweep.PageRef{{URL: q.URLPattern, Filename: "f.warc.gz", Length: int64(len(archived))}}, nil
			},
		},
		Ranges: &mock.RangeFetcher{
			FetchRangeFn: func(ctx context.Context, ref sweep.PageRef) ([]byte, error) {
				return []byte(archived), nil
			},
		},
		PDF: &mock.PDFTextExtractor{
			ExtractTextFn: func(ctx context.Context, pdf []byte) (string, error) {
				assert.Equal(t, "%PDF-1.4 archived body", string(pdf))
				return extracted, nil
			},
		},
	}

	resp, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{
		Domain:  "example.com",
		Types:   []string{"pdf"},
		Keyword: "budget",
	})

	require.NoError(t, err)
	require.Len(t, resp.ContentMatches, 1)
	assert.Equal(t, sweep.ExtractionArchive, resp.ContentMatches[0].ExtractionMethod)
}

type staticConverter struct{}

func (staticConverter) Convert(html string) (string, error) {
	return strings.ReplaceAll(strings.ReplaceAll(html, "<p>", ""), "</p>", "\n"), nil
}

func TestCascade_Discover_HTMLKeywordSearch(t *testing.T) {
	t.Parallel()

	src := mock.StaticSource("sitemap",
		sweep.URLRecord{URL: "https://example.com/notes.html", Source: "sitemap", ContentType: "text/html"},
	)
	cascade := &filetype.Cascade{
		Sources: []sweep.SourceAdapter{src},
		Fetcher: &mock.Fetcher{
			FetchFn: func(ctx context.Context, url string) ([]byte, error) {
				return []byte("<p>quarterly budget review</p><p>budget appendix</p>"), nil
			},
		},
		Markdown: staticConverter{},
	}

	resp, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{
		Domain:  "example.com",
		Types:   []string{"html"},
		Keyword: "budget",
	})

	require.NoError(t, err)
	require.Len(t, resp.ContentMatches, 1)
	assert.Equal(t, 2, resp.ContentMatches[0].KeywordMatches)
	assert.Equal(t, sweep.ExtractionLocal, resp.ContentMatches[0].ExtractionMethod)
}

func TestCascade_Discover_InvalidRequest(t *testing.T) {
	t.Parallel()

	cascade := &filetype.Cascade{}
	_, err := cascade.Discover(context.Background(), sweep.FiletypeRequest{Domain: "example.com"})
	require.Error(t, err)
	assert.Equal(t, sweep.EINVALID, sweep.ErrorCode(err))
}
