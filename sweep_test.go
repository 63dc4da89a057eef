package sweep_test

import (
	"testing"

	"github.com/fwojciec/sweep"
	"github.com/stretchr/testify/assert"
)

func TestErrorf(t *testing.T) {
	t.Parallel()

	err := sweep.Errorf(sweep.ENOTFOUND, "source %q not found", "crt.sh")

	assert.Equal(t, sweep.ENOTFOUND, sweep.ErrorCode(err))
	assert.Equal(t, "source \"crt.sh\" not found", sweep.ErrorMessage(err))
}

func TestErrorCode_NilError(t *testing.T) {
	t.Parallel()

	assert.Empty(t, sweep.ErrorCode(nil))
}

func TestRetryable(t *testing.T) {
	t.Parallel()

	assert.True(t, sweep.Retryable(sweep.Errorf(sweep.EUNAVAILABLE, "HTTP 503")))
	assert.True(t, sweep.Retryable(sweep.Errorf(sweep.ERATELIMITED, "HTTP 429")))
	assert.False(t, sweep.Retryable(sweep.Errorf(sweep.EPERMISSION, "HTTP 403")))
	assert.False(t, sweep.Retryable(sweep.Errorf(sweep.EINVALID, "bad target")))
}

func TestCanonicalURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercases scheme and host", "HTTPS://Example.COM/Path", "https://example.com/Path"},
		{"strips trailing slash", "https://example.com/docs/", "https://example.com/docs"},
		{"drops fragment", "https://example.com/a#section", "https://example.com/a"},
		{"preserves query case", "https://example.com/s?Q=Abc", "https://example.com/s?Q=Abc"},
		{"trims whitespace", "  https://example.com/a  ", "https://example.com/a"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, sweep.CanonicalURL(tt.in))
		})
	}
}

func TestHostBelongs(t *testing.T) {
	t.Parallel()

	assert.True(t, sweep.HostBelongs("example.com", "example.com"))
	assert.True(t, sweep.HostBelongs("docs.example.com", "example.com"))
	assert.True(t, sweep.HostBelongs("Docs.Example.com", "example.com"))
	assert.False(t, sweep.HostBelongs("notexample.com", "example.com"))
	assert.False(t, sweep.HostBelongs("example.com.evil.io", "example.com"))
}

func TestURLRecord_WithArchive(t *testing.T) {
	t.Parallel()

	orig := sweep.URLRecord{URL: "https://example.com/a", Source: "wayback"}
	enriched := orig.WithArchive("https://web.archive.org/web/2024/https://example.com/a", "wayback")

	assert.True(t, enriched.IsArchived)
	assert.Equal(t, "wayback", enriched.ArchiveSource)
	// Enrichment must not mutate the original record.
	assert.False(t, orig.IsArchived)
	assert.Empty(t, orig.ArchiveURL)
}

func TestLogStream_AppendOrder(t *testing.T) {
	t.Parallel()

	ls := sweep.NewLogStream()
	ls.Append("sitemap", "discovered", 3)
	ls.Append("robots", "discovered", 1)

	entries := ls.Entries()
	assert.Len(t, entries, 2)
	assert.Equal(t, "sitemap", entries[0].Source)
	assert.Equal(t, "robots", entries[1].Source)
	assert.Equal(t, 3, entries[0].Count)
	assert.False(t, entries[1].Timestamp.Before(entries[0].Timestamp))
}

func TestSummary_Failed(t *testing.T) {
	t.Parallel()

	t.Run("empty summary fails", func(t *testing.T) {
		t.Parallel()
		s := &sweep.Summary{}
		assert.True(t, s.Failed())
	})

	t.Run("one clean adapter succeeds", func(t *testing.T) {
		t.Parallel()
		s := &sweep.Summary{Stats: []sweep.SourceStats{
			{Source: "sitemap"},
			{Source: "crt.sh", LastErr: "HTTP 503", Errors: 1},
		}}
		assert.False(t, s.Failed())
	})

	t.Run("all adapters errored with no records fails", func(t *testing.T) {
		t.Parallel()
		s := &sweep.Summary{Stats: []sweep.SourceStats{
			{Source: "sitemap", LastErr: "timeout", Errors: 1},
			{Source: "crt.sh", LastErr: "HTTP 503", Errors: 1},
		}}
		assert.True(t, s.Failed())
	})
}

func TestEngineTable(t *testing.T) {
	t.Parallel()

	for _, code := range sweep.EngineCodes() {
		e, ok := sweep.Engines[code]
		assert.True(t, ok, code)
		assert.Equal(t, code, e.Code)
		assert.True(t, e.SupportsExclusion(), "every engine needs an exclusion syntax for the excluder")
		assert.Positive(t, e.MaxTerms)
	}
}
