package fs_test

import (
	"bytes"
	"compress/gzip"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/fwojciec/sweep"
	"github.com/fwojciec/sweep/fs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const shardLines = `com,example)/a.pdf 20240301 {"url":"https://example.com/a.pdf","timestamp":"20240301","mime":"application/pdf","status":"200","filename":"seg/f1.warc.gz","offset":"100","length":"200"}
{"url":"https://example.com/page","timestamp":"20240302","mime":"text/html","status":"200","filename":"seg/f2.warc.gz","offset":"0","length":"50"}
garbage line
{"url":"https://other.net/x","timestamp":"20240303","mime":"text/html","status":"200","filename":"seg/f3.warc.gz","offset":"5","length":"10"}
`

func writeShards(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	crawlDir := filepath.Join(dir, "CC-MAIN-2024-10")
	require.NoError(t, os.MkdirAll(crawlDir, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(crawlDir, "shard-00000.ndjson"), []byte(shardLines), 0o644))

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	zw.Write([]byte(`{"url":"https://example.com/b.pdf","timestamp":"20240304","mime":"application/pdf","status":"200","filename":"seg/f4.warc.gz","offset":"7","length":"77"}` + "\n"))
	zw.Close()
	require.NoError(t, os.WriteFile(filepath.Join(crawlDir, "shard-00001.ndjson.gz"), buf.Bytes(), 0o644))

	return dir
}

func TestOfflineIndex_Lookup(t *testing.T) {
	t.Parallel()

	index := fs.NewOfflineIndex(writeShards(t))
	refs, err := index.Lookup(context.Background(), sweep.ArchiveIndexQuery{URLPattern: "example.com/*"})
	require.NoError(t, err)
	require.Len(t, refs, 3, "gzip shard is scanned too; foreign host and garbage skipped")

	for _, ref := range refs {
		assert.NoError(t, ref.Validate())
		assert.Equal(t, "CC-MAIN-2024-10", ref.Archive, "crawl id inferred from shard directory")
	}
}

func TestOfflineIndex_MIMEFilter(t *testing.T) {
	t.Parallel()

	index := fs.NewOfflineIndex(writeShards(t))
	refs, err := index.Lookup(context.Background(), sweep.ArchiveIndexQuery{
		URLPattern: "example.com/*",
		MIME:       "application/pdf",
	})
	require.NoError(t, err)
	require.Len(t, refs, 2)
	for _, ref := range refs {
		assert.Equal(t, "application/pdf", ref.MIME)
	}
}

func TestOfflineIndex_UnknownArchive(t *testing.T) {
	t.Parallel()

	index := fs.NewOfflineIndex(writeShards(t))
	_, err := index.Lookup(context.Background(), sweep.ArchiveIndexQuery{
		URLPattern: "example.com/*",
		Archive:    "CC-MAIN-1999-01",
	})
	assert.Equal(t, sweep.ENOTFOUND, sweep.ErrorCode(err))
}

func TestMatchPattern(t *testing.T) {
	t.Parallel()

	tests := []struct {
		url     string
		pattern string
		want    bool
	}{
		{"https://example.com/a", "example.com/*", true},
		{"http://example.com/deep/path", "example.com/*", true},
		{"https://example.com/", "example.com", true},
		{"https://example.com/a", "example.com", false},
		{"https://sub.example.com/a", "example.com/*", false},
		{"https://example.com/docs/x.pdf", "example.com/docs/*", true},
		{"HTTPS://EXAMPLE.COM/A", "example.com/a", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, fs.MatchPattern(tt.url, tt.pattern), "%s vs %s", tt.url, tt.pattern)
	}
}
