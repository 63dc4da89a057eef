// Package fs implements archive-index lookup over pre-downloaded Common
// Crawl index files, for air-gapped or bulk workloads where querying the
// hosted index per domain is too slow.
package fs

import (
	"bufio"
	"compress/gzip"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/fwojciec/sweep"
)

// Compile-time interface verification.
var _ sweep.ArchiveIndex = (*OfflineIndex)(nil)

// OfflineIndex scans local CDX index shards. Shards are NDJSON files (plain
// or gzip) as distributed in the cc-index dumps, one capture per line.
type OfflineIndex struct {
	// Dir holds the downloaded shards. Subdirectories named after a crawl id
	// (e.g. "CC-MAIN-2024-10") scope an Archive-filtered lookup.
	Dir string
}

// NewOfflineIndex creates an OfflineIndex over dir.
func NewOfflineIndex(dir string) *OfflineIndex {
	return &OfflineIndex{Dir: dir}
}

// Lookup scans the shards for captures matching q. Unreadable shards and
// malformed lines are skipped; an empty result is not an error.
func (x *OfflineIndex) Lookup(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
	if q.URLPattern == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "archive lookup requires a URL pattern")
	}

	root := x.Dir
	archive := q.Archive
	if archive != "" {
		scoped := filepath.Join(root, archive)
		if info, err := os.Stat(scoped); err == nil && info.IsDir() {
			root = scoped
		} else {
			return nil, sweep.Errorf(sweep.ENOTFOUND, "no local shards for archive %q", archive)
		}
	}

	var refs []sweep.PageRef
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		if cerr := ctx.Err(); cerr != nil {
			return sweep.WrapError(sweep.ECANCELED, cerr, "offline index scan")
		}
		found, serr := scanShard(path, q)
		if serr != nil {
			// A corrupt shard should not sink the whole lookup.
			return nil
		}
		if archive == "" {
			// Infer the crawl id from the shard's parent directory when not
			// scoped explicitly.
			for i := range found {
				if found[i].Archive == "" {
					found[i].Archive = filepath.Base(filepath.Dir(path))
				}
			}
		} else {
			for i := range found {
				found[i].Archive = archive
			}
		}
		refs = append(refs, found...)
		if q.Limit > 0 && len(refs) >= q.Limit {
			refs = refs[:q.Limit]
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return refs, nil
}

// scanShard reads one NDJSON shard and returns its matching captures.
func scanShard(path string, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".gz") {
		zr, err := gzip.NewReader(f)
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		r = zr
	}

	var refs []sweep.PageRef
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		// Index shards may prefix each JSON object with the SURT key and
		// timestamp; cut at the first brace.
		if i := strings.IndexByte(string(line), '{'); i > 0 {
			line = line[i:]
		}
		var row struct {
			URL      string `json:"url"`
			Time     string `json:"timestamp"`
			MIME     string `json:"mime"`
			Status   string `json:"status"`
			Filename string `json:"filename"`
			Offset   string `json:"offset"`
			Length   string `json:"length"`
		}
		if err := json.Unmarshal(line, &row); err != nil {
			continue
		}
		if !MatchPattern(row.URL, q.URLPattern) {
			continue
		}
		if q.MIME != "" && row.MIME != q.MIME {
			continue
		}
		offset, err1 := strconv.ParseInt(row.Offset, 10, 64)
		length, err2 := strconv.ParseInt(row.Length, 10, 64)
		if err1 != nil || err2 != nil || length <= 0 {
			continue
		}
		ref := sweep.PageRef{
			URL:       row.URL,
			Filename:  row.Filename,
			Offset:    offset,
			Length:    length,
			MIME:      row.MIME,
			Timestamp: row.Time,
		}
		if status, err := strconv.Atoi(row.Status); err == nil {
			ref.Status = status
		}
		refs = append(refs, ref)
	}
	return refs, scanner.Err()
}

// MatchPattern reports whether a capture URL matches an index URL pattern.
// Patterns are scheme-less; a trailing "*" matches any suffix, and a bare
// host pattern matches the whole host including subdomain paths.
func MatchPattern(rawURL, pattern string) bool {
	url := stripScheme(strings.ToLower(rawURL))
	pattern = stripScheme(strings.ToLower(pattern))

	if suffix, ok := strings.CutSuffix(pattern, "*"); ok {
		return strings.HasPrefix(url, suffix)
	}
	return url == pattern || url == pattern+"/"
}

func stripScheme(u string) string {
	if i := strings.Index(u, "://"); i != -1 {
		return u[i+3:]
	}
	return u
}
