// Package warc splits raw archived WARC records into their envelope, HTTP
// headers, and payload. Records arrive as exact byte ranges fetched from an
// archive bucket and are usually gzip members.
package warc

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/fwojciec/sweep"
)

// Record is one parsed WARC response record.
type Record struct {
	// WARC envelope headers, e.g. "WARC-Target-URI", "WARC-Date".
	Headers map[string]string

	// HTTP response status and headers embedded in the payload.
	HTTPStatus  int
	HTTPHeaders map[string]string

	// Body is the HTTP payload (typically HTML or PDF bytes).
	Body []byte

	// Date is the archive capture time, zero when absent or malformed.
	Date time.Time
}

// TargetURI returns the archived page's URL.
func (r *Record) TargetURI() string {
	return r.Headers["WARC-Target-URI"]
}

// ContentType returns the payload content type from the HTTP headers.
func (r *Record) ContentType() string {
	return r.HTTPHeaders["Content-Type"]
}

const headerBoundary = "\r\n\r\n"

// Parse decodes one WARC record from raw bytes, transparently inflating gzip
// when the container signals it. The layout is: WARC headers, blank line,
// HTTP response headers, blank line, payload.
func Parse(raw []byte) (*Record, error) {
	data, err := Inflate(raw)
	if err != nil {
		return nil, sweep.WrapError(sweep.EINVALID, err, "inflating WARC record")
	}

	warcPart, rest, ok := cutBoundary(data)
	if !ok {
		return nil, sweep.Errorf(sweep.EINVALID, "missing WARC header boundary")
	}
	if !bytes.HasPrefix(warcPart, []byte("WARC/")) {
		return nil, sweep.Errorf(sweep.EINVALID, "not a WARC record")
	}

	rec := &Record{
		Headers:     parseHeaderBlock(warcPart),
		HTTPHeaders: map[string]string{},
	}
	if d, err := time.Parse(time.RFC3339, rec.Headers["WARC-Date"]); err == nil {
		rec.Date = d
	}

	// Response records embed an HTTP message; other record types (request,
	// metadata) carry their payload directly.
	if bytes.HasPrefix(rest, []byte("HTTP/")) {
		httpPart, body, ok := cutBoundary(rest)
		if !ok {
			// Headers-only capture with no payload.
			httpPart, body = rest, nil
		}
		rec.HTTPStatus = parseStatusLine(httpPart)
		rec.HTTPHeaders = parseHeaderBlock(httpPart)
		rec.Body = body
	} else {
		rec.Body = rest
	}

	return rec, nil
}

// Inflate returns the gzip-decompressed bytes when data is a gzip member,
// and data unchanged otherwise. Archives store WARC records as independent
// gzip members so a Range fetch yields a self-contained stream.
func Inflate(data []byte) ([]byte, error) {
	if len(data) < 2 || data[0] != 0x1f || data[1] != 0x8b {
		return data, nil
	}
	zr, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	// Tolerate truncated trailing bytes; archived members occasionally end
	// mid-CRC and the payload up to that point is still usable.
	out, err := io.ReadAll(zr)
	if err != nil && !errIsUnexpectedEOF(err) {
		return nil, err
	}
	return out, nil
}

func errIsUnexpectedEOF(err error) bool {
	return err == io.ErrUnexpectedEOF || strings.Contains(err.Error(), "unexpected EOF")
}

// cutBoundary splits data at the first \r\n\r\n.
func cutBoundary(data []byte) (before, after []byte, found bool) {
	idx := bytes.Index(data, []byte(headerBoundary))
	if idx == -1 {
		return data, nil, false
	}
	return data[:idx], data[idx+len(headerBoundary):], true
}

// parseHeaderBlock parses "Key: Value" lines, skipping the leading
// version/status line.
func parseHeaderBlock(block []byte) map[string]string {
	headers := make(map[string]string)
	scanner := bufio.NewScanner(bytes.NewReader(block))
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			if strings.HasPrefix(line, "WARC/") || strings.HasPrefix(line, "HTTP/") {
				continue
			}
		}
		key, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		headers[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return headers
}

// parseStatusLine extracts the status code from "HTTP/1.1 200 OK".
func parseStatusLine(block []byte) int {
	line, _, _ := bytes.Cut(block, []byte("\r\n"))
	fields := strings.Fields(string(line))
	if len(fields) < 2 {
		return 0
	}
	code, err := strconv.Atoi(fields[1])
	if err != nil {
		return 0
	}
	return code
}
