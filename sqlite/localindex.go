package sqlite

import (
	"context"
	"strings"
	"time"

	"github.com/fwojciec/sweep"
)

// Compile-time interface verification.
var _ sweep.LocalIndex = (*LocalIndex)(nil)

// LocalIndex stores previously discovered URLs. It is the only session state
// that persists; the caller decides what gets written.
type LocalIndex struct {
	db *DB
}

// NewLocalIndex creates a LocalIndex on db.
func NewLocalIndex(db *DB) *LocalIndex {
	return &LocalIndex{db: db}
}

const localIndexColumns = "url, domain, source, title, content_type, status, discovered_at"

// ByDomain returns entries whose domain matches exactly or by subdomain,
// newest first.
func (s *LocalIndex) ByDomain(ctx context.Context, domain string, limit int) ([]sweep.LocalIndexEntry, error) {
	if domain == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "domain required")
	}
	domain = strings.ToLower(domain)

	query := "SELECT " + localIndexColumns + ` FROM urls
		WHERE domain = ? OR domain LIKE ?
		ORDER BY discovered_at DESC`
	args := []any{domain, "%." + domain}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// ByPattern returns entries whose URL matches a SQL-style wildcard pattern,
// e.g. "https://example.com/%.pdf".
func (s *LocalIndex) ByPattern(ctx context.Context, pattern string, limit int) ([]sweep.LocalIndexEntry, error) {
	if pattern == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "pattern required")
	}

	query := "SELECT " + localIndexColumns + ` FROM urls
		WHERE url LIKE ?
		ORDER BY discovered_at DESC`
	args := []any{pattern}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEntries(rows)
}

// Record upserts entries keyed by URL. A re-discovered URL keeps its original
// discovery time but refreshes the mutable metadata.
func (s *LocalIndex) Record(ctx context.Context, entries []sweep.LocalIndexEntry) error {
	for _, e := range entries {
		if e.URL == "" {
			return sweep.Errorf(sweep.EINVALID, "entry URL required")
		}
		discoveredAt := e.DiscoveredAt
		if discoveredAt.IsZero() {
			discoveredAt = time.Now().UTC()
		}
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO urls (url, domain, source, title, content_type, status, discovered_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(url) DO UPDATE SET
				source = excluded.source,
				title = excluded.title,
				content_type = excluded.content_type,
				status = excluded.status
		`, e.URL, strings.ToLower(e.Domain), e.Source, e.Title, e.ContentType, e.Status,
			discoveredAt.Format(time.RFC3339))
		if err != nil {
			return err
		}
	}
	return nil
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanEntries(rows rowScanner) ([]sweep.LocalIndexEntry, error) {
	var entries []sweep.LocalIndexEntry
	for rows.Next() {
		var e sweep.LocalIndexEntry
		var discoveredAt string
		if err := rows.Scan(&e.URL, &e.Domain, &e.Source, &e.Title, &e.ContentType, &e.Status, &discoveredAt); err != nil {
			return nil, err
		}
		if t, err := time.Parse(time.RFC3339, discoveredAt); err == nil {
			e.DiscoveredAt = t
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
