package sqlite

import (
	"context"
	"strings"

	"github.com/fwojciec/sweep"
)

// Compile-time interface verification.
var _ sweep.GraphIndex = (*GraphIndex)(nil)

// GraphIndex answers host-level backlink queries from a locally built web
// graph. Edges are typically bulk-loaded from Common Crawl host-graph dumps.
type GraphIndex struct {
	db *DB
}

// NewGraphIndex creates a GraphIndex on db.
func NewGraphIndex(db *DB) *GraphIndex {
	return &GraphIndex{db: db}
}

// IncomingHosts returns source hosts linking to domain (or any of its
// subdomains), ranked by descending link count.
func (s *GraphIndex) IncomingHosts(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
	if domain == "" {
		return nil, sweep.Errorf(sweep.EINVALID, "domain required")
	}
	domain = strings.ToLower(domain)

	query := `SELECT source_host, SUM(weight) AS total FROM host_edges
		WHERE target_host = ? OR target_host LIKE ?
		GROUP BY source_host
		ORDER BY total DESC`
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

	var edges []sweep.HostEdge
	for rows.Next() {
		var e sweep.HostEdge
		if err := rows.Scan(&e.Host, &e.Weight); err != nil {
			return nil, err
		}
		edges = append(edges, e)
	}
	return edges, rows.Err()
}

// AddEdge records (or increments) one host-level edge. Used by graph loaders
// and tests.
func (s *GraphIndex) AddEdge(ctx context.Context, sourceHost, targetHost string, weight int) error {
	if sourceHost == "" || targetHost == "" {
		return sweep.Errorf(sweep.EINVALID, "edge hosts required")
	}
	if weight <= 0 {
		weight = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO host_edges (source_host, target_host, weight)
		VALUES (?, ?, ?)
		ON CONFLICT(source_host, target_host) DO UPDATE SET
			weight = weight + excluded.weight
	`, strings.ToLower(sourceHost), strings.ToLower(targetHost), weight)
	return err
}
