package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.ArchiveIndex = (*ArchiveIndex)(nil)

// ArchiveIndex is a mock implementation of sweep.ArchiveIndex.
type ArchiveIndex struct {
	LookupFn func(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error)
}

func (a *ArchiveIndex) Lookup(ctx context.Context, q sweep.ArchiveIndexQuery) ([]sweep.PageRef, error) {
	return a.LookupFn(ctx, q)
}

var _ sweep.GraphIndex = (*GraphIndex)(nil)

// GraphIndex is a mock implementation of sweep.GraphIndex.
type GraphIndex struct {
	IncomingHostsFn func(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error)
}

func (g *GraphIndex) IncomingHosts(ctx context.Context, domain string, limit int) ([]sweep.HostEdge, error) {
	return g.IncomingHostsFn(ctx, domain, limit)
}

var _ sweep.BacklinkProvider = (*BacklinkProvider)(nil)

// BacklinkProvider is a mock implementation of sweep.BacklinkProvider.
type BacklinkProvider struct {
	RefDomainsFn func(ctx context.Context, domain string, limit int) ([]sweep.RefDomain, error)
}

func (b *BacklinkProvider) RefDomains(ctx context.Context, domain string, limit int) ([]sweep.RefDomain, error) {
	return b.RefDomainsFn(ctx, domain, limit)
}

var _ sweep.LinkExtractorBinary = (*LinkExtractorBinary)(nil)

// LinkExtractorBinary is a mock implementation of sweep.LinkExtractorBinary.
type LinkExtractorBinary struct {
	ExtractFn func(ctx context.Context, targetDomain string, refs []sweep.PageRef) ([]sweep.LinkRecord, error)
}

func (l *LinkExtractorBinary) Extract(ctx context.Context, targetDomain string, refs []sweep.PageRef) ([]sweep.LinkRecord, error) {
	return l.ExtractFn(ctx, targetDomain, refs)
}
