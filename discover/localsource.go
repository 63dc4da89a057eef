package discover

import (
	"context"
	"strings"

	"github.com/fwojciec/sweep"
)

// Ensure LocalSource implements sweep.SourceAdapter.
var _ sweep.SourceAdapter = (*LocalSource)(nil)

// LocalSource replays previously discovered URLs from the local index as a
// discovery source, so past sessions seed new ones.
type LocalSource struct {
	Index sweep.LocalIndex
}

// ID returns the source identifier.
func (s *LocalSource) ID() string { return "localindex" }

// Discover emits every indexed URL for the target domain. A filetype sweep
// narrows the replay to URL-wildcard matches per requested extension.
func (s *LocalSource) Discover(ctx context.Context, target sweep.Target, opts sweep.DiscoverOptions, emit sweep.EmitFunc) error {
	if target.Domain == "" {
		return nil
	}

	var entries []sweep.LocalIndexEntry
	var err error
	if len(opts.Filetypes) > 0 {
		for _, ft := range opts.Filetypes {
			ft = strings.ToLower(strings.TrimPrefix(ft, "."))
			matched, perr := s.Index.ByPattern(ctx, "%"+target.Domain+"%."+ft, opts.Limit)
			if perr != nil {
				return sweep.WrapError(sweep.ErrorCode(perr), perr, "local index pattern lookup for %s", target.Domain)
			}
			entries = append(entries, matched...)
		}
	} else {
		entries, err = s.Index.ByDomain(ctx, target.Domain, opts.Limit)
		if err != nil {
			return sweep.WrapError(sweep.ErrorCode(err), err, "local index lookup for %s", target.Domain)
		}
	}

	for _, e := range entries {
		rec := sweep.URLRecord{
			URL:          e.URL,
			Domain:       e.Domain,
			Source:       s.ID(),
			Title:        e.Title,
			ContentType:  e.ContentType,
			Status:       e.Status,
			DiscoveredAt: e.DiscoveredAt,
		}
		if !opts.AllowExternal && !rec.BelongsTo(target.Domain) {
			continue
		}
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}
