package mock

import (
	"context"

	"github.com/fwojciec/sweep"
)

var _ sweep.SERPClient = (*SERPClient)(nil)

// SERPClient is a mock implementation of sweep.SERPClient.
type SERPClient struct {
	SearchFn func(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error)
}

func (s *SERPClient) Search(ctx context.Context, engine, query, locale string, limit int) ([]sweep.ResultRecord, error) {
	return s.SearchFn(ctx, engine, query, locale, limit)
}
