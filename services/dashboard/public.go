package dashboard

import (
	"context"

	"go.uber.org/zap"

	"milestone_dashboard/logger"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

type PublicAPI interface {
	PublicProjects(ctx context.Context) ([]backend.PublicProject, error)
	PublicStats(ctx context.Context) (backend.PublicStats, error)
}

type Public struct {
	api    PublicAPI
	cache  *query.Cache
	logger *zap.Logger
}

func NewPublic(api PublicAPI, cache *query.Cache, l *zap.Logger) *Public {
	return &Public{api: api, cache: cache, logger: logger.OrNop(l)}
}

func (s *Public) Projects(ctx context.Context) query.State[[]backend.PublicProject] {
	return query.Fetch(ctx, s.cache, PublicProjectsKey, s.api.PublicProjects)
}

func (s *Public) Stats(ctx context.Context) query.State[backend.PublicStats] {
	return query.Fetch(ctx, s.cache, PublicStatsKey, s.api.PublicStats)
}

func (s *Public) Cached(ctx context.Context) (query.State[backend.PublicStats], query.State[[]backend.PublicProject]) {
	return query.Peek[backend.PublicStats](ctx, s.cache, PublicStatsKey),
		query.Peek[[]backend.PublicProject](ctx, s.cache, PublicProjectsKey)
}

// LedgerRow is one public transaction with its project.
type LedgerRow struct {
	ProjectID   int64
	ProjectName string
	backend.Transaction
}

// Ledger flattens every project's transactions in listing order.
func (s *Public) Ledger(ctx context.Context) ([]backend.PublicProject, []LedgerRow, error) {
	state := s.Projects(ctx)
	if state.IsFailed() {
		return nil, nil, state.Err
	}
	var rows []LedgerRow
	for _, p := range state.Data {
		for _, tx := range p.Transactions {
			rows = append(rows, LedgerRow{ProjectID: p.ID, ProjectName: p.Name, Transaction: tx})
		}
	}
	return state.Data, rows, nil
}
