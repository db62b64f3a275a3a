package dashboard

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"milestone_dashboard/logger"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

type GovernmentAPI interface {
	GovernmentProjects(ctx context.Context) ([]backend.Project, error)
	GovernmentStats(ctx context.Context) (backend.GovernmentStats, error)
	CreateProject(ctx context.Context, req backend.CreateProjectRequest) (*backend.Project, error)
}

// ValidationError is a request rejected before it reached the backend.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

type Government struct {
	api    GovernmentAPI
	cache  *query.Cache
	logger *zap.Logger
}

func NewGovernment(api GovernmentAPI, cache *query.Cache, l *zap.Logger) *Government {
	return &Government{api: api, cache: cache, logger: logger.OrNop(l)}
}

func (s *Government) Projects(ctx context.Context) query.State[[]backend.Project] {
	return query.Fetch(ctx, s.cache, GovernmentProjectsKey, func(ctx context.Context) ([]backend.Project, error) {
		projects, err := s.api.GovernmentProjects(ctx)
		if err != nil {
			return nil, err
		}
		checkProjects(s.logger, projects)
		return projects, nil
	})
}

func (s *Government) Stats(ctx context.Context) query.State[backend.GovernmentStats] {
	return query.Fetch(ctx, s.cache, GovernmentStatsKey, s.api.GovernmentStats)
}

func (s *Government) Cached(ctx context.Context) (query.State[backend.GovernmentStats], query.State[[]backend.Project]) {
	return query.Peek[backend.GovernmentStats](ctx, s.cache, GovernmentStatsKey),
		query.Peek[[]backend.Project](ctx, s.cache, GovernmentProjectsKey)
}

// CreateProject validates and submits a new project, then invalidates the
// government listing and stats.
func (s *Government) CreateProject(ctx context.Context, req backend.CreateProjectRequest) (MutationResult, error) {
	if err := req.Validate(); err != nil {
		return MutationResult{
			Toast: ErrorToast(ctx, "toast.create.invalid", map[string]interface{}{"reason": err.Error()}),
		}, &ValidationError{Err: err}
	}

	project, err := s.api.CreateProject(ctx, req)
	if err != nil {
		s.logger.Warn("Project creation failed",
			zap.String("name", req.Name),
			zap.String("kind", string(backend.KindOf(err))),
			zap.Error(err),
		)
		return MutationResult{Toast: ErrorToast(ctx, "toast.create.failed")}, err
	}

	keys := []query.Key{GovernmentProjectsKey, GovernmentStatsKey}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Error("Failed to invalidate government queries", zap.Error(err))
	}

	name := req.Name
	if project != nil && project.Name != "" {
		name = project.Name
	}
	s.logger.Info("Project created", zap.String("name", name))
	return MutationResult{
		Toast:       newToast(ctx, ToastDefault, "toast.create.success_title", "toast.create.success", map[string]interface{}{"name": name}),
		Invalidated: keys,
		Events:      []string{GovernmentRefreshEvent},
	}, nil
}

// ParseMilestoneDrafts zips the repeated form columns into drafts, skipping
// rows left completely blank.
func ParseMilestoneDrafts(names, amounts, dueDates []string) ([]backend.MilestoneDraft, error) {
	var drafts []backend.MilestoneDraft
	for i, name := range names {
		amount := at(amounts, i)
		due := at(dueDates, i)
		if name == "" && amount == "" && due == "" {
			continue
		}
		m, err := backend.ParseMoney(amount)
		if err != nil {
			return nil, fmt.Errorf("milestone %d: invalid amount %q", i+1, amount)
		}
		drafts = append(drafts, backend.MilestoneDraft{Name: name, Amount: m, DueDate: due})
	}
	return drafts, nil
}

func at(values []string, i int) string {
	if i < len(values) {
		return values[i]
	}
	return ""
}
