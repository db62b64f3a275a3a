package dashboard

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"milestone_dashboard/logger"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

// ContractorAPI is the slice of the backend client the contractor view uses.
type ContractorAPI interface {
	ContractorProjects(ctx context.Context) ([]backend.Project, error)
	ContractorStats(ctx context.Context) (backend.ContractorStats, error)
	SubmitMilestone(ctx context.Context, projectID, milestoneID int64) error
}

var (
	// ErrMilestoneNotFound means the milestone is not in any of the
	// contractor's projects.
	ErrMilestoneNotFound = errors.New("milestone not found")
	// ErrMilestoneClosed means the milestone is no longer in progress.
	ErrMilestoneClosed = errors.New("milestone is not in progress")
)

// Contractor resolves the contractor dashboard's queries and runs its
// milestone submissions.
type Contractor struct {
	api      ContractorAPI
	cache    *query.Cache
	inflight *InFlight
	logger   *zap.Logger
}

func NewContractor(api ContractorAPI, cache *query.Cache, inflight *InFlight, l *zap.Logger) *Contractor {
	if inflight == nil {
		inflight = NewInFlight(nil)
	}
	return &Contractor{api: api, cache: cache, inflight: inflight, logger: logger.OrNop(l)}
}

func (s *Contractor) Projects(ctx context.Context) query.State[[]backend.Project] {
	return query.Fetch(ctx, s.cache, ContractorProjectsKey, func(ctx context.Context) ([]backend.Project, error) {
		projects, err := s.api.ContractorProjects(ctx)
		if err != nil {
			return nil, err
		}
		checkProjects(s.logger, projects)
		return projects, nil
	})
}

func (s *Contractor) Stats(ctx context.Context) query.State[backend.ContractorStats] {
	return query.Fetch(ctx, s.cache, ContractorStatsKey, s.api.ContractorStats)
}

// Cached returns the page's queries as the cache holds them now, loading
// where nothing is cached. It never calls the backend.
func (s *Contractor) Cached(ctx context.Context) (query.State[backend.ContractorStats], query.State[[]backend.Project]) {
	return query.Peek[backend.ContractorStats](ctx, s.cache, ContractorStatsKey),
		query.Peek[[]backend.Project](ctx, s.cache, ContractorProjectsKey)
}

// OpenMilestone finds a milestone among the contractor's projects and checks
// it still takes evidence. The cached project list is used when present.
func (s *Contractor) OpenMilestone(ctx context.Context, projectID, milestoneID int64) (backend.Milestone, error) {
	state := s.Projects(ctx)
	if state.IsFailed() {
		return backend.Milestone{}, state.Err
	}
	for _, p := range state.Data {
		if p.ID != projectID {
			continue
		}
		m, ok := p.FindMilestone(milestoneID)
		if !ok {
			break
		}
		if !m.Status.Submittable() {
			return m, ErrMilestoneClosed
		}
		return m, nil
	}
	return backend.Milestone{}, ErrMilestoneNotFound
}

// Submitting reports whether a submission for the milestone is running.
func (s *Contractor) Submitting(projectID, milestoneID int64) bool {
	return s.inflight.Busy(MilestoneRef{ProjectID: projectID, MilestoneID: milestoneID})
}

// SubmitMilestone sends the milestone for verification. On success the
// contractor projects and stats are invalidated once each; on failure
// nothing is invalidated and the returned result carries the error toast.
func (s *Contractor) SubmitMilestone(ctx context.Context, projectID, milestoneID int64) (MutationResult, error) {
	ref := MilestoneRef{ProjectID: projectID, MilestoneID: milestoneID}
	if !s.inflight.Begin(ref) {
		return MutationResult{Toast: ErrorToast(ctx, "toast.submit.busy")}, ErrSubmissionInFlight
	}
	defer s.inflight.End(ref)

	if err := s.api.SubmitMilestone(ctx, projectID, milestoneID); err != nil {
		s.logger.Warn("Milestone submission failed",
			zap.Int64("project_id", projectID),
			zap.Int64("milestone_id", milestoneID),
			zap.String("kind", string(backend.KindOf(err))),
			zap.Error(err),
		)
		return MutationResult{Toast: ErrorToast(ctx, "toast.submit.failed")}, err
	}

	keys := []query.Key{ContractorProjectsKey, ContractorStatsKey}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Error("Failed to invalidate contractor queries", zap.Error(err))
	}
	s.logger.Info("Milestone submitted",
		zap.Int64("project_id", projectID),
		zap.Int64("milestone_id", milestoneID),
	)
	return MutationResult{
		Toast:       newToast(ctx, ToastDefault, "toast.submit.success_title", "toast.submit.success"),
		Invalidated: keys,
		Events:      []string{ContractorRefreshEvent},
	}, nil
}

// checkProjects logs projects whose data breaks the backend's promises.
// Rendering clamps counters and gives unknown statuses a neutral badge.
func checkProjects(logger *zap.Logger, projects []backend.Project) {
	for _, p := range projects {
		if err := p.Validate(); err != nil {
			logger.Warn("Backend returned inconsistent project", zap.Error(err))
		}
		if allocated := p.AllocatedBudget(); allocated > p.Budget {
			logger.Warn("Milestones exceed project budget",
				zap.Int64("project_id", p.ID),
				zap.Stringer("budget", p.Budget),
				zap.Stringer("allocated", allocated),
			)
		}
		for _, m := range p.Milestones {
			if !m.Status.Known() {
				logger.Warn("Unknown milestone status",
					zap.Int64("project_id", p.ID),
					zap.Int64("milestone_id", m.ID),
					zap.String("status", string(m.Status)),
				)
			}
		}
	}
}
