package dashboard

import (
	"context"

	"go.uber.org/zap"

	"milestone_dashboard/logger"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

type AuditorAPI interface {
	PendingVerifications(ctx context.Context) ([]backend.PendingVerification, error)
	VerifyMilestone(ctx context.Context, milestoneID int64, approved bool, notes string) error
}

type Auditor struct {
	api      AuditorAPI
	cache    *query.Cache
	inflight *InFlight
	logger   *zap.Logger
}

func NewAuditor(api AuditorAPI, cache *query.Cache, inflight *InFlight, l *zap.Logger) *Auditor {
	if inflight == nil {
		inflight = NewInFlight(nil)
	}
	return &Auditor{api: api, cache: cache, inflight: inflight, logger: logger.OrNop(l)}
}

func (s *Auditor) Pending(ctx context.Context) query.State[[]backend.PendingVerification] {
	return query.Fetch(ctx, s.cache, PendingVerificationsKey, s.api.PendingVerifications)
}

func (s *Auditor) Cached(ctx context.Context) query.State[[]backend.PendingVerification] {
	return query.Peek[[]backend.PendingVerification](ctx, s.cache, PendingVerificationsKey)
}

// Verifying reports whether a decision for the milestone is in flight.
func (s *Auditor) Verifying(milestoneID int64) bool {
	return s.inflight.Busy(MilestoneRef{MilestoneID: milestoneID})
}

// Verify records the auditor's decision. Success refreshes the queue and
// the contractor views whose milestone statuses just changed.
func (s *Auditor) Verify(ctx context.Context, milestoneID int64, approved bool, notes string) (MutationResult, error) {
	ref := MilestoneRef{MilestoneID: milestoneID}
	if !s.inflight.Begin(ref) {
		return MutationResult{Toast: ErrorToast(ctx, "toast.verify.busy")}, ErrSubmissionInFlight
	}
	defer s.inflight.End(ref)

	if err := s.api.VerifyMilestone(ctx, milestoneID, approved, notes); err != nil {
		s.logger.Warn("Milestone verification failed",
			zap.Int64("milestone_id", milestoneID),
			zap.Bool("approved", approved),
			zap.String("kind", string(backend.KindOf(err))),
			zap.Error(err),
		)
		return MutationResult{Toast: ErrorToast(ctx, "toast.verify.failed")}, err
	}

	keys := []query.Key{PendingVerificationsKey, ContractorProjectsKey, ContractorStatsKey}
	if err := s.cache.Invalidate(ctx, keys...); err != nil {
		s.logger.Error("Failed to invalidate auditor queries", zap.Error(err))
	}

	titleKey, descKey := "toast.verify.approved_title", "toast.verify.approved"
	if !approved {
		titleKey, descKey = "toast.verify.rejected_title", "toast.verify.rejected"
	}
	s.logger.Info("Milestone verified", zap.Int64("milestone_id", milestoneID), zap.Bool("approved", approved))
	return MutationResult{
		Toast:       newToast(ctx, ToastDefault, titleKey, descKey),
		Invalidated: keys,
		Events:      []string{AuditorRefreshEvent},
	}, nil
}
