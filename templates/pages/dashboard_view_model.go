package pages

import (
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

// ContractorDashboard holds what the contractor page knows at render time.
// Queries not cached yet arrive as loading and fetch themselves.
type ContractorDashboard struct {
	Stats      query.State[backend.ContractorStats]
	Projects   query.State[[]backend.Project]
	Submitting func(projectID, milestoneID int64) bool
}

type GovernmentDashboard struct {
	Stats    query.State[backend.GovernmentStats]
	Projects query.State[[]backend.Project]
}

type AuditorDashboard struct {
	Pending   query.State[[]backend.PendingVerification]
	Verifying func(milestoneID int64) bool
}

type PublicDashboard struct {
	Stats    query.State[backend.PublicStats]
	Projects query.State[[]backend.PublicProject]
}
