package dashboard

import "milestone_dashboard/services/query"

// Roles served by the dashboard.
const (
	RoleContractor = "contractor"
	RoleGovernment = "government"
	RoleAuditor    = "auditor"
	RolePublic     = "public"
)

// Cached reads, one per role and backend listing.
var (
	ContractorProjectsKey   = query.NewKey(RoleContractor, "projects")
	ContractorStatsKey      = query.NewKey(RoleContractor, "stats")
	GovernmentProjectsKey   = query.NewKey(RoleGovernment, "projects")
	GovernmentStatsKey      = query.NewKey(RoleGovernment, "stats")
	PublicProjectsKey       = query.NewKey(RolePublic, "projects")
	PublicStatsKey          = query.NewKey(RolePublic, "stats")
	PendingVerificationsKey = query.NewKey(RoleAuditor, "pending-verifications")
)

// Refresh events sent in HX-Trigger after a successful mutation. Partials
// listening for them reload once.
const (
	ContractorRefreshEvent = "contractor-refresh"
	GovernmentRefreshEvent = "government-refresh"
	AuditorRefreshEvent    = "auditor-refresh"
)

// MutationResult is what a successful or failed write hands back to the
// handler: the toast to show and the queries it invalidated.
type MutationResult struct {
	Toast       Toast
	Invalidated []query.Key
	Events      []string
}
