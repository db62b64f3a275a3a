package handlers

import (
	"strings"
	"time"

	"milestone_dashboard/services"
	"milestone_dashboard/services/dashboard"
)

// Handler serves the dashboard pages, partials and mutations.
type Handler struct {
	contractor *dashboard.Contractor
	government *dashboard.Government
	auditor    *dashboard.Auditor
	public     *dashboard.Public
	evidence   *services.EvidenceService
	filesURL   string
	now        func() time.Time
}

// Deps are the services a Handler is built from.
type Deps struct {
	Contractor *dashboard.Contractor
	Government *dashboard.Government
	Auditor    *dashboard.Auditor
	Public     *dashboard.Public
	Evidence   *services.EvidenceService
	// EvidenceFilesURL is the route prefix locally stored evidence is
	// served under. Empty disables the route.
	EvidenceFilesURL string
}

func New(d Deps) *Handler {
	return &Handler{
		contractor: d.Contractor,
		government: d.Government,
		auditor:    d.Auditor,
		public:     d.Public,
		evidence:   d.Evidence,
		filesURL:   strings.TrimSuffix(d.EvidenceFilesURL, "/"),
		now:        time.Now,
	}
}
