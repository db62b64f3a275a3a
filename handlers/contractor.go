package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/templates/pages"
	"milestone_dashboard/templates/partials"
)

// ContractorPageHandler renders the contractor dashboard from whatever is
// cached; missing regions load themselves.
func (h *Handler) ContractorPageHandler(c echo.Context) error {
	stats, projects := h.contractor.Cached(c.Request().Context())
	return render(c, http.StatusOK, pages.Contractor(pages.ContractorDashboard{
		Stats:      stats,
		Projects:   projects,
		Submitting: h.contractor.Submitting,
	}))
}

func (h *Handler) ContractorStatsHandler(c echo.Context) error {
	return render(c, http.StatusOK, partials.ContractorStats(h.contractor.Stats(c.Request().Context())))
}

func (h *Handler) ContractorProjectsHandler(c echo.Context) error {
	state := h.contractor.Projects(c.Request().Context())
	return render(c, http.StatusOK, partials.ContractorProjects(state, h.contractor.Submitting))
}

// SubmitMilestoneHandler submits one milestone for verification. Failures
// are reported in the toast, so the response is 200 either way.
func (h *Handler) SubmitMilestoneHandler(c echo.Context) error {
	projectID, err := paramID(c, "pid")
	if err != nil {
		return err
	}
	milestoneID, err := paramID(c, "mid")
	if err != nil {
		return err
	}

	result, _ := h.contractor.SubmitMilestone(c.Request().Context(), projectID, milestoneID)
	return respondMutation(c, result, "/contractor")
}
