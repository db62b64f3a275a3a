package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/services"
	"milestone_dashboard/templates/pages"
	"milestone_dashboard/templates/partials"
)

func (h *Handler) AuditorPageHandler(c echo.Context) error {
	return render(c, http.StatusOK, pages.Auditor(pages.AuditorDashboard{
		Pending:   h.auditor.Cached(c.Request().Context()),
		Verifying: h.auditor.Verifying,
	}))
}

func (h *Handler) PendingVerificationsHandler(c echo.Context) error {
	state := h.auditor.Pending(c.Request().Context())
	return render(c, http.StatusOK, partials.PendingVerifications(state, h.auditor.Verifying))
}

// VerifyMilestoneHandler records an approve or reject decision.
func (h *Handler) VerifyMilestoneHandler(c echo.Context) error {
	milestoneID, err := paramID(c, "mid")
	if err != nil {
		return err
	}
	approved, err := strconv.ParseBool(c.FormValue("approved"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "approved must be true or false")
	}
	notes := services.SanitizeText(c.FormValue("notes"))

	result, _ := h.auditor.Verify(c.Request().Context(), milestoneID, approved, notes)
	return respondMutation(c, result, "/auditor")
}
