package handlers

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/services"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/templates/pages"
	"milestone_dashboard/templates/partials"
)

func (h *Handler) GovernmentPageHandler(c echo.Context) error {
	stats, projects := h.government.Cached(c.Request().Context())
	return render(c, http.StatusOK, pages.Government(pages.GovernmentDashboard{Stats: stats, Projects: projects}))
}

func (h *Handler) GovernmentStatsHandler(c echo.Context) error {
	return render(c, http.StatusOK, partials.GovernmentStats(h.government.Stats(c.Request().Context())))
}

func (h *Handler) GovernmentProjectsHandler(c echo.Context) error {
	return render(c, http.StatusOK, partials.GovernmentProjects(h.government.Projects(c.Request().Context())))
}

// CreateProjectHandler reads the create-project form. Invalid input is
// reported in the toast like a backend failure.
func (h *Handler) CreateProjectHandler(c echo.Context) error {
	ctx := c.Request().Context()

	form, err := c.FormParams()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}

	drafts, err := dashboard.ParseMilestoneDrafts(
		form[partials.FieldMilestoneName],
		form[partials.FieldMilestoneAmount],
		form[partials.FieldMilestoneDue],
	)
	if err != nil {
		return respondMutation(c, dashboard.MutationResult{
			Toast: dashboard.ErrorToast(ctx, "toast.create.invalid", map[string]interface{}{"reason": err.Error()}),
		}, "/government")
	}

	// An unparsable budget is left at zero and rejected by validation.
	budget, _ := backend.ParseMoney(form.Get(partials.FieldBudget))

	req := backend.CreateProjectRequest{
		Name:              services.SanitizeText(form.Get(partials.FieldName)),
		Budget:            budget,
		Description:       services.SanitizeText(form.Get(partials.FieldDescription)),
		ContractorAddress: strings.TrimSpace(form.Get(partials.FieldContractorAddress)),
		Milestones:        drafts,
	}
	for i := range req.Milestones {
		req.Milestones[i].Name = services.SanitizeText(req.Milestones[i].Name)
	}

	result, _ := h.government.CreateProject(ctx, req)
	return respondMutation(c, result, "/government")
}
