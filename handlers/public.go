package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"milestone_dashboard/middleware"
	"milestone_dashboard/services"
	"milestone_dashboard/templates/pages"
	"milestone_dashboard/templates/partials"
)

func (h *Handler) PublicPageHandler(c echo.Context) error {
	stats, projects := h.public.Cached(c.Request().Context())
	return render(c, http.StatusOK, pages.Public(pages.PublicDashboard{Stats: stats, Projects: projects}))
}

func (h *Handler) PublicStatsHandler(c echo.Context) error {
	return render(c, http.StatusOK, partials.PublicStats(h.public.Stats(c.Request().Context())))
}

func (h *Handler) PublicProjectsHandler(c echo.Context) error {
	return render(c, http.StatusOK, partials.PublicProjects(h.public.Projects(c.Request().Context())))
}

// ExportLedgerHandler serves every public transaction as an xlsx workbook.
func (h *Handler) ExportLedgerHandler(c echo.Context) error {
	ctx := c.Request().Context()

	projects, rows, err := h.public.Ledger(ctx)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadGateway, err.Error())
	}

	buf, err := services.GenerateLedgerWorkbook(ctx, projects, rows)
	if err != nil {
		middleware.Logger(c).Error("Failed to generate ledger workbook", zap.Error(err))
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to generate ledger")
	}

	c.Response().Header().Set("Content-Disposition", "attachment; filename="+services.LedgerFilename(h.now()))
	return c.Blob(http.StatusOK, services.XLSXContentType, buf.Bytes())
}
