package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/templates/pages"
)

// HomeHandler renders the role picker.
func (h *Handler) HomeHandler(c echo.Context) error {
	return render(c, http.StatusOK, pages.Home())
}

// HealthHandler reports liveness.
func HealthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
