package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/templates/components"
)

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

// render writes a component as the HTML response body.
func render(c echo.Context, status int, component templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(status)
	return component.Render(c.Request().Context(), c.Response().Writer)
}

// respondMutation answers a write. htmx callers get the toast, plus an
// HX-Trigger naming the refresh events on success; plain form posts are
// sent back to the page.
func respondMutation(c echo.Context, result dashboard.MutationResult, page string) error {
	if !isHTMX(c) {
		return c.Redirect(http.StatusSeeOther, page)
	}
	if len(result.Events) > 0 {
		c.Response().Header().Set("HX-Trigger", strings.Join(result.Events, ", "))
	}
	return render(c, http.StatusOK, components.Toast(result.Toast))
}

// retargetToToasts makes htmx append the response to the toast region
// whatever element issued the request.
func retargetToToasts(c echo.Context) {
	c.Response().Header().Set("HX-Retarget", "#"+components.ToastRegionID)
	c.Response().Header().Set("HX-Reswap", "beforeend")
}

func paramID(c echo.Context, name string) (int64, error) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid "+name)
	}
	return id, nil
}
