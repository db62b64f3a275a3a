package handlers

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"milestone_dashboard/middleware"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/services/i18n"
	"milestone_dashboard/templates/components"
	"milestone_dashboard/templates/pages"
)

// HTTPErrorHandler renders errors as a toast for htmx requests and as an
// error page otherwise.
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	var message string
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}

	key := errorMessageKey(status)
	if status >= http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed", zap.Int("status", status), zap.Error(err))
		message = ""
	}

	ctx := c.Request().Context()
	if message == "" || status == http.StatusNotFound {
		message = i18n.T(ctx, key)
	}

	if c.Request().Method == http.MethodHead {
		err = c.NoContent(status)
	} else if isHTMX(c) {
		retargetToToasts(c)
		toast := dashboard.ErrorToast(ctx, key)
		toast.Description = message
		err = render(c, status, components.Toast(toast))
	} else {
		err = render(c, status, pages.Error(status, message))
	}
	if err != nil {
		middleware.Logger(c).Error("failed to write error response", zap.Error(err))
	}
}

func errorMessageKey(status int) string {
	switch status {
	case http.StatusNotFound:
		return "errors.not_found"
	case http.StatusTooManyRequests:
		return "errors.rate_limited"
	default:
		return "errors.server"
	}
}
