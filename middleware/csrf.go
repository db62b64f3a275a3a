package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"

	"milestone_dashboard/config"
)

const (
	// CSRFHeader is sent by htmx on every request via hx-headers.
	CSRFHeader = "X-CSRF-Token"
	// CSRFFormField is the hidden input name for plain form posts.
	CSRFFormField = "_csrf"

	csrfContextKey contextKey = "csrf"
)

// CSRF protects every unsafe method. The token is exposed to handlers via
// echo's context and to templates via the request context.
func CSRF(cfg *config.Config) echo.MiddlewareFunc {
	protect := echomiddleware.CSRFWithConfig(echomiddleware.CSRFConfig{
		TokenLookup:    "header:" + CSRFHeader + ",form:" + CSRFFormField,
		CookieName:     "_csrf",
		CookiePath:     "/",
		CookieHTTPOnly: true,
		CookieSecure:   cfg.IsProduction(),
		CookieSameSite: http.SameSiteStrictMode,
		Skipper: func(c echo.Context) bool {
			p := c.Request().URL.Path
			return p == "/metrics" || p == "/healthz" || strings.HasPrefix(p, "/static/")
		},
	})

	expose := func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token := GetCSRFToken(c); token != "" {
				ctx := context.WithValue(c.Request().Context(), csrfContextKey, token)
				c.SetRequest(c.Request().WithContext(ctx))
			}
			return next(c)
		}
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return protect(expose(next))
	}
}

// GetCSRFToken retrieves the CSRF token from the Echo context
func GetCSRFToken(c echo.Context) string {
	if token, ok := c.Get("csrf").(string); ok {
		return token
	}
	return ""
}

// CSRFToken retrieves the token from a request context, for templates.
func CSRFToken(ctx context.Context) string {
	if token, ok := ctx.Value(csrfContextKey).(string); ok {
		return token
	}
	return ""
}
