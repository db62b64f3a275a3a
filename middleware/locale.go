package middleware

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/config"
	"milestone_dashboard/services/i18n"
)

const localeCookie = "lang"

// Locale picks the request language.
// Priority:
// 1. Query param "lang" (also persisted in a cookie)
// 2. Cookie "lang"
// 3. Accept-Language header
// 4. Default ("en")
func Locale(cfg *config.Config) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			var lang string
			if q := c.QueryParam("lang"); q != "" {
				lang = i18n.Match(q)
				SetLanguageCookie(c, cfg, lang)
			} else if cookie, err := c.Cookie(localeCookie); err == nil {
				lang = i18n.Match(cookie.Value)
			} else {
				lang = i18n.Match(c.Request().Header.Get("Accept-Language"))
			}

			c.Set("locale", lang)
			c.SetRequest(c.Request().WithContext(i18n.WithLocale(c.Request().Context(), lang)))
			c.Response().Header().Set("Content-Language", lang)
			return next(c)
		}
	}
}

// SetLanguageCookie remembers the language for a year.
func SetLanguageCookie(c echo.Context, cfg *config.Config, lang string) {
	c.SetCookie(&http.Cookie{
		Name:     localeCookie,
		Value:    lang,
		Expires:  time.Now().Add(365 * 24 * time.Hour),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   cfg != nil && cfg.IsProduction(),
	})
}

// GetLocale returns the current locale from context
func GetLocale(c echo.Context) string {
	if lang, ok := c.Get("locale").(string); ok {
		return lang
	}
	return i18n.DefaultLocale
}
