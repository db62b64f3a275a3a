package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"

	"milestone_dashboard/config"
	"milestone_dashboard/services/i18n"
)

func TestLocale(t *testing.T) {
	e := echo.New()
	cfg := &config.Config{Environment: "development"}

	run := func(req *http.Request) (echo.Context, *httptest.ResponseRecorder) {
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		handler := Locale(cfg)(func(c echo.Context) error {
			return c.NoContent(http.StatusOK)
		})
		assert.NoError(t, handler(c))
		return c, rec
	}

	t.Run("Query param wins and is remembered", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?lang=es", nil)
		req.Header.Set("Accept-Language", "en-US")
		c, rec := run(req)

		assert.Equal(t, "es", GetLocale(c))
		assert.Equal(t, "es", i18n.GetLocale(c.Request().Context()))
		assert.Equal(t, "es", rec.Header().Get("Content-Language"))

		var found bool
		for _, cookie := range rec.Result().Cookies() {
			if cookie.Name == "lang" {
				assert.Equal(t, "es", cookie.Value)
				assert.False(t, cookie.Secure)
				found = true
			}
		}
		assert.True(t, found)
	})

	t.Run("Unsupported query falls back to default", func(t *testing.T) {
		c, _ := run(httptest.NewRequest(http.MethodGet, "/?lang=de", nil))
		assert.Equal(t, "en", GetLocale(c))
	})

	t.Run("Cookie", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.AddCookie(&http.Cookie{Name: "lang", Value: "es"})
		c, _ := run(req)
		assert.Equal(t, "es", GetLocale(c))
	})

	t.Run("Accept-Language", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Accept-Language", "es-MX,es;q=0.9")
		c, _ := run(req)
		assert.Equal(t, "es", GetLocale(c))
	})

	t.Run("Default", func(t *testing.T) {
		c, _ := run(httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, "en", GetLocale(c))
	})
}

func TestSetLanguageCookieSecureInProduction(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	SetLanguageCookie(c, &config.Config{Environment: "production"}, "es")
	cookies := rec.Result().Cookies()
	if assert.Len(t, cookies, 1) {
		assert.True(t, cookies[0].Secure)
	}
}
