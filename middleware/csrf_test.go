package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milestone_dashboard/config"
)

func TestGetCSRFToken(t *testing.T) {
	e := echo.New()

	c := e.NewContext(nil, nil)
	c.Set("csrf", "test-csrf-token")
	assert.Equal(t, "test-csrf-token", GetCSRFToken(c))

	c = e.NewContext(nil, nil)
	assert.Equal(t, "", GetCSRFToken(c))

	c = e.NewContext(nil, nil)
	c.Set("csrf", 123)
	assert.Equal(t, "", GetCSRFToken(c))
}

func TestCSRF(t *testing.T) {
	e := echo.New()
	e.Use(CSRF(&config.Config{Environment: "development"}))
	e.GET("/contractor", func(c echo.Context) error {
		return c.String(http.StatusOK, CSRFToken(c.Request().Context()))
	})
	e.POST("/contractor/projects/3/milestones/7/submit", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	e.GET("/healthz", func(c echo.Context) error { return c.NoContent(http.StatusOK) })

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/contractor", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	token := rec.Body.String()
	require.NotEmpty(t, token)

	var cookie *http.Cookie
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "_csrf" {
			cookie = ck
		}
	}
	require.NotNil(t, cookie)

	t.Run("Missing token is rejected", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/contractor/projects/3/milestones/7/submit", nil)
		req.AddCookie(cookie)
		e.ServeHTTP(rec, req)
		assert.NotEqual(t, http.StatusOK, rec.Code)
	})

	t.Run("Header token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/contractor/projects/3/milestones/7/submit", nil)
		req.AddCookie(cookie)
		req.Header.Set(CSRFHeader, token)
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Form token", func(t *testing.T) {
		rec := httptest.NewRecorder()
		form := url.Values{CSRFFormField: {token}}
		req := httptest.NewRequest(http.MethodPost, "/contractor/projects/3/milestones/7/submit", strings.NewReader(form.Encode()))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationForm)
		req.AddCookie(cookie)
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("Ops endpoints are skipped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Result().Cookies())
	})
}
