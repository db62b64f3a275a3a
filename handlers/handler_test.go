package handlers

import (
	"errors"
	"net/http"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milestone_dashboard/services/dashboard"
)

func TestHomePage(t *testing.T) {
	f := newFixture(t, Limits{})

	rec := f.do(http.MethodGet, "/", nil, nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, echo.MIMETextHTMLCharsetUTF8, rec.Header().Get(echo.HeaderContentType))
	assert.Contains(t, rec.Body.String(), `href="/auditor"`)
}

func TestHealth(t *testing.T) {
	f := newFixture(t, Limits{})

	rec := f.do(http.MethodGet, "/healthz", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	f := newFixture(t, Limits{})
	f.do(http.MethodGet, "/contractor/stats", nil, htmxHeaders)

	rec := f.do(http.MethodGet, "/metrics", nil, nil)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "milestone_dashboard_query_cache_events_total")
}

func TestNotFoundPage(t *testing.T) {
	f := newFixture(t, Limits{})

	rec := f.do(http.MethodGet, "/nowhere", nil, nil)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Page not found.")
}

func TestHTTPErrorHandlerHidesInternalErrors(t *testing.T) {
	_, c, rec := setupEcho(http.MethodGet, "/contractor/stats", nil)
	c.Request().Header.Set("HX-Request", "true")

	HTTPErrorHandler(errors.New("dial tcp: connection refused"), c)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "#toasts", rec.Header().Get("HX-Retarget"))
	assert.Equal(t, "beforeend", rec.Header().Get("HX-Reswap"))
	assert.Contains(t, rec.Body.String(), "Something went wrong.")
	assert.NotContains(t, rec.Body.String(), "connection refused")
}

func TestRespondMutationJoinsEvents(t *testing.T) {
	_, c, rec := setupEcho(http.MethodPost, "/auditor/milestones/1/verify", nil)
	c.Request().Header.Set("HX-Request", "true")

	err := respondMutation(c, dashboard.MutationResult{
		Toast:  dashboard.Toast{ID: "x", Title: "Done"},
		Events: []string{dashboard.AuditorRefreshEvent, dashboard.ContractorRefreshEvent},
	}, "/auditor")

	require.NoError(t, err)
	assert.Equal(t, "auditor-refresh, contractor-refresh", rec.Header().Get("HX-Trigger"))
	assert.Contains(t, rec.Body.String(), `id="toast-x"`)
}
