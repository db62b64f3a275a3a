package pages

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/i18n"
	"milestone_dashboard/services/query"
)

func TestMain(m *testing.M) {
	if _, err := i18n.Load(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestHome(t *testing.T) {
	out := render(t, Home())

	assert.Contains(t, out, "<title>Milestone Funding</title>")
	for _, role := range []string{"contractor", "government", "auditor", "public"} {
		assert.Contains(t, out, `<a class="card role-card" href="/`+role+`">`)
	}
}

func TestContractorPageLoadsItsRegions(t *testing.T) {
	out := render(t, Contractor(ContractorDashboard{
		Stats:    query.Loading[backend.ContractorStats](),
		Projects: query.Loading[[]backend.Project](),
	}))

	assert.Contains(t, out, "<title>Contractor Dashboard | Milestone Funding</title>")
	assert.Contains(t, out, `hx-get="/contractor/stats"`)
	assert.Contains(t, out, `hx-get="/contractor/projects"`)
	assert.Equal(t, 2, strings.Count(out, `hx-trigger="load, contractor-refresh from:body"`))
	assert.Contains(t, out, `href="/contractor" aria-current="page"`)
}

func TestContractorPageRendersCachedData(t *testing.T) {
	out := render(t, Contractor(ContractorDashboard{
		Stats:    query.Loaded(backend.ContractorStats{TotalEarned: backend.Money(5000_00)}, time.Now()),
		Projects: query.Loaded([]backend.Project{}, time.Now()),
	}))

	assert.Contains(t, out, "$5,000")
	assert.Contains(t, out, "No projects found.")
	assert.NotContains(t, out, "load, contractor-refresh")
}

func TestGovernmentPage(t *testing.T) {
	out := render(t, Government(GovernmentDashboard{
		Stats:    query.Loading[backend.GovernmentStats](),
		Projects: query.Loading[[]backend.Project](),
	}))

	assert.Contains(t, out, "New Project")
	assert.Contains(t, out, `hx-post="/government/projects"`)
	assert.Equal(t, 2, strings.Count(out, `hx-trigger="load, government-refresh from:body"`))
}

func TestAuditorPage(t *testing.T) {
	out := render(t, Auditor(AuditorDashboard{Pending: query.Loading[[]backend.PendingVerification]()}))

	assert.Contains(t, out, "Pending Verifications")
	assert.Contains(t, out, `hx-get="/auditor/verifications"`)
	assert.Contains(t, out, `hx-trigger="load, auditor-refresh from:body"`)
}

func TestPublicPage(t *testing.T) {
	out := render(t, Public(PublicDashboard{
		Stats:    query.Loading[backend.PublicStats](),
		Projects: query.Loading[[]backend.PublicProject](),
	}))

	assert.Contains(t, out, `href="`+ExportPath+`"`)
	assert.Contains(t, out, `hx-get="/public/projects"`)
	assert.Equal(t, 2, strings.Count(out, `hx-trigger="load"`))
}

func TestErrorPage(t *testing.T) {
	out := render(t, Error(http.StatusNotFound, "Page not found."))

	assert.Contains(t, out, "<strong>404</strong> Page not found.")
	assert.Contains(t, out, `role="alert"`)
}
