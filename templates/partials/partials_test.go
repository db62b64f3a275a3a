package partials

import (
	"bytes"
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"milestone_dashboard/services"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/services/i18n"
	"milestone_dashboard/services/query"
)

func TestMain(m *testing.M) {
	if _, err := i18n.Load(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func render(t *testing.T, ctx context.Context, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(ctx, &buf))
	return buf.String()
}

var fetchedAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleProject() backend.Project {
	return backend.Project{
		ID:                  3,
		Name:                "Riverside Bridge",
		Budget:              backend.Money(250000_00),
		FundsReleased:       backend.Money(50000_00),
		CompletedMilestones: 1,
		TotalMilestones:     3,
		Milestones: []backend.Milestone{
			{ID: 6, Name: "Foundations", Status: backend.MilestoneStatusCompleted, Amount: backend.Money(50000_00), DueDate: "2025-01-15"},
			{ID: 7, Name: "Deck", Status: backend.MilestoneStatusInProgress, Amount: backend.Money(120000_00), DueDate: "2025-04-01"},
			{ID: 8, Name: "Paint", Status: backend.MilestoneStatusPending, Amount: backend.Money(80000_00)},
		},
	}
}

func TestContractorStats(t *testing.T) {
	stats := backend.ContractorStats{
		TotalEarned:    backend.Money(5000_00),
		PendingAmount:  backend.Money(1200_00),
		ActiveProjects: 2,
	}

	t.Run("loaded", func(t *testing.T) {
		out := render(t, context.Background(), ContractorStats(query.Loaded(stats, fetchedAt)))
		assert.Contains(t, out, `<div class="stat-value">$5,000</div>`)
		assert.Contains(t, out, `<div class="stat-value">$1,200</div>`)
		assert.Contains(t, out, `<div class="stat-value">2</div>`)
		assert.Contains(t, out, "Total Earned")
		assert.Contains(t, out, `hx-trigger="contractor-refresh from:body"`)
		assert.NotContains(t, out, "Loading...")
	})

	t.Run("captions explain each figure", func(t *testing.T) {
		out := render(t, context.Background(), ContractorStats(query.Loaded(stats, fetchedAt)))
		assert.Contains(t, out, `<p class="stat-caption">From completed milestones</p>`)
		assert.Equal(t, 3, strings.Count(out, `class="stat-caption"`))
	})

	t.Run("spanish grouping", func(t *testing.T) {
		ctx := i18n.WithLocale(context.Background(), "es")
		out := render(t, ctx, ContractorStats(query.Loaded(stats, fetchedAt)))
		assert.Contains(t, out, "$5.000")
		assert.NotContains(t, out, "Total Earned")
	})

	t.Run("loading fetches on load", func(t *testing.T) {
		out := render(t, context.Background(), ContractorStats(query.Loading[backend.ContractorStats]()))
		assert.Contains(t, out, "Loading...")
		assert.Contains(t, out, `hx-get="/contractor/stats"`)
		assert.Contains(t, out, `hx-trigger="load, contractor-refresh from:body"`)
		assert.NotContains(t, out, "stat-value")
	})

	t.Run("failed offers retry", func(t *testing.T) {
		err := &backend.RequestError{Operation: backend.OpContractorStats, Kind: backend.KindStatus, StatusCode: 500}
		out := render(t, context.Background(), ContractorStats(query.Failed[backend.ContractorStats](err)))
		assert.Contains(t, out, `class="error-panel"`)
		assert.Contains(t, out, err.Error())
		assert.Contains(t, out, ">Retry</button>")
		assert.NotContains(t, out, "stat-value")
	})
}

func TestFailurePanelHidesUnexpectedErrors(t *testing.T) {
	for _, err := range []error{
		errors.New("dial tcp 10.0.0.4:8080: connect: connection refused"),
		context.Canceled,
	} {
		out := render(t, context.Background(), ContractorStats(query.Failed[backend.ContractorStats](err)))
		assert.Contains(t, out, "Could not load this section.")
		assert.NotContains(t, out, err.Error())
		assert.Contains(t, out, ">Retry</button>")
	}

	es := i18n.WithLocale(context.Background(), "es")
	out := render(t, es, GovernmentStats(query.Failed[backend.GovernmentStats](errors.New("boom"))))
	assert.Contains(t, out, "No se pudo cargar esta sección.")
}

func TestPublicStatsScore(t *testing.T) {
	out := render(t, context.Background(), PublicStats(query.Loaded(backend.PublicStats{
		TotalBudget:       backend.Money(1000000_00),
		TransparencyScore: 0.985,
	}, fetchedAt)))

	assert.Contains(t, out, "$1,000,000")
	assert.Contains(t, out, "98.5%")
	assert.NotContains(t, out, "hx-trigger", "public stats only load once")
}

func TestContractorProjectsStatesAreExclusive(t *testing.T) {
	cases := []struct {
		name    string
		state   query.State[[]backend.Project]
		want    string
		exclude []string
	}{
		{
			name:    "loading",
			state:   query.Loading[[]backend.Project](),
			want:    "Loading...",
			exclude: []string{"No projects found.", "error-panel", `class="card project"`},
		},
		{
			name:    "empty",
			state:   query.Loaded([]backend.Project{}, fetchedAt),
			want:    "No projects found.",
			exclude: []string{"Loading...", "error-panel", `class="card project"`},
		},
		{
			name:    "failed",
			state:   query.Failed[[]backend.Project](&backend.RequestError{Operation: backend.OpContractorProjects, Kind: backend.KindStatus, StatusCode: 500}),
			want:    "Failed to fetch contractor projects",
			exclude: []string{"Loading...", "No projects found.", `class="card project"`},
		},
		{
			name:    "populated",
			state:   query.Loaded([]backend.Project{sampleProject()}, fetchedAt),
			want:    "Riverside Bridge",
			exclude: []string{"Loading...", "No projects found.", "error-panel"},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out := render(t, context.Background(), ContractorProjects(tc.state, nil))
			assert.Contains(t, out, tc.want)
			for _, s := range tc.exclude {
				assert.NotContains(t, out, s)
			}
		})
	}
}

func TestEmptyProjectsRenderOnlyTheMessage(t *testing.T) {
	out := render(t, context.Background(), ContractorProjects(query.Loaded([]backend.Project(nil), fetchedAt), nil))

	inner := out[strings.Index(out, ">")+1 : strings.LastIndex(out, "</section>")]
	assert.Equal(t, `<p class="empty">No projects found.</p>`, inner)
}

func TestContractorProjectsPopulated(t *testing.T) {
	out := render(t, context.Background(), ContractorProjects(query.Loaded([]backend.Project{sampleProject()}, fetchedAt), nil))

	assert.Contains(t, out, "1 of 3 milestones")
	assert.Contains(t, out, `aria-valuenow="33"`)
	assert.Contains(t, out, "$250,000")
	assert.Contains(t, out, "Due 2025-04-01")

	// Only the in-progress milestone can be submitted.
	assert.Equal(t, 1, strings.Count(out, `hx-post="/contractor/projects/3/milestones/7/submit"`))
	assert.NotContains(t, out, "/milestones/6/submit")
	assert.NotContains(t, out, "/milestones/8/submit")
	assert.Contains(t, out, `hx-target="#toasts"`)
	assert.Contains(t, out, `hx-disabled-elt="find button"`)

	assert.Contains(t, out, "bg-success text-success-foreground")
	assert.Contains(t, out, "bg-crypto text-crypto-foreground")
	assert.Contains(t, out, "bg-secondary text-secondary-foreground")
	assert.Contains(t, out, "in progress")
}

func TestMilestoneRow(t *testing.T) {
	m := backend.Milestone{ID: 7, Name: "Deck", Status: backend.MilestoneStatusInProgress, Amount: backend.Money(1200_00)}

	t.Run("idle", func(t *testing.T) {
		out := render(t, context.Background(), MilestoneRow(3, m, false))
		assert.Contains(t, out, `<span class="label-idle">Submit</span>`)
		assert.Contains(t, out, `<span class="label-busy">Submitting...</span>`)
		assert.NotContains(t, out, " disabled")
		assert.Contains(t, out, "Upload Documents")
		assert.Contains(t, out, "Add Photos")
		assert.Contains(t, out, `hx-get="/contractor/projects/3/milestones/7/evidence"`)
		assert.Contains(t, out, `<p class="evidence-prompt">Ready to submit this milestone? Upload your proof of completion:</p>`)
	})

	t.Run("pickers offer accepted formats", func(t *testing.T) {
		out := render(t, context.Background(), MilestoneRow(3, m, false))
		assert.Contains(t, out, `accept=".docx,.jpeg,.jpg,.pdf,.png,.xlsx,.zip"`)
		assert.Contains(t, out, `accept=".gif,.jpeg,.jpg,.png,.webp"`)
	})

	t.Run("submitting", func(t *testing.T) {
		out := render(t, context.Background(), MilestoneRow(3, m, true))
		assert.Contains(t, out, `class="btn btn-primary" disabled>Submitting...</button>`)
		assert.NotContains(t, out, "label-idle\">Submit<")
	})

	t.Run("submitted has no controls", func(t *testing.T) {
		m := m
		m.Status = backend.MilestoneStatusSubmitted
		out := render(t, context.Background(), MilestoneRow(3, m, false))
		assert.NotContains(t, out, "<form")
		assert.Contains(t, out, "bg-warning")
	})

	t.Run("escapes names", func(t *testing.T) {
		m := m
		m.Name = "<img src=x>"
		out := render(t, context.Background(), MilestoneRow(3, m, false))
		assert.NotContains(t, out, "<img")
		assert.Contains(t, out, "&lt;img src=x&gt;")
	})
}

func TestSubmittingCallbackIsPerMilestone(t *testing.T) {
	p := sampleProject()
	p.Milestones = append(p.Milestones, backend.Milestone{ID: 9, Name: "Lights", Status: backend.MilestoneStatusInProgress})

	out := render(t, context.Background(), ContractorProjects(query.Loaded([]backend.Project{p}, fetchedAt), func(projectID, milestoneID int64) bool {
		return projectID == 3 && milestoneID == 9
	}))

	assert.Equal(t, 1, strings.Count(out, "disabled>Submitting...</button>"))
	assert.Equal(t, 1, strings.Count(out, `<span class="label-idle">Submit</span>`))
}

func TestGovernmentProjectsHaveNoSubmit(t *testing.T) {
	out := render(t, context.Background(), GovernmentProjects(query.Loaded([]backend.Project{sampleProject()}, fetchedAt)))

	assert.Contains(t, out, "Riverside Bridge")
	assert.NotContains(t, out, "/submit")
	assert.Contains(t, out, `hx-trigger="government-refresh from:body"`)
}

func TestPublicProjectsTransactions(t *testing.T) {
	p := backend.PublicProject{
		Project: sampleProject(),
		Transactions: []backend.Transaction{
			{Date: "2025-01-20T10:00:00Z", Amount: backend.Money(50000_00), Type: "release", Milestone: "Foundations"},
		},
	}
	out := render(t, context.Background(), PublicProjects(query.Loaded([]backend.PublicProject{p}, fetchedAt)))

	assert.Contains(t, out, "<td>2025-01-20</td><td>Foundations</td><td>release</td><td>$50,000</td>")
	assert.NotContains(t, out, "/submit")

	p.Transactions = nil
	out = render(t, context.Background(), PublicProjects(query.Loaded([]backend.PublicProject{p}, fetchedAt)))
	assert.Contains(t, out, "No transactions yet.")
}

func TestCreateProjectForm(t *testing.T) {
	out := render(t, context.Background(), CreateProjectForm())

	assert.Contains(t, out, `hx-post="/government/projects"`)
	assert.Contains(t, out, `data-reset-on="government-refresh"`)
	for _, field := range []string{FieldName, FieldBudget, FieldDescription, FieldContractorAddress} {
		assert.Contains(t, out, `name="`+field+`"`)
	}
	assert.Equal(t, initialMilestoneRows, strings.Count(out, `name="`+FieldMilestoneName+`"`))
	assert.Equal(t, initialMilestoneRows, strings.Count(out, `name="`+FieldMilestoneAmount+`"`))
}

func TestPendingVerifications(t *testing.T) {
	records := []backend.PendingVerification{
		{"milestoneId": float64(7), "milestoneName": "Deck", "projectName": "Riverside Bridge", "amount": float64(1200)},
		{"name": "Orphan record"},
	}

	out := render(t, context.Background(), PendingVerifications(query.Loaded(records, fetchedAt), nil))
	assert.Contains(t, out, "Deck")
	assert.Contains(t, out, "Riverside Bridge")
	assert.Contains(t, out, "$1,200")
	assert.Contains(t, out, "Orphan record")
	assert.Equal(t, 1, strings.Count(out, "<form"))
	assert.Contains(t, out, `hx-post="/auditor/milestones/7/verify"`)
	assert.Contains(t, out, `name="approved" value="true"`)
	assert.Contains(t, out, `name="approved" value="false"`)

	busy := render(t, context.Background(), PendingVerifications(query.Loaded(records, fetchedAt), func(id int64) bool { return id == 7 }))
	assert.Equal(t, 2, strings.Count(busy, " disabled>Saving...</button>"))

	empty := render(t, context.Background(), PendingVerifications(query.Loaded([]backend.PendingVerification{}, fetchedAt), nil))
	assert.Contains(t, empty, "Nothing is waiting for verification.")
}

func TestEvidenceList(t *testing.T) {
	files := []services.EvidenceFile{
		{
			Kind: services.EvidencePhotos,
			Name: "site.jpg",
			Size: 1536,
			URL:  "/static/uploads/projects/3/milestones/7/photos/site.jpg",
			StoredObject: services.StoredObject{
				Key:        "projects/3/milestones/7/photos/site.jpg",
				ModifiedAt: time.Now().Add(-5 * time.Minute),
			},
		},
	}

	out := render(t, context.Background(), EvidenceList(3, 7, query.Loaded(files, time.Now())))
	assert.Contains(t, out, `id="evidence-3-7"`)
	assert.Contains(t, out, `href="/static/uploads/projects/3/milestones/7/photos/site.jpg"`)
	assert.Contains(t, out, "1.50 KB")
	assert.Contains(t, out, "5 min ago")
	assert.Contains(t, out, `data-icon="camera"`)

	empty := render(t, context.Background(), EvidenceList(3, 7, query.Loaded([]services.EvidenceFile{}, time.Now())))
	assert.Contains(t, empty, "No files uploaded yet.")
	assert.NotContains(t, empty, "hx-trigger")
}

func TestEvidenceUploaded(t *testing.T) {
	files := []services.EvidenceFile{{Kind: services.EvidenceDocuments, Name: "report.pdf", Size: 2048, URL: "/evidence/projects/3/milestones/7/documents/report.pdf"}}
	toast := dashboard.Toast{ID: "t9", Title: "Files Uploaded", Description: "1 file(s) uploaded successfully."}

	out := render(t, context.Background(), EvidenceUploaded(3, 7, query.Loaded(files, time.Now()), toast))

	list := strings.Index(out, `id="evidence-3-7"`)
	oob := strings.Index(out, `<div hx-swap-oob="beforeend:#toasts">`)
	require.NotEqual(t, -1, list)
	require.NotEqual(t, -1, oob)
	assert.Less(t, list, oob)
	assert.Contains(t, out, "report.pdf")
	assert.Contains(t, out, `id="toast-t9"`)
}

func TestFormatFileSize(t *testing.T) {
	assert.Equal(t, "512 B", formatFileSize(512))
	assert.Equal(t, "1.00 KB", formatFileSize(1024))
	assert.Equal(t, "2.50 MB", formatFileSize(5*1024*1024/2))
	assert.Equal(t, "1.00 GB", formatFileSize(1024*1024*1024))
}

func TestFormatRelativeTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	assert.Equal(t, "just now", formatRelativeTime(ctx, now, now.Add(-10*time.Second)))
	assert.Equal(t, "3 min ago", formatRelativeTime(ctx, now, now.Add(-3*time.Minute)))
	assert.Equal(t, "2 h ago", formatRelativeTime(ctx, now, now.Add(-2*time.Hour)))
	assert.Equal(t, "4 d ago", formatRelativeTime(ctx, now, now.Add(-4*24*time.Hour)))
	assert.Equal(t, "2025-02-01", formatRelativeTime(ctx, now, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)))

	es := i18n.WithLocale(ctx, "es")
	assert.Equal(t, "hace 3 min", formatRelativeTime(es, now, now.Add(-3*time.Minute)))
}

func TestFormatDueDate(t *testing.T) {
	assert.Equal(t, "2025-04-01", formatDueDate("2025-04-01"))
	assert.Equal(t, "2025-04-01", formatDueDate("2025-04-01T09:30:00Z"))
	assert.Equal(t, "next spring", formatDueDate("next spring"))
}
