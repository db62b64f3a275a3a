package dashboard

import (
	"context"
	"os"
	"testing"

	"github.com/stretchr/testify/mock"

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

func newCache(t *testing.T) *query.Cache {
	t.Helper()
	c := query.NewCache(query.NewMemoryStore(0))
	t.Cleanup(func() { c.Close() })
	return c
}

// MockAPI implements every role interface on top of testify's mock.
type MockAPI struct {
	mock.Mock
}

func (m *MockAPI) ContractorProjects(ctx context.Context) ([]backend.Project, error) {
	args := m.Called(ctx)
	projects, _ := args.Get(0).([]backend.Project)
	return projects, args.Error(1)
}

func (m *MockAPI) ContractorStats(ctx context.Context) (backend.ContractorStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(backend.ContractorStats), args.Error(1)
}

func (m *MockAPI) SubmitMilestone(ctx context.Context, projectID, milestoneID int64) error {
	return m.Called(ctx, projectID, milestoneID).Error(0)
}

func (m *MockAPI) GovernmentProjects(ctx context.Context) ([]backend.Project, error) {
	args := m.Called(ctx)
	projects, _ := args.Get(0).([]backend.Project)
	return projects, args.Error(1)
}

func (m *MockAPI) GovernmentStats(ctx context.Context) (backend.GovernmentStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(backend.GovernmentStats), args.Error(1)
}

func (m *MockAPI) CreateProject(ctx context.Context, req backend.CreateProjectRequest) (*backend.Project, error) {
	args := m.Called(ctx, req)
	project, _ := args.Get(0).(*backend.Project)
	return project, args.Error(1)
}

func (m *MockAPI) PendingVerifications(ctx context.Context) ([]backend.PendingVerification, error) {
	args := m.Called(ctx)
	records, _ := args.Get(0).([]backend.PendingVerification)
	return records, args.Error(1)
}

func (m *MockAPI) VerifyMilestone(ctx context.Context, milestoneID int64, approved bool, notes string) error {
	return m.Called(ctx, milestoneID, approved, notes).Error(0)
}

func (m *MockAPI) PublicProjects(ctx context.Context) ([]backend.PublicProject, error) {
	args := m.Called(ctx)
	projects, _ := args.Get(0).([]backend.PublicProject)
	return projects, args.Error(1)
}

func (m *MockAPI) PublicStats(ctx context.Context) (backend.PublicStats, error) {
	args := m.Called(ctx)
	return args.Get(0).(backend.PublicStats), args.Error(1)
}
