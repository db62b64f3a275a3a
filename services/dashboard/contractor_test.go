package dashboard

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/query"
)

// fakeBackend counts calls per path and lets tests choose the submit status.
type fakeBackend struct {
	projectGets  atomic.Int32
	statsGets    atomic.Int32
	submits      atomic.Int32
	submitStatus atomic.Int32
	submitPath   atomic.Value
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.Method == http.MethodGet && r.URL.Path == "/contractor/projects":
		f.projectGets.Add(1)
		fmt.Fprint(w, `[{"id": 3, "name": "Bridge Repair", "budget": 50000, "status": "active",
			"completedMilestones": 1, "totalMilestones": 2, "fundsReleased": 25000,
			"milestones": [{"id": 7, "name": "Deck", "status": "in-progress", "amount": 25000, "dueDate": "2024-06-01"}]}]`)
	case r.Method == http.MethodGet && r.URL.Path == "/contractor/stats":
		f.statsGets.Add(1)
		fmt.Fprint(w, `{"totalEarned": 5000, "pendingAmount": 1200, "activeProjects": 2}`)
	case r.Method == http.MethodPost:
		f.submits.Add(1)
		f.submitPath.Store(r.URL.Path)
		w.WriteHeader(int(f.submitStatus.Load()))
	default:
		http.NotFound(w, r)
	}
}

func newContractorFixture(t *testing.T, status int) (*Contractor, *fakeBackend, *query.Cache) {
	t.Helper()
	fb := &fakeBackend{}
	fb.submitStatus.Store(int32(status))
	server := httptest.NewServer(fb)
	t.Cleanup(server.Close)

	client, err := backend.New(server.URL)
	require.NoError(t, err)
	cache := newCache(t)
	return NewContractor(client, cache, nil, nil), fb, cache
}

func TestSubmitMilestoneSuccessRefreshesOnce(t *testing.T) {
	ctx := context.Background()
	svc, fb, cache := newContractorFixture(t, http.StatusOK)

	require.True(t, svc.Projects(ctx).IsLoaded())
	require.True(t, svc.Stats(ctx).IsLoaded())

	result, err := svc.SubmitMilestone(ctx, 3, 7)
	require.NoError(t, err)

	assert.Equal(t, int32(1), fb.submits.Load())
	assert.Equal(t, "/contractor/projects/3/milestones/7/submit", fb.submitPath.Load())
	assert.Equal(t, []query.Key{ContractorProjectsKey, ContractorStatsKey}, result.Invalidated)
	assert.Equal(t, []string{ContractorRefreshEvent}, result.Events)
	assert.Equal(t, "Milestone Submitted", result.Toast.Title)
	assert.Equal(t, "Your milestone has been submitted for verification.", result.Toast.Description)
	assert.Equal(t, ToastDefault, result.Toast.Variant)
	assert.NotEmpty(t, result.Toast.ID)

	assert.True(t, query.Peek[[]backend.Project](ctx, cache, ContractorProjectsKey).IsLoading())

	// Both partials reload concurrently from several viewers.
	var wg sync.WaitGroup
	for range 4 {
		wg.Add(2)
		go func() { defer wg.Done(); svc.Projects(ctx) }()
		go func() { defer wg.Done(); svc.Stats(ctx) }()
	}
	wg.Wait()

	assert.Equal(t, int32(2), fb.projectGets.Load(), "projects refetched exactly once")
	assert.Equal(t, int32(2), fb.statsGets.Load(), "stats refetched exactly once")
}

func TestSubmitMilestoneFailureKeepsData(t *testing.T) {
	ctx := context.Background()
	svc, fb, _ := newContractorFixture(t, http.StatusConflict)

	before := svc.Projects(ctx)
	require.True(t, before.IsLoaded())
	svc.Stats(ctx)

	result, err := svc.SubmitMilestone(ctx, 3, 7)
	require.Error(t, err)
	assert.Equal(t, "Failed to submit milestone", err.Error())
	assert.Empty(t, result.Invalidated)
	assert.Empty(t, result.Events)
	assert.Equal(t, "Error", result.Toast.Title)
	assert.Equal(t, "Failed to submit milestone. Please try again.", result.Toast.Description)
	assert.Equal(t, ToastDestructive, result.Toast.Variant)

	after := svc.Projects(ctx)
	assert.Equal(t, before.Data, after.Data)
	svc.Stats(ctx)
	assert.Equal(t, int32(1), fb.projectGets.Load())
	assert.Equal(t, int32(1), fb.statsGets.Load())
}

func TestSubmitMilestoneBusyState(t *testing.T) {
	ctx := context.Background()
	api := new(MockAPI)
	release := make(chan struct{})
	started := make(chan struct{})

	api.On("SubmitMilestone", mock.Anything, int64(3), int64(7)).
		Run(func(mock.Arguments) { close(started); <-release }).
		Return(nil).Once()
	api.On("SubmitMilestone", mock.Anything, int64(3), int64(8)).Return(nil).Once()

	var (
		mu          sync.Mutex
		transitions []bool
	)
	inflight := NewInFlight(func(ref MilestoneRef, busy bool) {
		if ref.MilestoneID == 7 {
			mu.Lock()
			transitions = append(transitions, busy)
			mu.Unlock()
		}
	})
	svc := NewContractor(api, newCache(t), inflight, nil)

	done := make(chan error)
	go func() {
		_, err := svc.SubmitMilestone(ctx, 3, 7)
		done <- err
	}()
	<-started

	assert.True(t, svc.Submitting(3, 7))
	result, err := svc.SubmitMilestone(ctx, 3, 7)
	assert.ErrorIs(t, err, ErrSubmissionInFlight)
	assert.Equal(t, ToastDestructive, result.Toast.Variant)
	assert.Empty(t, result.Invalidated)

	_, err = svc.SubmitMilestone(ctx, 3, 8)
	assert.NoError(t, err, "other milestones are not blocked")

	close(release)
	require.NoError(t, <-done)
	assert.False(t, svc.Submitting(3, 7))

	mu.Lock()
	assert.Equal(t, []bool{true, false}, transitions, "control re-enabled exactly once")
	mu.Unlock()
	api.AssertExpectations(t)
}

func TestSubmitMilestoneReenablesAfterFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("SubmitMilestone", mock.Anything, int64(1), int64(2)).
		Return(&backend.RequestError{Operation: backend.OpSubmitMilestone, Kind: backend.KindTimeout, Err: context.DeadlineExceeded})

	idle := 0
	inflight := NewInFlight(func(_ MilestoneRef, busy bool) {
		if !busy {
			idle++
		}
	})
	svc := NewContractor(api, newCache(t), inflight, nil)

	_, err := svc.SubmitMilestone(context.Background(), 1, 2)
	assert.True(t, errors.Is(err, backend.ErrTimeout))
	assert.Equal(t, 1, idle)
	assert.False(t, svc.Submitting(1, 2))
}

func TestContractorProjectsFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("ContractorProjects", mock.Anything).
		Return(nil, &backend.RequestError{Operation: backend.OpContractorProjects, Kind: backend.KindNetwork}).Once()
	api.On("ContractorProjects", mock.Anything).Return([]backend.Project{}, nil).Once()
	svc := NewContractor(api, newCache(t), nil, nil)

	state := svc.Projects(context.Background())
	require.True(t, state.IsFailed())
	assert.Equal(t, "Failed to fetch contractor projects", state.Err.Error())

	state = svc.Projects(context.Background())
	require.True(t, state.IsLoaded())
	assert.Empty(t, state.Data)
	api.AssertExpectations(t)
}

func TestContractorStatsTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer server.Close()

	client, err := backend.New(server.URL, backend.WithTimeout(20*time.Millisecond))
	require.NoError(t, err)
	svc := NewContractor(client, newCache(t), nil, nil)

	state := svc.Stats(context.Background())
	require.True(t, state.IsFailed())
	assert.ErrorIs(t, state.Err, backend.ErrTimeout)
}

func TestOpenMilestone(t *testing.T) {
	api := new(MockAPI)
	api.On("ContractorProjects", mock.Anything).Return([]backend.Project{{
		ID: 3, Name: "Bridge Repair", Budget: 50000_00,
		Milestones: []backend.Milestone{
			{ID: 6, Name: "Survey", Status: backend.MilestoneStatusCompleted, Amount: 25000_00},
			{ID: 7, Name: "Deck", Status: backend.MilestoneStatusInProgress, Amount: 25000_00},
			{ID: 8, Name: "Rails", Status: backend.MilestoneStatusSubmitted, Amount: 1000_00},
		},
	}}, nil).Once()
	svc := NewContractor(api, newCache(t), nil, nil)
	ctx := context.Background()

	m, err := svc.OpenMilestone(ctx, 3, 7)
	require.NoError(t, err)
	assert.Equal(t, "Deck", m.Name)

	_, err = svc.OpenMilestone(ctx, 3, 6)
	assert.ErrorIs(t, err, ErrMilestoneClosed)
	_, err = svc.OpenMilestone(ctx, 3, 8)
	assert.ErrorIs(t, err, ErrMilestoneClosed)

	_, err = svc.OpenMilestone(ctx, 3, 9)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)
	_, err = svc.OpenMilestone(ctx, 4, 7)
	assert.ErrorIs(t, err, ErrMilestoneNotFound)

	api.AssertNumberOfCalls(t, "ContractorProjects", 1)
}

func TestOpenMilestoneBackendFailure(t *testing.T) {
	api := new(MockAPI)
	api.On("ContractorProjects", mock.Anything).
		Return(nil, &backend.RequestError{Operation: backend.OpContractorProjects, Kind: backend.KindNetwork}).Once()
	svc := NewContractor(api, newCache(t), nil, nil)

	_, err := svc.OpenMilestone(context.Background(), 3, 7)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrMilestoneNotFound)
	assert.True(t, errors.Is(err, backend.ErrRequestFailed))
}

func TestCheckProjectsWarnings(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	checkProjects(zap.New(core), []backend.Project{
		{ID: 1, Budget: 100_00, Milestones: []backend.Milestone{
			{ID: 1, Status: backend.MilestoneStatusPending, Amount: 80_00},
			{ID: 2, Status: "paused", Amount: 30_00},
		}},
		{ID: 2, Budget: 100_00, Milestones: []backend.Milestone{
			{ID: 3, Status: backend.MilestoneStatusCompleted, Amount: 100_00},
		}},
	})

	require.Equal(t, 2, logs.Len())
	budget := logs.FilterMessage("Milestones exceed project budget").All()
	require.Len(t, budget, 1)
	assert.Equal(t, int64(1), budget[0].ContextMap()["project_id"])
	assert.Equal(t, "110", budget[0].ContextMap()["allocated"])

	status := logs.FilterMessage("Unknown milestone status").All()
	require.Len(t, status, 1)
	assert.Equal(t, "paused", status[0].ContextMap()["status"])
}
