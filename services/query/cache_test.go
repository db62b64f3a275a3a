package query

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var projectsKey = NewKey("contractor", "projects")

type row struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func newTestCache(t *testing.T, opts ...CacheOption) *Cache {
	t.Helper()
	c := NewCache(NewMemoryStore(0), opts...)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestKeyString(t *testing.T) {
	assert.Equal(t, "contractor:projects", projectsKey.String())
	assert.Equal(t, "auditor:pending-verifications", NewKey("auditor", "pending-verifications").String())
}

func TestStateVariants(t *testing.T) {
	assert.True(t, Loading[int]().IsLoading())
	assert.True(t, Loaded(3, time.Time{}).IsLoaded())

	failed := Failed[int](errors.New("boom"))
	assert.True(t, failed.IsFailed())
	assert.False(t, failed.IsLoaded())
	assert.Equal(t, "failed", failed.Status.String())
}

func TestFetchCachesSuccess(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	fetch := func(context.Context) ([]row, error) {
		calls.Add(1)
		return []row{{ID: 1, Name: "Bridge"}}, nil
	}

	first := Fetch(context.Background(), c, projectsKey, fetch)
	require.True(t, first.IsLoaded())
	assert.Equal(t, []row{{ID: 1, Name: "Bridge"}}, first.Data)

	second := Fetch(context.Background(), c, projectsKey, fetch)
	require.True(t, second.IsLoaded())
	assert.Equal(t, first.Data, second.Data)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchEmptyListIsLoaded(t *testing.T) {
	c := newTestCache(t)
	state := Fetch(context.Background(), c, projectsKey, func(context.Context) ([]row, error) {
		return []row{}, nil
	})
	require.True(t, state.IsLoaded())
	assert.Empty(t, state.Data)
}

func TestFetchErrorIsNotCached(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32

	state := Fetch(context.Background(), c, projectsKey, func(context.Context) ([]row, error) {
		calls.Add(1)
		return nil, errors.New("Failed to fetch contractor projects")
	})
	require.True(t, state.IsFailed())
	assert.EqualError(t, state.Err, "Failed to fetch contractor projects")

	state = Fetch(context.Background(), c, projectsKey, func(context.Context) ([]row, error) {
		calls.Add(1)
		return []row{{ID: 2}}, nil
	})
	assert.True(t, state.IsLoaded())
	assert.Equal(t, int32(2), calls.Load())
}

func TestConcurrentFetchesShareOneCall(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	release := make(chan struct{})

	fetch := func(context.Context) ([]row, error) {
		calls.Add(1)
		<-release
		return []row{{ID: 5}}, nil
	}

	var wg sync.WaitGroup
	results := make([]State[[]row], 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i] = Fetch(context.Background(), c, projectsKey, fetch)
		}(i)
	}

	// Let the goroutines pile up on the in-flight call.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.True(t, r.IsLoaded())
	}
}

func TestInvalidateTriggersExactlyOneRefetch(t *testing.T) {
	c := newTestCache(t)
	var calls atomic.Int32
	fetch := func(context.Context) ([]row, error) {
		n := calls.Add(1)
		time.Sleep(20 * time.Millisecond)
		return []row{{ID: int64(n)}}, nil
	}

	require.True(t, Fetch(context.Background(), c, projectsKey, fetch).IsLoaded())
	require.NoError(t, c.Invalidate(context.Background(), projectsKey))

	var wg sync.WaitGroup
	for range 5 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			Fetch(context.Background(), c, projectsKey, fetch)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(2), calls.Load())
	state := Peek[[]row](context.Background(), c, projectsKey)
	require.True(t, state.IsLoaded())
	assert.Equal(t, int64(2), state.Data[0].ID)
}

func TestInvalidateDuringFetchDiscardsStaleResult(t *testing.T) {
	c := newTestCache(t)
	started := make(chan struct{})
	release := make(chan struct{})

	done := make(chan State[[]row])
	go func() {
		done <- Fetch(context.Background(), c, projectsKey, func(context.Context) ([]row, error) {
			close(started)
			<-release
			return []row{{ID: 1, Name: "stale"}}, nil
		})
	}()

	<-started
	require.NoError(t, c.Invalidate(context.Background(), projectsKey))
	close(release)
	<-done

	assert.True(t, Peek[[]row](context.Background(), c, projectsKey).IsLoading())

	fresh := Fetch(context.Background(), c, projectsKey, func(context.Context) ([]row, error) {
		return []row{{ID: 1, Name: "fresh"}}, nil
	})
	require.True(t, fresh.IsLoaded())
	assert.Equal(t, "fresh", fresh.Data[0].Name)
}

func TestInvalidateLeavesOtherKeys(t *testing.T) {
	c := newTestCache(t)
	statsKey := NewKey("contractor", "stats")
	publicKey := NewKey("public", "projects")

	for _, k := range []Key{projectsKey, statsKey, publicKey} {
		Fetch(context.Background(), c, k, func(context.Context) (int, error) { return 1, nil })
	}

	require.NoError(t, c.Invalidate(context.Background(), projectsKey, statsKey))

	assert.True(t, Peek[int](context.Background(), c, projectsKey).IsLoading())
	assert.True(t, Peek[int](context.Background(), c, statsKey).IsLoading())
	assert.True(t, Peek[int](context.Background(), c, publicKey).IsLoaded())
}

func TestFetchHonoursCallerCancellation(t *testing.T) {
	c := newTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	state := Fetch(ctx, c, projectsKey, func(context.Context) ([]row, error) {
		time.Sleep(50 * time.Millisecond)
		return nil, nil
	})
	assert.True(t, state.IsFailed())
	assert.ErrorIs(t, state.Err, context.Canceled)
}

func TestFetchedAtUsesClock(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := newTestCache(t, WithClock(func() time.Time { return at }))

	state := Fetch(context.Background(), c, projectsKey, func(context.Context) (int, error) { return 7, nil })
	require.True(t, state.IsLoaded())
	assert.True(t, at.Equal(state.FetchedAt))
}

func TestClosedCache(t *testing.T) {
	c := NewCache(NewMemoryStore(0))
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	state := Fetch(context.Background(), c, projectsKey, func(context.Context) (int, error) { return 1, nil })
	assert.ErrorIs(t, state.Err, ErrCacheClosed)
}

func TestInvalidateOnOtherCacheDiscardsStaleResult(t *testing.T) {
	store := NewMemoryStore(0)
	t.Cleanup(func() { store.Close() })
	replicaA := NewCache(store)
	replicaB := NewCache(store)

	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan State[[]row])
	go func() {
		done <- Fetch(context.Background(), replicaA, projectsKey, func(context.Context) ([]row, error) {
			close(started)
			<-release
			return []row{{ID: 1, Name: "stale"}}, nil
		})
	}()

	<-started
	require.NoError(t, replicaB.Invalidate(context.Background(), projectsKey))
	close(release)
	require.True(t, (<-done).IsLoaded())

	assert.True(t, Peek[[]row](context.Background(), replicaA, projectsKey).IsLoading())
	assert.True(t, Peek[[]row](context.Background(), replicaB, projectsKey).IsLoading())

	fresh := Fetch(context.Background(), replicaB, projectsKey, func(context.Context) ([]row, error) {
		return []row{{ID: 1, Name: "fresh"}}, nil
	})
	require.True(t, fresh.IsLoaded())

	shared := Peek[[]row](context.Background(), replicaA, projectsKey)
	require.True(t, shared.IsLoaded())
	assert.Equal(t, "fresh", shared.Data[0].Name)
}

type failingGenStore struct {
	*MemoryStore
}

func (failingGenStore) Generation(context.Context, string) (uint64, error) {
	return 0, errors.New("connection reset")
}

func TestFetchWithoutGenerationServesButDoesNotStore(t *testing.T) {
	store := failingGenStore{NewMemoryStore(0)}
	c := NewCache(store)
	t.Cleanup(func() { c.Close() })

	state := Fetch(context.Background(), c, projectsKey, func(context.Context) (int, error) { return 4, nil })
	require.True(t, state.IsLoaded())
	assert.Equal(t, 4, state.Data)
	assert.Equal(t, 0, store.Len())
}
