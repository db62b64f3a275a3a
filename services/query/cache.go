package query

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL is how long a fetched snapshot is served before refetching.
const DefaultTTL = 30 * time.Second

var ErrCacheClosed = errors.New("query cache is closed")

// Cache deduplicates concurrent reads of the same key and keeps the last
// successful result until it expires or is invalidated.
//
// A fetch that started before an invalidation of its key never writes its
// result back, so readers after the invalidation always see fresh data.
// The check runs against the store's generation counters, so it holds for
// every Cache sharing that store.
type Cache struct {
	store  Store
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time

	group  singleflight.Group
	closed atomic.Bool
}

type CacheOption func(*Cache)

func WithTTL(ttl time.Duration) CacheOption {
	return func(c *Cache) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithLogger(l *zap.Logger) CacheOption {
	return func(c *Cache) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithClock replaces time.Now, used for FetchedAt stamps.
func WithClock(now func() time.Time) CacheOption {
	return func(c *Cache) {
		if now != nil {
			c.now = now
		}
	}
}

// NewCache wraps store. A nil store gets an in-process MemoryStore.
func NewCache(store Store, opts ...CacheOption) *Cache {
	if store == nil {
		store = NewMemoryStore(time.Minute)
	}
	c := &Cache{
		store:  store,
		ttl:    DefaultTTL,
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	FetchedAt time.Time       `json:"fetchedAt"`
	Data      json.RawMessage `json:"data"`
}

// Fetch returns the cached state for key, calling fn at most once across
// concurrent callers when the key is missing. Errors from fn are returned
// as a failed state and never cached.
func Fetch[T any](ctx context.Context, c *Cache, key Key, fn func(context.Context) (T, error)) State[T] {
	if c.closed.Load() {
		return Failed[T](ErrCacheClosed)
	}
	k := key.String()

	if state, ok := lookup[T](ctx, c, k); ok {
		CacheEvents.WithLabelValues(k, "hit").Inc()
		return state
	}
	CacheEvents.WithLabelValues(k, "miss").Inc()

	ch := c.group.DoChan(k, func() (any, error) {
		// Shared by every waiter, so one caller going away must not cancel it.
		fctx := context.WithoutCancel(ctx)

		// Read before anything else so an invalidation from this point on
		// discards the result.
		gen, genErr := c.store.Generation(fctx, k)
		if genErr != nil {
			CacheEvents.WithLabelValues(k, "store_error").Inc()
			c.logger.Warn("Failed to read query generation", zap.String("key", k), zap.Error(genErr))
		}
		// A flight that finished between our lookup and DoChan already stored it.
		if genErr == nil {
			if raw, ok, err := c.store.Get(fctx, k); err == nil && ok {
				return raw, nil
			}
		}

		data, err := fn(fctx)
		if err != nil {
			return nil, err
		}
		raw, err := json.Marshal(data)
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		encoded, err := json.Marshal(envelope{FetchedAt: c.now(), Data: raw})
		if err != nil {
			return nil, fmt.Errorf("encode %s: %w", k, err)
		}
		if genErr != nil || c.closed.Load() {
			return encoded, nil
		}
		written, err := c.store.SetIfGeneration(fctx, k, gen, encoded, c.ttl)
		switch {
		case err != nil:
			CacheEvents.WithLabelValues(k, "store_error").Inc()
			c.logger.Warn("Failed to store query result", zap.String("key", k), zap.Error(err))
		case !written:
			CacheEvents.WithLabelValues(k, "stale_discard").Inc()
			c.logger.Debug("Discarded result invalidated mid-fetch", zap.String("key", k))
		}
		return encoded, nil
	})

	select {
	case <-ctx.Done():
		return Failed[T](ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			CacheEvents.WithLabelValues(k, "fetch_error").Inc()
			return Failed[T](res.Err)
		}
		state, err := decode[T](res.Val.([]byte))
		if err != nil {
			return Failed[T](err)
		}
		return state
	}
}

// Peek returns the cached state without fetching. A missing key reads as
// loading.
func Peek[T any](ctx context.Context, c *Cache, key Key) State[T] {
	if c.closed.Load() {
		return Failed[T](ErrCacheClosed)
	}
	if state, ok := lookup[T](ctx, c, key.String()); ok {
		return state
	}
	return Loading[T]()
}

func lookup[T any](ctx context.Context, c *Cache, k string) (State[T], bool) {
	raw, ok, err := c.store.Get(ctx, k)
	if err != nil {
		CacheEvents.WithLabelValues(k, "store_error").Inc()
		c.logger.Warn("Failed to read query cache", zap.String("key", k), zap.Error(err))
		return State[T]{}, false
	}
	if !ok {
		return State[T]{}, false
	}
	state, err := decode[T](raw)
	if err != nil {
		c.logger.Warn("Dropping undecodable cache entry", zap.String("key", k), zap.Error(err))
		_ = c.store.Delete(ctx, k)
		return State[T]{}, false
	}
	return state, true
}

func decode[T any](raw []byte) (State[T], error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return State[T]{}, err
	}
	var data T
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return State[T]{}, err
	}
	return Loaded(data, env.FetchedAt), nil
}

// Invalidate marks keys stale. The next Fetch of each key goes to the
// backend, even if an older fetch for it is still in flight here or on
// another Cache sharing the store.
func (c *Cache) Invalidate(ctx context.Context, keys ...Key) error {
	if len(keys) == 0 {
		return nil
	}
	names := make([]string, len(keys))
	for i, key := range keys {
		k := key.String()
		names[i] = k
		c.group.Forget(k)
		CacheEvents.WithLabelValues(k, "invalidate").Inc()
	}
	if c.closed.Load() {
		return nil
	}
	if err := c.store.Invalidate(ctx, names...); err != nil {
		c.logger.Error("Failed to invalidate queries", zap.Strings("keys", names), zap.Error(err))
		return err
	}
	c.logger.Debug("Invalidated queries", zap.Strings("keys", names))
	return nil
}

// Close releases the underlying store. Later fetches fail with
// ErrCacheClosed.
func (c *Cache) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.store.Close()
}
