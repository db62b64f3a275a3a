package middleware

import (
	"html"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"

	"milestone_dashboard/services/i18n"
)

// RateLimitConfig defines the configuration for rate limiting
type RateLimitConfig struct {
	// Requests is the maximum number of requests allowed within the window
	Requests int
	// Window is the time window for rate limiting
	Window time.Duration
	// KeyFunc returns the bucket for a request (defaults to the client IP)
	KeyFunc func(c echo.Context) string
	// MessageKey is the i18n key of the rejection message
	MessageKey string
}

type rateLimitEntry struct {
	count     int
	expiresAt time.Time
}

// RateLimiter is a fixed-window limiter keyed per client.
type RateLimiter struct {
	config RateLimitConfig
	store  map[string]*rateLimitEntry
	mu     sync.Mutex
	now    func() time.Time
	stop   chan struct{}
	once   sync.Once
}

// NewRateLimiter creates a limiter and starts its cleanup goroutine. Call
// Stop when the server shuts down.
func NewRateLimiter(config RateLimitConfig) *RateLimiter {
	if config.KeyFunc == nil {
		config.KeyFunc = func(c echo.Context) string {
			return c.RealIP()
		}
	}
	if config.MessageKey == "" {
		config.MessageKey = "errors.rate_limited"
	}

	rl := &RateLimiter{
		config: config,
		store:  make(map[string]*rateLimitEntry),
		now:    time.Now,
		stop:   make(chan struct{}),
	}
	go rl.cleanup()
	return rl
}

// Allow records one request for key and reports whether it fits the window.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	entry, ok := rl.store[key]
	if !ok || !now.Before(entry.expiresAt) {
		rl.store[key] = &rateLimitEntry{count: 1, expiresAt: now.Add(rl.config.Window)}
		return true
	}
	if entry.count >= rl.config.Requests {
		return false
	}
	entry.count++
	return true
}

// Middleware returns the rate limiting middleware
func (rl *RateLimiter) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl.Allow(rl.config.KeyFunc(c)) {
				return next(c)
			}

			msg := i18n.T(c.Request().Context(), rl.config.MessageKey)
			c.Response().Header().Set("Retry-After", rl.retryAfter())
			if c.Request().Header.Get("HX-Request") == "true" {
				// Swap into the toast region instead of the clicked control
				c.Response().Header().Set("HX-Retarget", "#toasts")
				c.Response().Header().Set("HX-Reswap", "beforeend")
				return c.HTML(http.StatusTooManyRequests,
					`<div class="toast toast-destructive" role="alert">`+html.EscapeString(msg)+`</div>`)
			}
			return echo.NewHTTPError(http.StatusTooManyRequests, msg)
		}
	}
}

func (rl *RateLimiter) retryAfter() string {
	return strconv.Itoa(max(int(rl.config.Window.Round(time.Second)/time.Second), 1))
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			rl.mu.Lock()
			now := rl.now()
			for key, entry := range rl.store {
				if !now.Before(entry.expiresAt) {
					delete(rl.store, key)
				}
			}
			rl.mu.Unlock()
		}
	}
}

// Stop ends the cleanup goroutine.
func (rl *RateLimiter) Stop() {
	rl.once.Do(func() { close(rl.stop) })
}

// NewMutationRateLimiter limits dashboard writes (submit, create, verify)
// to 30 per minute per IP.
func NewMutationRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Requests: 30, Window: time.Minute})
}

// NewUploadRateLimiter limits evidence uploads to 10 per minute per IP.
func NewUploadRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Requests: 10, Window: time.Minute})
}

// NewExportRateLimiter limits ledger exports to 5 per minute per IP.
func NewExportRateLimiter() *RateLimiter {
	return NewRateLimiter(RateLimitConfig{Requests: 5, Window: time.Minute})
}
