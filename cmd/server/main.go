package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"milestone_dashboard/config"
	"milestone_dashboard/handlers"
	"milestone_dashboard/logger"
	"milestone_dashboard/middleware"
	"milestone_dashboard/services"
	"milestone_dashboard/services/backend"
	"milestone_dashboard/services/dashboard"
	"milestone_dashboard/services/i18n"
	"milestone_dashboard/services/query"
)

func main() {
	// Load configuration
	cfg := config.Load()

	zl, err := logger.New(cfg.Environment, cfg.LogLevel)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}

	// run returns instead of exiting so its deferred cleanup always happens.
	err = run(cfg, zl)
	if err != nil {
		zl.Error("Server stopped", zap.Error(err))
	}
	_ = zl.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	counts, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("load translations: %w", err)
	}
	zl.Info("Translations loaded", zap.Any("keys", counts))

	middleware.InitAssetVersions("static", zl)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := backend.New(cfg.APIBaseURL,
		backend.WithTimeout(cfg.APITimeout),
		backend.WithLogger(zl.Named("backend")),
	)
	if err != nil {
		return fmt.Errorf("create backend client: %w", err)
	}

	cache := query.NewCache(newStore(ctx, cfg, zl),
		query.WithTTL(cfg.CacheTTL),
		query.WithLogger(zl.Named("query")),
	)
	defer cache.Close()

	inflight := dashboard.NewInFlight(func(ref dashboard.MilestoneRef, busy bool) {
		zl.Debug("Milestone write", zap.Stringer("milestone", ref), zap.Bool("busy", busy))
	})

	storage := services.NewStorage(ctx, cfg, zl)
	h := handlers.New(handlers.Deps{
		Contractor:       dashboard.NewContractor(client, cache, inflight, zl.Named("contractor")),
		Government:       dashboard.NewGovernment(client, cache, zl.Named("government")),
		Auditor:          dashboard.NewAuditor(client, cache, inflight, zl.Named("auditor")),
		Public:           dashboard.NewPublic(client, cache, zl.Named("public")),
		Evidence:         services.NewEvidenceService(storage, cfg.MaxUploadSize, zl.Named("evidence")),
		EvidenceFilesURL: cfg.UploadURLPrefix,
	})

	// Create Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HTTPErrorHandler = handlers.HTTPErrorHandler

	// Middleware
	e.Use(echomiddleware.Recover())
	e.Use(middleware.RequestLogger(zl))
	e.Use(echomiddleware.CORSWithConfig(echomiddleware.CORSConfig{
		AllowOrigins: cfg.AllowedOrigins,
	}))
	e.Use(middleware.CSPNonce())
	e.Use(middleware.Locale(cfg))
	e.Use(middleware.CSRF(cfg))

	// Static files
	e.Static("/static", "static")

	mutationLimiter := middleware.NewMutationRateLimiter()
	defer mutationLimiter.Stop()
	uploadLimiter := middleware.NewUploadRateLimiter()
	defer uploadLimiter.Stop()
	exportLimiter := middleware.NewExportRateLimiter()
	defer exportLimiter.Stop()

	handlers.RegisterRoutes(e, h, handlers.Limits{
		Mutation: mutationLimiter,
		Upload:   uploadLimiter,
		Export:   exportLimiter,
		// Room for a full batch plus multipart framing
		UploadBody: fmt.Sprintf("%dK", (cfg.MaxUploadSize*services.MaxEvidenceFiles)/1024+1024),
		FormBody:   handlers.DefaultFormBody,
	})

	// Start server
	serveErr := make(chan error, 1)
	go func() {
		zl.Info("Server starting",
			zap.String("port", cfg.ServerPort),
			zap.String("api", client.BaseURL()),
			zap.String("storage", storage.Name()),
		)
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("start server: %w", err)
	case <-ctx.Done():
	}
	zl.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("graceful shutdown: %w", err)
	}
	return nil
}

// newStore uses Redis when configured so cached snapshots survive restarts
// and are shared between replicas. An unreachable Redis falls back to memory.
func newStore(ctx context.Context, cfg *config.Config, zl *zap.Logger) query.Store {
	if cfg.RedisAddr == "" {
		zl.Info("Query cache: in-memory")
		return query.NewMemoryStore(time.Minute)
	}
	rs, err := query.NewRedisStore(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		zl.Warn("Redis unavailable, using in-memory query cache", zap.Error(err))
		return query.NewMemoryStore(time.Minute)
	}
	zl.Info("Query cache: redis", zap.String("addr", cfg.RedisAddr))
	return rs
}
