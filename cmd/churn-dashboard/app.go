package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/ramonehamilton/churn-dashboard/internal/analytics"
	"github.com/ramonehamilton/churn-dashboard/internal/api"
	"github.com/ramonehamilton/churn-dashboard/internal/api/handlers"
	"github.com/ramonehamilton/churn-dashboard/internal/config"
	"github.com/ramonehamilton/churn-dashboard/internal/events"
	"github.com/ramonehamilton/churn-dashboard/internal/metrics"
	"github.com/ramonehamilton/churn-dashboard/internal/scheduler"
	"github.com/ramonehamilton/churn-dashboard/internal/storage"
	"github.com/ramonehamilton/churn-dashboard/internal/views"
)

// app holds the wired dashboard components for one run.
type app struct {
	cfg        *config.Config
	configPath string
	logger     *slog.Logger

	client     *analytics.Client
	redis      *analytics.RedisCache
	db         *storage.DB
	snapshots  *storage.SnapshotStore
	dispatcher *events.EventDispatcher
	metrics    *metrics.DashboardMetrics
	dashboard  *views.Dashboard
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// newApp builds the backend client, snapshot storage and dashboard views.
// withStorage=false skips the snapshot database.
func newApp(ctx context.Context, cfg *config.Config, configPath string, withStorage bool) (*app, error) {
	a := &app{
		cfg:        cfg,
		configPath: configPath,
		logger:     newLogger(cfg.App.DebugMode),
		dispatcher: events.NewEventDispatcher(),
		metrics:    metrics.NewDashboardMetrics(),
	}
	slog.SetDefault(a.logger)
	a.dispatcher.Register(events.NewLoggingObserver(cfg.App.DebugMode))

	timeout, err := cfg.GetBackendTimeout()
	if err != nil {
		return nil, err
	}
	ttl, err := cfg.GetCacheTTL()
	if err != nil {
		return nil, err
	}

	var cache analytics.PayloadCache
	if cfg.Cache.Enabled {
		cache = a.openCache(ctx)
	}

	a.client = analytics.NewClient(analytics.ClientOptions{
		BaseURL:   cfg.Backend.BaseURL,
		RateLimit: rate.Limit(cfg.Backend.RateLimit),
		Timeout:   timeout,
		Cache:     cache,
		CacheTTL:  ttl,
	})

	deps := views.Deps{
		Backend: a.client,
		Keep:    cfg.Storage.Keep,
		Events:  a.dispatcher,
		Metrics: a.metrics,
		Charts:  views.NewChartSettings(cfg.Charts.Width, cfg.Charts.Height, cfg.Charts.Theme),
		Logger:  a.logger,
	}

	if withStorage {
		if err := a.openStorage(); err != nil {
			a.close()
			return nil, err
		}
		deps.Snapshots = a.snapshots
	}

	a.dashboard = views.NewDashboard(deps)
	return a, nil
}

func (a *app) openCache(ctx context.Context) analytics.PayloadCache {
	if a.cfg.Cache.RedisAddr == "" {
		return analytics.NewMemoryCache(a.cfg.Cache.MaxSize)
	}
	rc, err := analytics.NewRedisCache(ctx, a.cfg.Cache.RedisAddr)
	if err != nil {
		a.logger.Warn("Redis cache unavailable, using memory cache", "addr", a.cfg.Cache.RedisAddr, "error", err)
		return analytics.NewMemoryCache(a.cfg.Cache.MaxSize)
	}
	a.redis = rc
	return rc
}

func (a *app) openStorage() error {
	path, err := a.cfg.StoragePath()
	if err != nil {
		return fmt.Errorf("resolve snapshot database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create snapshot database directory: %w", err)
	}

	db, err := storage.Open(storage.DefaultConfig(path))
	if err != nil {
		return fmt.Errorf("open snapshot database: %w", err)
	}
	a.db = db
	a.snapshots = storage.NewSnapshotStore(db)
	a.logger.Debug("Snapshot database opened", "path", path)
	return nil
}

// serve runs the dashboard server until ctx is cancelled.
func (a *app) serve(ctx context.Context) error {
	if a.snapshots != nil && a.cfg.Storage.RestoreOnStart {
		n := a.dashboard.RestoreAll(ctx)
		a.logger.Info("Restored views from snapshots", "count", n)
	}

	timeout, _ := a.cfg.GetBackendTimeout()
	server := api.NewServer(&api.Config{
		Port:           a.cfg.Server.Port,
		OpenBrowser:    a.cfg.Server.OpenBrowser,
		RequestTimeout: timeout + 5*time.Second,
		AllowedOrigins: a.cfg.Server.AllowedOrigins,
	}, api.Services{
		Dashboard: a.dashboard,
		Snapshots: a.snapshotLister(),
		Metrics:   a.metrics,
		Client:    a.client,
	})
	a.dispatcher.Register(server.NewWebSocketObserver())

	if err := server.Start(); err != nil {
		return fmt.Errorf("start server: %w", err)
	}

	interval, _ := a.cfg.GetRefreshInterval()
	sched := scheduler.New(a.dashboard, scheduler.Config{
		Interval: interval,
		Views:    a.cfg.Refresh.Views,
		Timeout:  timeout,
	}, a.logger)
	if sched.Enabled() {
		if err := sched.Start(ctx); err != nil {
			a.logger.Warn("Refresh scheduler not started", "error", err)
		}
	}

	if a.configPath != "" {
		a.watchConfig(ctx)
	}

	<-ctx.Done()

	sched.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("[Server] Error during shutdown: %v", err)
	}
	return nil
}

// snapshotLister avoids handing the server a typed nil when storage is off.
func (a *app) snapshotLister() handlers.SnapshotLister {
	if a.snapshots == nil {
		return nil
	}
	return a.snapshots
}

func (a *app) watchConfig(ctx context.Context) {
	w, err := config.NewWatcher(a.configPath, a.logger, func(c *config.Config) {
		a.dashboard.ChartSettings().Set(c.Charts.Width, c.Charts.Height, c.Charts.Theme)
		a.dispatcher.Dispatch(events.NewTypedEvent(ctx, events.ConfigReloaded, events.ConfigReloadedEvent{
			Path:  a.configPath,
			Theme: c.Charts.Theme,
		}))
	})
	if err != nil {
		a.logger.Warn("Config hot reload disabled", "error", err)
		return
	}
	go func() {
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn("Config watcher stopped", "error", err)
		}
	}()
}

func (a *app) close() {
	if a.dashboard != nil {
		a.dashboard.Close()
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			log.Printf("Error closing snapshot database: %v", err)
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			log.Printf("Error closing redis cache: %v", err)
		}
	}
}
