package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/openlms/progression/internal/api"
	"github.com/openlms/progression/internal/catalog"
	"github.com/openlms/progression/internal/platform/cache"
	"github.com/openlms/progression/internal/platform/config"
	"github.com/openlms/progression/internal/platform/database"
	"github.com/openlms/progression/internal/progression"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	setupLogging(cfg.Log)
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	db, err := database.New(ctx, cfg.Database.URL, cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return fmt.Errorf("connecting to database: %w", err)
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}
	slog.Info("database ready")

	ready := map[string]func() error{
		"database": func() error {
			checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return db.HealthCheck(checkCtx)
		},
	}

	var cacheClient *cache.Cache
	if cfg.Cache.Enabled {
		cacheClient, err = cache.New(ctx, cfg.Cache.URL)
		if err != nil {
			// Cache is an accelerator, not a dependency.
			slog.Warn("cache unavailable, continuing without it", "error", err)
		} else {
			defer cacheClient.Close()
			ready["cache"] = func() error {
				checkCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				return cacheClient.HealthCheck(checkCtx)
			}
			slog.Info("cache ready")
		}
	}

	cat, err := buildCatalog(cfg.Catalog, db)
	if err != nil {
		return fmt.Errorf("building catalog: %w", err)
	}

	store, err := progression.NewPostgresStore(db.Pool)
	if err != nil {
		return fmt.Errorf("creating store: %w", err)
	}

	engine := progression.NewEngine(progression.EngineConfig{
		Catalog:     cat,
		Store:       store,
		Cache:       cacheClient,
		CacheTTL:    time.Duration(cfg.Engine.TranscriptCacheTTL) * time.Second,
		OverdueDays: cfg.Engine.OverdueDays,
	})

	handler := api.New(engine, ready)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      handler.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown error: %w", err)
	}
	return nil
}

// buildCatalog selects the curriculum source: the content-authoring tables
// or a directory of YAML program documents.
func buildCatalog(cfg config.CatalogConfig, db *database.DB) (catalog.Catalog, error) {
	switch cfg.Source {
	case "files":
		cat, err := catalog.Load(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("loading catalog files: %w", err)
		}
		slog.Info("catalog loaded from files", "path", cfg.Path)
		return cat, nil
	default:
		return catalog.NewPostgresCatalog(db.Pool)
	}
}

func setupLogging(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
