// Package application wires configuration into a running importer: the
// content store, the media library, the batch service and its observers.
// Both the HTTP server and the CLI start from New.
package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JonMunkholm/ResourceImporter/internal/config"
	"github.com/JonMunkholm/ResourceImporter/internal/core"
	"github.com/JonMunkholm/ResourceImporter/internal/media"
	"github.com/JonMunkholm/ResourceImporter/internal/metrics"
	"github.com/JonMunkholm/ResourceImporter/internal/store/memory"
	"github.com/JonMunkholm/ResourceImporter/internal/store/postgres"
)

var (
	// ErrHistoryUnsupported is returned when the store keeps no run history.
	ErrHistoryUnsupported = errors.New("run history is not available for this store")

	// ErrPurgeUnsupported is returned when the store cannot delete a run.
	ErrPurgeUnsupported = errors.New("purge requires the postgres store")
)

// Options adjust how New wires the store.
type Options struct {
	// DryRun routes every write to an in-memory store, whatever the driver.
	DryRun bool

	// Source and AttachmentsDir override the configured values when set.
	Source         string
	AttachmentsDir string
}

// App holds the wired collaborators.
type App struct {
	Config  *config.Config
	Service *core.Service
	Store   core.ContentStore
	Metrics *metrics.Collector

	pool     *pgxpool.Pool
	postgres *postgres.Store
}

// New builds the store, media library and service described by cfg.
func New(ctx context.Context, cfg *config.Config, opts Options) (*App, error) {
	app := &App{Config: cfg}

	collector, err := metrics.NewCollector()
	if err != nil {
		return nil, fmt.Errorf("create metrics: %w", err)
	}
	app.Metrics = collector

	driver := cfg.Store.Driver
	if opts.DryRun {
		driver = config.DriverMemory
	}

	switch driver {
	case config.DriverMemory:
		app.Store = memory.New()
	case config.DriverPostgres:
		if err := app.openPostgres(ctx, cfg); err != nil {
			app.Close()
			return nil, err
		}
		app.Store = app.postgres
	default:
		return nil, fmt.Errorf("unknown store driver %q", driver)
	}

	source := cfg.Import.Source
	if opts.Source != "" {
		source = opts.Source
	}
	attachments := cfg.Import.AttachmentsDir
	if opts.AttachmentsDir != "" {
		attachments = opts.AttachmentsDir
	}

	app.Service = core.NewService(app.Store, core.ServiceConfig{
		Source:         source,
		AttachmentsDir: attachments,
		MaxFileSize:    cfg.Import.MaxFileSize,
	})
	app.Service.AddObserver(collector)

	slog.Info("importer ready",
		"store", driver,
		"source", source,
		"attachments", attachments,
	)
	return app, nil
}

func (a *App) openPostgres(ctx context.Context, cfg *config.Config) error {
	// Parse and configure connection pool
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("parse database URL: %w", err)
	}

	// Apply pool configuration from config
	poolConfig.MaxConns = int32(cfg.Database.MaxConns)
	poolConfig.MinConns = int32(cfg.Database.MinConns)
	poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
	poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	a.pool = pool

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping database: %w", err)
	}

	// Log which database we connected to
	if u, err := url.Parse(cfg.Database.URL); err == nil {
		slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
	} else {
		slog.Info("connected to database")
	}

	lib, err := openMedia(ctx, cfg.Media)
	if err != nil {
		return err
	}

	a.postgres = postgres.New(pool, lib)
	if cfg.Store.Migrate {
		if err := a.postgres.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// openMedia builds the media library sideloaded attachments are copied to.
func openMedia(ctx context.Context, cfg config.MediaConfig) (media.Storage, error) {
	switch cfg.Backend {
	case config.MediaS3:
		lib, err := media.NewS3Storage(ctx, media.S3Config{
			Bucket:          cfg.S3Bucket,
			Region:          cfg.S3Region,
			Prefix:          cfg.S3Prefix,
			Endpoint:        cfg.S3Endpoint,
			BaseURL:         cfg.BaseURL,
			UsePathStyle:    cfg.S3UsePathStyle,
			AccessKeyID:     cfg.S3AccessKeyID,
			SecretAccessKey: cfg.S3SecretAccessKey,
		})
		if err != nil {
			return nil, fmt.Errorf("open s3 media library: %w", err)
		}
		return lib, nil
	case config.MediaLocal, "":
		lib, err := media.NewLocalStorage(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("open media library: %w", err)
		}
		return lib, nil
	default:
		return nil, fmt.Errorf("unknown media backend %q", cfg.Backend)
	}
}

// Ping checks the store connection. Stores without one are always healthy.
func (a *App) Ping(ctx context.Context) error {
	if a.postgres == nil {
		return nil
	}
	return a.postgres.Ping(ctx)
}

// ListRuns returns recent runs, newest first.
func (a *App) ListRuns(ctx context.Context, limit int) ([]core.RunSummary, error) {
	lister, ok := a.Store.(interface {
		ListRuns(ctx context.Context, limit int) ([]core.RunSummary, error)
	})
	if !ok {
		return nil, ErrHistoryUnsupported
	}
	return lister.ListRuns(ctx, limit)
}

// Purge deletes every record a run created.
func (a *App) Purge(ctx context.Context, runID string) (postgres.PurgeResult, error) {
	if a.postgres == nil {
		return postgres.PurgeResult{RunID: runID}, ErrPurgeUnsupported
	}
	return a.postgres.DeleteRun(ctx, runID)
}

// Close releases the database pool.
func (a *App) Close() {
	if a.pool != nil {
		a.pool.Close()
	}
}
