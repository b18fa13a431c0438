package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	cfg "github.com/jarabaplatform/tenant-exporter/config"
	"github.com/jarabaplatform/tenant-exporter/internal/archive"
	"github.com/jarabaplatform/tenant-exporter/internal/audit"
	"github.com/jarabaplatform/tenant-exporter/internal/errors"
	"github.com/jarabaplatform/tenant-exporter/internal/filestore"
	"github.com/jarabaplatform/tenant-exporter/internal/queue"
	"github.com/jarabaplatform/tenant-exporter/internal/ratelimit"
	"github.com/jarabaplatform/tenant-exporter/internal/registry"
	"github.com/jarabaplatform/tenant-exporter/internal/store"
	"github.com/jarabaplatform/tenant-exporter/internal/store/postgres"
)

type App struct {
	Config   *cfg.AppConfig
	Store    store.Store
	Queue    queue.Queue
	Limiter  ratelimit.Limiter
	Files    filestore.Store
	Registry *registry.Registry
	Archive  *archive.Builder
	Audit    audit.Sink

	exitCh     chan error
	shutdown   func(ctx context.Context) error
	httpServer *http.Server
	cancelBg   context.CancelFunc
}

// New creates a fully initialized App.
func New(config *cfg.AppConfig, shutdown func(ctx context.Context) error) (*App, error) {
	app := &App{
		Config:   config,
		shutdown: shutdown,
		exitCh:   make(chan error),
		Audit:    audit.SlogSink{},
	}

	if err := app.initStore(); err != nil {
		return nil, err
	}
	if err := app.initQueue(); err != nil {
		return nil, err
	}
	if err := app.initLimiter(); err != nil {
		return nil, err
	}
	if err := app.initFileStore(); err != nil {
		return nil, err
	}

	app.Registry = BuildSectionRegistry(app.Store, config.Export.VerticalEnabled)
	app.Archive = archive.NewBuilder(app.Files)

	return app, nil
}

// --------- Private init methods ---------

func (app *App) initStore() error {
	if app.Config.Database == nil {
		return errors.New("database config is nil")
	}
	app.Store = postgres.New(app.Config.Database)
	return nil
}

func (app *App) initQueue() error {
	q, err := queue.NewRedisQueue(
		app.Config.Redis.Addr,
		app.Config.Redis.Password,
		app.Config.Redis.DB,
		app.Config.Export.QueueName,
	)
	if err != nil {
		return errors.New("unable to initialize job queue", errors.WithCause(err))
	}
	app.Queue = q
	return nil
}

func (app *App) initLimiter() error {
	limiter, err := ratelimit.NewRedisLimiter(
		app.Config.Redis.Addr,
		app.Config.Redis.Password,
		app.Config.Redis.DB,
		app.Config.Export.RateLimitPerDay,
		24*time.Hour,
	)
	if err != nil {
		return errors.New("unable to initialize rate limiter", errors.WithCause(err))
	}
	app.Limiter = limiter
	return nil
}

func (app *App) initFileStore() error {
	switch app.Config.Storage.Backend {
	case "s3":
		fs, err := filestore.NewS3Store(app.Config.Storage.S3)
		if err != nil {
			return errors.New("unable to initialize S3 storage", errors.WithCause(err))
		}
		app.Files = fs
	default:
		fs, err := filestore.NewDiskStore(app.Config.Storage.Dir)
		if err != nil {
			return errors.New("unable to initialize disk storage", errors.WithCause(err))
		}
		app.Files = fs
	}
	return nil
}

// Start runs the store, HTTP server and background loops, then blocks until
// a fatal error or Stop.
func (app *App) Start(handler http.Handler) error {
	if err := app.Store.Open(); err != nil {
		return errors.New("failed to open store", errors.WithCause(err))
	}

	bgCtx, cancel := context.WithCancel(context.Background())
	app.cancelBg = cancel

	app.StartExportWorkers(bgCtx)
	app.StartRetentionSweeper(bgCtx)

	app.httpServer = &http.Server{
		Addr:    app.Config.Service.BindAddr,
		Handler: handler,
	}
	go func() {
		slog.Info("tenant_exporter.server.listening", slog.String("addr", app.Config.Service.BindAddr))
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			app.exitCh <- err
		}
	}()

	return <-app.exitCh
}

// Stop gracefully shuts down all services.
func (app *App) Stop() error {
	slog.Info("tenant_exporter.main.stop_starting")

	if app.cancelBg != nil {
		app.cancelBg()
	}

	if app.httpServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := app.httpServer.Shutdown(ctx); err != nil {
			slog.Error("http server shutdown error", "err", err)
		} else {
			slog.Info("http server stopped")
		}
		cancel()
	}

	if app.Store != nil {
		if err := app.Store.Close(); err != nil {
			slog.Error("store close error", "err", err)
		} else {
			slog.Info("store closed")
		}
	}

	if closer, ok := app.Queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Error("queue close error", "err", err)
		}
	}
	if closer, ok := app.Limiter.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			slog.Error("limiter close error", "err", err)
		}
	}

	if app.shutdown != nil {
		if err := app.shutdown(context.Background()); err != nil {
			slog.Error("shutdown hook error", "err", err)
		} else {
			slog.Info("shutdown hook executed")
		}
	}

	slog.Info("tenant_exporter.main.stop_complete")
	return nil
}

// Exit pushes a fatal error to the run loop.
func (app *App) Exit(err error) {
	app.exitCh <- fmt.Errorf("fatal: %w", err)
}
