// -----------------------------------------------------------------------
// App - Application wiring and lifecycle
// -----------------------------------------------------------------------

package app

import (
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/scribe/internal/common"
	"github.com/ternarybob/scribe/internal/handlers"
	"github.com/ternarybob/scribe/internal/services/ingest"
	"github.com/ternarybob/scribe/internal/services/jobs"
	"github.com/ternarybob/scribe/internal/services/runtime"
	"github.com/ternarybob/scribe/internal/services/scheduler"
	"github.com/ternarybob/scribe/internal/services/templates"
	"github.com/ternarybob/scribe/internal/services/transform"
	"github.com/ternarybob/scribe/internal/storage/badger"
)

// App holds all application components and dependencies
type App struct {
	Config  *common.Config
	Logger  arbor.ILogger
	Storage *badger.Manager

	// Runtime state (watchdog timers, event bus, log buffers)
	Registry *runtime.Registry

	// Job orchestration
	JobService *jobs.Service
	Scheduler  *scheduler.Service

	// HTTP handlers
	APIHandler      *handlers.APIHandler
	JobHandler      *handlers.JobHandler
	CallbackHandler *handlers.CallbackHandler
	StreamHandler   *handlers.StreamHandler
	WSHandler       *handlers.WebSocketHandler
}

// New initializes the application with all dependencies
func New(cfg *common.Config, logger arbor.ILogger) (*App, error) {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	storage, err := badger.NewManager(logger, &cfg.Storage.Badger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	app.Storage = storage

	logger.Debug().
		Str("storage", "badger").
		Str("path", cfg.Storage.Badger.Path).
		Msg("Storage layer initialized")

	// The registry's watchdog callback routes into the job service, which in
	// turn needs the registry. Bridge the cycle with a late-bound closure.
	var jobService *jobs.Service
	app.Registry = runtime.NewRegistry(logger, func(jobID string, timeout time.Duration) {
		if jobService != nil {
			jobService.OnWatchdogTimeout(jobID, timeout)
		}
	})

	libraries, err := jobs.BuildLibraries(cfg, storage.ShadowTwins(), logger)
	if err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to initialize libraries: %w", err)
	}
	if len(libraries) == 0 {
		logger.Warn().Msg("No libraries configured, jobs cannot be enqueued")
	}

	jobService = jobs.NewService(
		cfg,
		storage.Jobs(),
		app.Registry,
		libraries,
		templates.NewPicker(cfg.Templates, logger),
		transform.NewClient(cfg.Worker, logger),
		ingest.NewTrigger(cfg.Worker, cfg.Ingest, logger),
		logger,
	)
	app.JobService = jobService

	app.Scheduler = scheduler.NewService(cfg.Scheduler, cfg.Watchdog.Timeout, storage.Jobs(), app.Registry, logger)

	app.APIHandler = handlers.NewAPIHandler()
	app.JobHandler = handlers.NewJobHandler(jobService, logger)
	app.CallbackHandler = handlers.NewCallbackHandler(jobService, logger)
	app.StreamHandler = handlers.NewStreamHandler(app.Registry.EventBus(), logger)
	app.WSHandler = handlers.NewWebSocketHandler(app.Registry.EventBus(), logger)

	if err := app.Scheduler.Start(); err != nil {
		storage.Close()
		return nil, fmt.Errorf("failed to start scheduler: %w", err)
	}

	logger.Info().
		Int("libraries", len(libraries)).
		Str("worker_url", cfg.Worker.BaseURL).
		Dur("watchdog_timeout", cfg.Watchdog.Timeout).
		Msg("Application initialization complete")

	return app, nil
}

// Shutdown stops background work and closes storage
func (a *App) Shutdown() error {
	a.Logger.Info().Msg("Shutting down application...")

	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.Registry != nil {
		a.Registry.Shutdown()
	}
	if a.Storage != nil {
		if err := a.Storage.Close(); err != nil {
			return fmt.Errorf("failed to close storage: %w", err)
		}
	}

	a.Logger.Info().Msg("Application shutdown complete")
	return nil
}
