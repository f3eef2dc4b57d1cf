package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/courseloop/runtimegw/internal/runtime/http"
	"github.com/courseloop/runtimegw/internal/runtime/service"
	"github.com/courseloop/runtimegw/internal/runtime/store"
	"github.com/courseloop/runtimegw/internal/runtime/store/drivers/sqlite"
	"github.com/courseloop/runtimegw/pkg/presign"
	"github.com/courseloop/runtimegw/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the runtime gateway with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	keys *RuntimeKeys

	guard               *service.Guard
	launchService       *service.LaunchService
	exchangeService     *service.ExchangeService
	telemetryService    *service.TelemetryService
	checkpointService   *service.CheckpointService
	assetService        *service.AssetService
	housekeepingService *service.HousekeepingService

	server *http.Server
	router *httpapi.Router
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "runtime-gateway",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	keys, err := InitRuntimeKeys(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize signing keys: %w", err)
	}
	app.keys = keys

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("runtime gateway starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"runtime_v2_enabled", app.cfg.FeatureEnabled,
	)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down runtime gateway...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("runtime gateway stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	callbackURL := app.cfg.CallbackURL
	if callbackURL == "" {
		callbackURL = fmt.Sprintf("http://localhost:%d/v1/runtime/exchange", app.cfg.Port)
	}

	app.guard = &service.Guard{
		Verifier:       app.keys.Verifier,
		AllowedOrigins: app.cfg.AllowedOrigins,
	}

	app.launchService = &service.LaunchService{
		Store:       app.db,
		Signer:      app.keys.LaunchSigner,
		Issuer:      app.cfg.Issuer,
		CallbackURL: callbackURL,
		TokenTTL:    app.cfg.LaunchTokenTTL,
	}

	app.exchangeService = &service.ExchangeService{
		Store:          app.db,
		Signer:         app.keys.RuntimeSigner,
		Verifier:       app.keys.Verifier,
		Issuer:         app.cfg.Issuer,
		AllowedOrigins: app.cfg.AllowedOrigins,
		TokenTTL:       app.cfg.RuntimeTokenTTL,
	}

	app.telemetryService = &service.TelemetryService{Store: app.db}

	app.checkpointService = &service.CheckpointService{
		Store:    app.db,
		MaxBytes: app.cfg.CheckpointMaxBytes,
	}

	app.assetService = &service.AssetService{
		Signer: &presign.Signer{
			BaseURL: app.cfg.AssetBaseURL,
			Secret:  []byte(app.cfg.AssetSecret),
		},
		AllowedTypes: app.cfg.AssetContentTypes,
		URLTTL:       app.cfg.AssetURLTTL,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.cfg.HousekeepingInterval,
		app.cfg.EventRetention,
	)
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.keys.KeySet,
		app.cfg.AllowedOrigins,
		app.cfg.FeatureEnabled,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.Guard = app.guard
	router.SessionVerifier = app.keys.SessionVerifier
	router.LaunchService = app.launchService
	router.ExchangeService = app.exchangeService
	router.Telemetry = app.telemetryService
	router.Checkpoints = app.checkpointService
	router.Assets = app.assetService
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
