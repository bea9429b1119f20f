// outreachd - Outreach Automation Server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/prospectly/outreachd/internal/api"
	"github.com/prospectly/outreachd/internal/config"
	"github.com/prospectly/outreachd/internal/driver"
	"github.com/prospectly/outreachd/internal/driver/linkedin"
	"github.com/prospectly/outreachd/internal/events"
	"github.com/prospectly/outreachd/internal/middleware"
	"github.com/prospectly/outreachd/internal/policy"
	"github.com/prospectly/outreachd/internal/scraper"
	"github.com/prospectly/outreachd/internal/sequencer"
	"github.com/prospectly/outreachd/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "driver", cfg.Driver.Mode, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected", "path", cfg.DBPath)

	// A crash while a session was running leaves it in a state no
	// worker owns; park it so the operator can resume.
	recovered, err := repo.RecoverInterruptedSessions(context.Background())
	if err != nil {
		slog.Error("Failed to recover interrupted sessions", "error", err)
		os.Exit(1)
	}
	if recovered > 0 {
		slog.Info("Recovered interrupted sessions", "count", recovered)
	}

	drv, cleanup, err := buildDriver(cfg)
	if err != nil {
		slog.Error("Failed to initialize platform driver", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	quotas := policy.Quotas{
		Messages:    cfg.Limits.MaxMessagesPerDay,
		Connections: cfg.Limits.MaxConnectionsPerDay,
		Prospects:   cfg.Limits.MaxProspectsPerDay,
	}
	window := policy.Window{
		StartHour: cfg.Window.StartHour,
		EndHour:   cfg.Window.EndHour,
		Location:  cfg.Location(),
	}

	// Initialize services.
	hub := events.NewHub()
	runner := scraper.NewRunner(repo, drv, hub, scraper.Options{
		Quotas:        quotas,
		Window:        window,
		DriverTimeout: cfg.Scheduler.DriverTimeout,
		MaxRetries:    cfg.Scheduler.MaxRetries,
		MinDelay:      cfg.Scheduler.MinDelay,
		MaxDelay:      cfg.Scheduler.MaxDelay,
	})
	seq := sequencer.New(repo, drv, hub, sequencer.Options{
		Quotas:        quotas,
		Window:        window,
		PassInterval:  cfg.Scheduler.PassInterval,
		DriverTimeout: cfg.Scheduler.DriverTimeout,
		MaxAttempts:   cfg.Scheduler.MaxRetries,
		MinDelay:      cfg.Scheduler.MinDelay,
		MaxDelay:      cfg.Scheduler.MaxDelay,
	})

	// Initialize handlers.
	baseHandler := api.NewHandler(repo)
	sessionHandler := api.NewSessionHandler(baseHandler, runner)
	sequenceHandler := api.NewSequenceHandler(baseHandler)
	wsHandler := events.NewWebSocketHandler(hub, cfg.FrontendURL, cfg.IsDevelopment())

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS(corsOrigins(cfg)))

	r.Get("/healthz", baseHandler.Health)
	r.Get("/api/meta/statuses", baseHandler.StatusCatalog)
	sessionHandler.RegisterRoutes(r)
	sequenceHandler.RegisterRoutes(r)

	// WebSocket endpoint.
	r.Get("/ws/events", wsHandler.ServeHTTP)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // WebSocket streams stay open indefinitely.
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Start the sequence scheduler.
	seq.Start(ctx)
	slog.Info("Sequence scheduler started", "pass_interval", cfg.Scheduler.PassInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}
	seq.Shutdown(shutdownCtx)
	runner.Shutdown(shutdownCtx)

	slog.Info("Server stopped successfully")
}

// buildDriver selects the platform driver from configuration. The
// simulator needs no browser and is the default for development.
func buildDriver(cfg *config.Config) (driver.Driver, func(), error) {
	if cfg.Driver.Mode == "browser" {
		d, err := linkedin.New(linkedin.Options{
			ControlURL:  cfg.Driver.ControlURL,
			Headless:    cfg.Driver.Headless,
			PageTimeout: cfg.Scheduler.DriverTimeout,
		})
		if err != nil {
			return nil, nil, err
		}
		return d, func() {
			if err := d.Close(); err != nil {
				slog.Error("Failed to close browser driver", "error", err)
			}
		}, nil
	}
	return driver.NewSimulator(10, 5), func() {}, nil
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.FrontendURL == "" {
		return []string{"*"}
	}
	return []string{cfg.FrontendURL}
}

func logLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
