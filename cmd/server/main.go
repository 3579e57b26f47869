/*
main.go - Application entry point

PURPOSE:
  Initializes and starts the payroll engine server.
  Handles configuration, dependency injection, and graceful shutdown.

STARTUP SEQUENCE:
  1. Load configuration (.env, environment, command-line flags)
  2. Configure structured logging (slog JSON, ECS field names)
  3. Initialize SQLite store
  4. Create API handler with orchestrator and batch driver
  5. Start the closing scheduler (if enabled)
  6. Start server with graceful shutdown

COMMAND-LINE FLAGS:
  -port    HTTP server port (overrides APP_PORT)
  -db      SQLite database path (overrides DB_PATH)
           Use ":memory:" for in-memory database
  -scenario Load a demo scenario into the database on startup

GRACEFUL SHUTDOWN:
  On SIGINT/SIGTERM:
  1. Stop the closing scheduler
  2. Stop accepting new connections
  3. Wait for active requests to complete (30s timeout)
  4. Close database connection
  5. Exit

EXAMPLES:
  # Run with file database
  ./server -db="./data/payroll.db"

  # Run in memory with demo data for last month
  ./server -db=":memory:" -scenario=standard-month

ENVIRONMENT:
  APP_PORT, APP_ENV, LOG_LEVEL, DB_PATH, PAYROLL_WORKERS,
  PAYROLL_CLOSE_DAY, PAYROLL_CLOSING_ENABLED, PAYROLL_CLOSING_INTERVAL.
  See config/config.go for defaults.

SEE ALSO:
  - api/server.go: Router configuration
  - api/handlers.go: HTTP handlers
  - store/sqlite/sqlite.go: Database implementation
*/
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/httplog/v3"
	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/generic"
	"github.com/warp/payroll-engine/store/sqlite"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// Flags
	port := flag.Int("port", cfg.App.Port, "HTTP server port")
	dbPath := flag.String("db", cfg.DB.Path, "SQLite database path")
	scenario := flag.String("scenario", "", "demo scenario to load on startup")
	flag.Parse()

	level, _ := config.ParseLevel(cfg.App.LogLevel)
	logFormat := httplog.SchemaECS.Concise(cfg.IsDevelopment())
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:       level,
		ReplaceAttr: logFormat.ReplaceAttr,
	})).With(
		slog.String("app", "payroll-engine"),
		slog.String("env", cfg.App.Env),
	)
	slog.SetDefault(logger)

	// Initialize store
	store, err := sqlite.New(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer store.Close()

	if *scenario != "" {
		month := generic.MonthOf(generic.Today()).Previous()
		if err := api.LoadScenario(context.Background(), store, *scenario, month); err != nil {
			return fmt.Errorf("failed to load scenario: %w", err)
		}
		logger.Info("scenario loaded", "scenario", *scenario, "month", month.String())
	}

	// Initialize handler
	handler := api.NewHandler(store, cfg.Payroll.Workers, logger)
	handler.ScenariosEnabled = cfg.IsDevelopment()

	// Closing scheduler
	scheduler := api.NewClosingScheduler(handler.Orchestrator, logger)
	scheduler.CheckInterval = cfg.Payroll.ClosingInterval
	scheduler.CloseDay = cfg.Payroll.CloseDay
	scheduler.Enabled = cfg.Payroll.ClosingEnabled
	scheduler.Start()
	defer scheduler.Stop()

	// Create server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      api.NewRouter(handler, logger),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", server.Addr, "db", *dbPath)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	case <-quit:
	}

	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	logger.Info("server stopped")
	return nil
}
