// Package main provides the entry point for the video pipeline service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/reelforge/reelforge/internal/bootstrap"
	"github.com/reelforge/reelforge/internal/config"
	"github.com/reelforge/reelforge/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration from environment
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Create structured logger
	logger := cfg.NewLogger()
	slog.SetDefault(logger)

	logger.Info("starting reelforge",
		slog.Int("port", cfg.Port),
		slog.String("database_path", cfg.DatabasePath),
		slog.String("temp_dir", cfg.TempDir),
		slog.Int("run_interval_sec", cfg.RunIntervalSec),
		slog.Bool("s3_enabled", cfg.S3Enabled()),
		slog.String("log_format", cfg.LogFormat),
		slog.String("log_level", cfg.LogLevel),
	)

	// Initialize dependencies using bootstrap
	deps, err := bootstrap.NewDependencies(cfg, logger)
	if err != nil {
		return fmt.Errorf("initialize dependencies: %w", err)
	}
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Error("closing dependencies failed", slog.String("error", err.Error()))
		}
	}()

	// A crash mid-stage leaves jobs stamped processing; requeue them before
	// accepting any work.
	reset, err := deps.Store.ResetStalled(context.Background())
	if err != nil {
		return fmt.Errorf("reset stalled jobs: %w", err)
	}
	if reset > 0 {
		logger.Info("stalled jobs requeued", slog.Int("count", reset))
	}

	// Initialize HTTP handlers and router
	handlers := server.NewHandlers(deps.Store, deps.Orchestrator, logger)
	router := server.NewRouter(handlers, logger)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second, // A synchronous /run can take minutes
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown handling
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, os.Interrupt, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening",
			slog.String("addr", srv.Addr),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("server failed: %w", err)
		}
	}()

	// Interval scheduler: fire one pipeline run per tick. Disabled when the
	// interval is zero; /run remains available either way.
	schedulerCtx, stopScheduler := context.WithCancel(context.Background())
	defer stopScheduler()
	if cfg.RunIntervalSec > 0 {
		go runScheduler(schedulerCtx, deps, time.Duration(cfg.RunIntervalSec)*time.Second, logger)
	}

	// Wait for shutdown signal or error
	select {
	case sig := <-shutdownCh:
		logger.Info("received shutdown signal",
			slog.String("signal", sig.String()),
		)
	case err := <-errCh:
		return err
	}

	stopScheduler()

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger.Info("shutting down server...")
	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("server stopped gracefully")
	return nil
}

// runScheduler triggers one pipeline invocation per tick until ctx is
// cancelled. Run errors are logged and the ticker keeps going; a transient
// infrastructure failure must not stop the schedule.
func runScheduler(ctx context.Context, deps *bootstrap.Dependencies, interval time.Duration, logger *slog.Logger) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("scheduler started", slog.Duration("interval", interval))
	for {
		select {
		case <-ctx.Done():
			logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			outcome, err := deps.Orchestrator.RunOnce(ctx)
			if err != nil {
				logger.Error("scheduled pipeline run failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if outcome.Processed {
				logger.Info("scheduled pipeline run finished",
					slog.String("job_id", outcome.JobID),
					slog.Int("stage", int(outcome.Stage)),
					slog.Bool("failed", outcome.Failed),
				)
			}
		}
	}
}
