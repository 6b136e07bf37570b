package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"fintrack/internal/cli"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

func main() {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	app, err := cli.Bootstrap(ctx)
	if err != nil {
		slog.Error("Failed to start recurring-worker", "error", err)
		os.Exit(1)
	}
	defer app.Close()

	logger := app.Logger.WithComponent(log.ComponentWorker)
	interval := app.Config.RecurringInterval
	logger.Info("Starting recurring-worker",
		"interval", interval,
		"backend", app.Config.DataBackend,
		"sqlite_db", app.Config.SQLiteDBPath)

	scheduler := services.NewScheduler(app.Tracker, services.SchedulerConfig{Interval: interval})

	// Start already materialized everything due; this catches a day
	// boundary crossed while the store was being opened.
	logger.Info("Running initial refresh", "materialized", scheduler.RunOnce(ctx))

	if err := scheduler.Start(ctx); err != nil {
		logger.Error("Failed to start scheduler", log.FieldError, err)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Shutdown signal received, stopping recurring-worker")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := scheduler.Stop(shutdownCtx); err != nil {
		logger.Warn("Scheduler did not stop cleanly", log.FieldError, err)
	}
	logger.Info("Recurring-worker shutdown complete")
}
