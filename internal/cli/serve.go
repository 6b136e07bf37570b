package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	apphttp "fintrack/internal/http"
	"fintrack/internal/log"
	"fintrack/internal/services"
)

const shutdownTimeout = 30 * time.Second

func (r *runner) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the JSON API and the recurrence scheduler",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			app, err := r.open(ctx)
			if err != nil {
				return err
			}
			defer app.Close()
			return Serve(ctx, app)
		},
	}
}

// Serve runs the HTTP server and the scheduler until ctx ends or either
// fails, then shuts both down.
func Serve(ctx context.Context, app *App) error {
	cfg := app.Config
	logger := app.Logger

	srv := apphttp.NewServer(apphttp.Config{
		Addr:            ":" + cfg.Port,
		MetricsEnabled:  cfg.MetricsEnabled,
		SearchCacheSize: cfg.SearchCacheSize,
		SearchCacheTTL:  cfg.SearchCacheTTL,

		RequestsPerMinute: cfg.RateLimitPerMinute,
	}, app.Tracker, logger)
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	scheduler := services.NewScheduler(app.Tracker, services.SchedulerConfig{Interval: cfg.RecurringInterval})

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting fintrack server", "port", cfg.Port, "backend", cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		if err := scheduler.Start(gctx); err != nil {
			return err
		}
		<-gctx.Done()
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", log.FieldOperation, log.OpShutdown)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		var errs []error
		if err := scheduler.Stop(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		if err := srv.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, err)
		}
		return errors.Join(errs...)
	})

	err := g.Wait()
	if err == nil {
		logger.Info("Server stopped gracefully")
	}
	return err
}
