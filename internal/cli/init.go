// Package cli provides the initialization shared by cmd/fintrack and
// cmd/recurring-worker.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"fintrack/internal/amqp"
	"fintrack/internal/categories"
	"fintrack/internal/config"
	"fintrack/internal/log"
	"fintrack/internal/services"
	"fintrack/internal/storage"
)

// SetupLogger builds the process logger at level and installs it as the
// slog default.
func SetupLogger(level string) *log.Logger {
	logger := log.New(log.Config{
		Level:     log.ParseLevel(level),
		Component: log.ComponentApp,
		Output:    os.Stdout,
	})
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration from the environment and validates it.
func LoadAndValidateConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenStore opens the backend named by cfg.DataBackend.
func OpenStore(cfg *config.Config, logger *log.Logger) (storage.Store, error) {
	switch cfg.DataBackend {
	case "memory":
		logger.Warn("Using in-memory store, state is lost on exit")
		return storage.NewMemoryStore(), nil
	case "sqlite":
		store, err := storage.NewSQLiteStore(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite store at %s: %w", cfg.SQLiteDBPath, err)
		}
		logger.Info("SQLite store opened", "path", cfg.SQLiteDBPath)
		return store, nil
	default:
		return nil, fmt.Errorf("unknown data backend %q", cfg.DataBackend)
	}
}

// App bundles what every command needs.
type App struct {
	Config  *config.Config
	Logger  *log.Logger
	Store   storage.Store
	Tracker *services.Tracker
	AMQP    *amqp.Client
}

// Close releases the broker connection and the store.
func (a *App) Close() {
	if a.AMQP != nil {
		if err := a.AMQP.Close(); err != nil {
			a.Logger.Warn("Closing AMQP client failed", log.FieldError, err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			a.Logger.Warn("Closing store failed", log.FieldError, err)
		}
	}
}

// Bootstrap loads .env and config, opens the store and starts a tracker.
// An unreachable broker only disables event publishing.
func Bootstrap(ctx context.Context) (*App, error) {
	LoadEnvFile()

	cfg, err := LoadAndValidateConfig()
	if err != nil {
		return nil, err
	}
	logger := SetupLogger(cfg.LogLevel)

	store, err := OpenStore(cfg, logger)
	if err != nil {
		return nil, err
	}
	app := &App{Config: cfg, Logger: logger, Store: store}

	opts := []services.Option{services.WithLogger(logger)}

	if cfg.CategoriesFile != "" {
		seed, err := categories.LoadSeed(cfg.CategoriesFile)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("load categories seed: %w", err)
		}
		opts = append(opts, services.WithSeedCategories(seed))
	}

	if cfg.AMQPURL != "" {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Warn("Failed to initialize AMQP client, continuing without events", log.FieldError, err)
		} else {
			app.AMQP = client
			opts = append(opts, services.WithListener(client))
			logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
		}
	}

	app.Tracker = services.NewTracker(store, opts...)
	if err := app.Tracker.Start(ctx); err != nil {
		app.Close()
		return nil, fmt.Errorf("start tracker: %w", err)
	}
	if app.Tracker.Diverged() {
		logger.Warn("Store write failed at startup, changes may not survive a restart")
	}
	return app, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
}
