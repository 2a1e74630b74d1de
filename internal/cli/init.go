// Package cli provides common initialization shared by cmd/hisobchi and
// cmd/hisobchi-notifier.
package cli

import (
	"os"

	"github.com/joho/godotenv"
	"hisobchi/internal/config"
	applog "hisobchi/internal/log"
	"hisobchi/internal/notify"
	"hisobchi/internal/notify/memory"
	"hisobchi/internal/notify/rabbit"
	"hisobchi/internal/storage"
)

// SetupLogger initializes structured logging with default settings.
// Returns the configured logger and sets it as the process default.
func SetupLogger(component string) *applog.Logger {
	logger := applog.New(applog.DefaultConfig()).WithComponent(component)
	applog.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *applog.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// InitRepository opens the SQLite store and runs migrations.
// Returns the repository or exits the process on failure.
func InitRepository(logger *applog.Logger, dbPath string) *storage.Repository {
	repo, err := storage.NewRepository(dbPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", dbPath)
		os.Exit(1)
	}
	return repo
}

// InitNotifier selects the notification backend from configuration: AMQP when
// a broker URL is present, an in-process recorder otherwise. The returned
// cleanup is a no-op for the memory backend.
func InitNotifier(logger *applog.Logger, cfg *config.Config) (notify.Notifier, func()) {
	if cfg.AMQPURL == "" {
		logger.Info("Initialized memory notification backend")
		return memory.New(), func() {}
	}

	client, err := rabbit.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	logger.Info("Initialized AMQP notification backend", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	return client, func() {
		if err := client.Close(); err != nil {
			logger.Error("AMQP client close error", "error", err)
		}
	}
}
