package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"hisobchi/internal/cli"
	apphttp "hisobchi/internal/http"
	applog "hisobchi/internal/log"
	"hisobchi/internal/services"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentApp)
	cfg := cli.LoadAndValidateConfig(logger)

	repo := cli.InitRepository(logger, cfg.SQLiteDBPath)
	defer repo.Close()

	notifier, closeNotifier := cli.InitNotifier(logger, cfg)
	defer closeNotifier()

	rules := services.Rules{
		Currencies:        cfg.Currencies,
		IncomeCategories:  cfg.IncomeCategories,
		ExpenseCategories: cfg.ExpenseCategories,
	}

	srv := apphttp.NewServer(":"+cfg.Port,
		services.NewUsers(repo),
		services.NewFamilies(repo),
		services.NewBudgets(repo),
		services.NewLedger(repo, notifier, rules),
	)

	// Graceful shutdown handling
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cancel()
	}()

	logger.Info("Starting hisobchi server", "port", cfg.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	<-ctx.Done()
	logger.Info("Server stopped gracefully")
}
