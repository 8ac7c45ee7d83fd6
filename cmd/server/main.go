package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/JonMunkholm/fairprice/internal/config"
	"github.com/JonMunkholm/fairprice/internal/core"
	"github.com/JonMunkholm/fairprice/internal/logging"
	"github.com/JonMunkholm/fairprice/internal/summary"
	"github.com/JonMunkholm/fairprice/internal/web"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"max_concurrent", cfg.Limits.MaxConcurrent,
		"max_file_size", cfg.Limits.MaxFileSize,
		"max_rows", cfg.Explore.MaxRows,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)
	slog.Debug("effective configuration", "config", cfg.String())

	opts, err := core.OptionsFromConfig(cfg.Explore)
	if err != nil {
		slog.Error("failed to load repair dictionary", "error", err, "path", cfg.Explore.DictionaryPath)
		os.Exit(1)
	}
	if cfg.Explore.DictionaryPath != "" {
		slog.Info("repair dictionary loaded", "path", cfg.Explore.DictionaryPath)
	}

	explorer := core.NewExplorer(opts)
	store := summary.NewStore(cfg.Explore.Retain)
	limiter := core.NewLimiter(cfg.Limits.MaxConcurrent, cfg.Limits.MaxWaitTime)

	server := web.NewServer(cfg, explorer, store, limiter)

	// Graceful shutdown
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		// Stop admitting explorations, then let in-flight ones finish
		// before closing connections
		limiter.Close()
		if status := limiter.Status(); status.Active > 0 {
			slog.Info("waiting for explorations to complete", "active", status.Active)
			if err := limiter.WaitForDrain(shutdownCtx); err != nil {
				slog.Warn("explorations did not complete in time", "error", err)
			} else {
				slog.Info("all explorations completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Error("server stopped", "error", err)
		os.Exit(1)
	}
	<-done
	slog.Info("server stopped")
}
