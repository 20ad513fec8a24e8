package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/marketfold/shopedge/internal/config"
	"github.com/marketfold/shopedge/internal/errorreporting"
	"github.com/marketfold/shopedge/internal/logger"
	"github.com/marketfold/shopedge/internal/server"
	"github.com/marketfold/shopedge/internal/tracing"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger.Init(cfg.LogLevel)

	if err := errorreporting.Init(cfg); err != nil {
		logger.Warn("sentry init failed, continuing without error reporting", "error", err)
	}
	defer errorreporting.Flush(2 * time.Second)

	shutdownTracing, err := tracing.Init(cfg)
	if err != nil {
		logger.Warn("tracing init failed, continuing without tracing", "error", err)
		shutdownTracing = func(context.Context) error { return nil }
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv, err := server.New(ctx, cfg)
	if err != nil {
		logger.Error("server init failed", "error", err)
		os.Exit(1)
	}

	if err := srv.Start(ctx); err != nil {
		logger.Error("server exited with error", "error", err)
		os.Exit(1)
	}

	if err := shutdownTracing(context.Background()); err != nil {
		logger.Warn("tracing shutdown failed", "error", err)
	}
	logger.Info("shutdown complete")
}
