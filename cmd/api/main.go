package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/riskibarqy/forge/internal/app"
	"github.com/riskibarqy/forge/internal/config"
	"github.com/riskibarqy/forge/internal/observability"
	"github.com/riskibarqy/forge/internal/platform/logging"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := logging.NewJSON(cfg.LogLevel).With(
		"service", cfg.ServiceName,
		"env", cfg.AppEnv,
		"community_id", cfg.CommunityID,
	)
	logging.SetDefault(logger)
	defer func() { _ = logger.Sync() }()

	shutdownTracing, err := observability.InitUptrace(cfg, logger)
	if err != nil {
		logger.Error("init uptrace", "error", err)
		os.Exit(1)
	}
	stopProfiler, err := observability.InitPyroscope(cfg, logger)
	if err != nil {
		logger.Error("init pyroscope", "error", err)
		os.Exit(1)
	}
	pprofServer := observability.StartPprofServer(cfg, logger)

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Error("build app", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("http server starting", "addr", cfg.HTTPAddr, "storage_driver", cfg.StorageDriver)
		if err := application.Server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server failed", "error", err)
			stop()
		}
	}()

	workersDone := make(chan struct{})
	go func() {
		defer close(workersDone)
		application.RunWorkers(ctx)
	}()

	<-ctx.Done()
	logger.Info("shutdown requested")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	exitCode := 0
	if err := application.Server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		exitCode = 1
	}
	select {
	case <-workersDone:
	case <-shutdownCtx.Done():
		logger.Warn("background workers did not stop before the shutdown deadline")
	}
	application.Close()

	if err := observability.StopPprofServer(shutdownCtx, pprofServer, logger); err != nil {
		logger.Warn("stop pprof server failed", "error", err)
	}
	if err := stopProfiler(shutdownCtx); err != nil {
		logger.Warn("stop pyroscope failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("shutdown uptrace failed", "error", err)
	}

	logger.Info("forge api stopped")
	if exitCode != 0 {
		_ = logger.Sync()
		os.Exit(exitCode)
	}
}
