package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ewilliams-labs/cadence/internal/adapters/rest"
	"github.com/ewilliams-labs/cadence/internal/app"
	"github.com/ewilliams-labs/cadence/internal/config"
	"github.com/ewilliams-labs/cadence/internal/logging"
	"github.com/ewilliams-labs/cadence/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a cadence.toml file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	// 1. Configuration (file + environment)
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	// 2. Driven adapters and the core service
	application, err := app.New(cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Warn("failed to close resources", zap.Error(err))
		}
	}()

	// 3. Worker pool and the driving HTTP adapter
	pool := worker.NewPool(application.Orchestrator, cfg.Workers.QueueSize, logger)
	pool.Start(cfg.Workers.Count)
	defer pool.Stop()

	handler := rest.NewHandler(application.Orchestrator, pool, rest.Config{
		TmpDir:         cfg.Audio.TmpDir,
		MaxUploadBytes: int64(cfg.Server.MaxUploadMB) << 20,
	}, logger)

	// 4. Start the server
	srv := &http.Server{
		Addr:              cfg.Server.Bind,
		Handler:           handler,
		ReadHeaderTimeout: time.Duration(cfg.Server.ReadHeaderTimeoutSeconds) * time.Second,
	}

	logger.Info("cadence api listening",
		zap.String("addr", cfg.Server.Bind),
		zap.String("decoder", application.Decoder),
		zap.String("store", cfg.Store.Driver),
		zap.Bool("tagger", cfg.Tagger.URL != ""),
		zap.Bool("events", len(cfg.Events.Brokers) > 0),
	)

	serverErr := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeoutSeconds)*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("shutdown error", zap.Error(err))
		}
	}
	return nil
}
