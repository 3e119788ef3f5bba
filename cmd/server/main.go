package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/arencloud/strata/internal/api"
	"github.com/arencloud/strata/internal/config"
	"github.com/arencloud/strata/internal/connection"
	"github.com/arencloud/strata/internal/db"
	"github.com/arencloud/strata/internal/logging"
	"github.com/arencloud/strata/internal/metrics"
	"github.com/arencloud/strata/internal/progress"
	"github.com/arencloud/strata/internal/s3"
	"github.com/arencloud/strata/internal/secrets"
	"github.com/arencloud/strata/internal/service"
	"github.com/arencloud/strata/internal/version"
)

func main() {
	cfg := config.Load()
	logger := logging.New(cfg.Env, cfg.LogLevel, cfg.LogJSON)

	if err := cfg.EnsureConfigDir(); err != nil {
		logger.Fatal("failed to prepare config dir", "dir", cfg.ConfigDir, "error", err)
	}
	store, err := db.Open(cfg, logger)
	if err != nil {
		logger.Fatal("failed to open connection store", "driver", cfg.StoreDriver, "error", err)
	}
	metrics.Register()

	reg := connection.NewRegistry()
	factory := s3.Factory{}
	conns := connection.NewManager(reg, store, secrets.NewKeyring(cfg.KeyringService), factory, logger)
	if err := conns.Bootstrap(); err != nil {
		logger.Fatal("failed to load connections", "error", err)
	}

	hub := progress.NewHub()
	storage := service.NewStorageService(reg, factory, hub, logger, service.Options{
		TextPreviewMax: cfg.TextPreviewMaxBytes,
		MaxUploadBytes: cfg.MaxUploadBytes,
		TransferDir:    cfg.TransferDir,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.HttpPort,
		Handler:           api.Router(cfg, api.Deps{Connections: conns, Storage: storage, Progress: hub, Logger: logger}),
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       0, // allow long-running uploads/downloads; rely on LB timeouts
		WriteTimeout:      0,
		MaxHeaderBytes:    1 << 20, // 1MB headers
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		logger.Info("server starting", "addr", srv.Addr, "version", version.Version, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server error", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
