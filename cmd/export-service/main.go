package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"catalog-export/internal/catalog"
	"catalog-export/internal/common/config"
	"catalog-export/internal/common/logger"
	"catalog-export/internal/export"
	"catalog-export/internal/export/fields"
	"catalog-export/internal/export/jobs"
	"catalog-export/internal/server"
)

func main() {
	// Bootstrap logger until the configured one can be built.
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting export service...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	catalogClient := catalog.NewClient(cfg.Catalog.BaseURL, cfg.Catalog.APIKey, cfg.Catalog.RequestTimeout())

	registry := fields.NewRegistry(cfg.Export.DateFormat)

	exporter := export.New(catalogClient, registry, export.Config{
		PageSize:    cfg.Export.PageSize,
		Workers:     cfg.Export.Workers,
		FileCeiling: cfg.Export.FileCeiling,
		RowWindow:   cfg.Export.RowWindow,
		Prefix:      cfg.Export.Prefix,
	}, log)

	var jobStore *jobs.Store
	if cfg.Redis.Enabled {
		jobStore, err = jobs.NewStore(cfg.Redis)
		if err != nil {
			zapLog.Fatal("redis init failed", zap.Error(err))
		}
		defer jobStore.Close()

		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := jobStore.Ping(pingCtx); err != nil {
			zapLog.Warn("redis unreachable, job tracking disabled", zap.Error(err))
			jobStore = nil
		}
		cancel()
	}

	srv := server.New(cfg.Server, exporter, jobStore, log)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil {
			zapLog.Fatal("server failed", zap.Error(err))
		}
	case sig := <-stop:
		zapLog.Info("shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("shutdown failed", zap.Error(err))
	}
	zapLog.Info("export service stopped")
}
