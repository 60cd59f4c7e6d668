package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docmesh/docmesh/internal/api"
	"github.com/docmesh/docmesh/internal/bootstrap"
	"github.com/docmesh/docmesh/internal/config"
	"github.com/docmesh/docmesh/internal/observability"
)

func main() {
	cfg, err := config.LoadFromEnv("docmesh-api")
	if err != nil {
		slog.Error("failed to load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg, os.Stdout)
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), cfg.Store.MongoConnectTimeout+30*time.Second)
	defer cancelStartup()

	documentStore, err := bootstrap.OpenStore(startupCtx, cfg, logger)
	if err != nil {
		logger.Error("failed to open document store", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := documentStore.Close(closeCtx); err != nil {
			logger.Error("failed to close document store", slog.Any("error", err))
		}
	}()

	assistant, err := bootstrap.NewAssistant(startupCtx, cfg, documentStore, logger)
	if err != nil {
		logger.Error("failed to initialize query assistant", slog.Any("error", err))
		os.Exit(1)
	}

	exporter, objectStore, err := bootstrap.NewExporter(startupCtx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize result export", slog.Any("error", err))
		os.Exit(1)
	}

	deps := api.Dependencies{
		Logger:            logger,
		Assistant:         assistant,
		DependencyTimeout: time.Second,
		QueryTimeout:      cfg.HTTP.WriteTimeout,
		Readiness: api.CombineReadinessChecks(
			api.CheckStore(documentStore),
		),
	}
	if exporter != nil {
		deps.Exporter = exporter
		deps.Readiness = api.CombineReadinessChecks(
			api.CheckStore(documentStore),
			api.CheckObjectStore(cfg, objectStore),
		)
	}

	handler := api.NewHandler(cfg, deps)
	server := &http.Server{
		Addr:         cfg.HTTP.Address,
		Handler:      handler,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("starting api server",
			slog.String("addr", cfg.HTTP.Address),
			slog.String("store_backend", string(cfg.Store.Backend)),
			slog.Bool("translation_enabled", assistant.TranslatorAvailable()),
			slog.Bool("export_enabled", cfg.Export.Enabled),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("api server failed", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	logger.Info("shutting down api server")
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", slog.Any("error", err))
		_ = server.Close()
		os.Exit(1)
	}
}
