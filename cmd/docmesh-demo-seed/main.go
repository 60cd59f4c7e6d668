package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/docmesh/docmesh/internal/demo/seed"
	"github.com/docmesh/docmesh/internal/observability"
	mongostore "github.com/docmesh/docmesh/internal/store/mongo"
)

func main() {
	cfg, err := seed.LoadConfigFromEnv(os.LookupEnv)
	if err != nil {
		slog.Error("failed to load demo seed config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	documentStore, err := mongostore.Connect(ctx, mongostore.Config{
		URI:            cfg.MongoURI,
		ConnectTimeout: cfg.ConnectTimeout,
		AppName:        "docmesh-demo-seed",
	})
	if err != nil {
		logger.Error("failed to connect to mongodb", slog.String("uri", observability.MaskURI(cfg.MongoURI)), slog.Any("error", err))
		os.Exit(1)
	}
	defer func() { _ = documentStore.Close(context.Background()) }()

	seeder, err := seed.NewSeeder(documentStore, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize demo seeder", slog.Any("error", err))
		os.Exit(1)
	}

	logger.Info(
		"demo seed started",
		slog.String("uri", observability.MaskURI(cfg.MongoURI)),
		slog.Int64("seed", cfg.Seed),
		slog.Int("customers", cfg.Customers),
		slog.Int("orders", cfg.Orders),
		slog.Int("books", cfg.Books),
		slog.Bool("reset", cfg.Reset),
	)

	summaries, err := seeder.Run(ctx)
	if err != nil {
		logger.Error("demo seed failed", slog.Any("error", err))
		os.Exit(1)
	}
	for _, summary := range summaries {
		logger.Info("collection seeded",
			slog.String("database", summary.Database),
			slog.String("collection", summary.Collection),
			slog.Int("inserted", summary.Inserted),
			slog.Int64("deleted", summary.Deleted),
		)
	}
	logger.Info("demo seed finished")
}
