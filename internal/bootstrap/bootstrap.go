// Package bootstrap builds the runtime components shared by the docmesh
// binaries from a loaded configuration.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/docmesh/docmesh/internal/assistant"
	"github.com/docmesh/docmesh/internal/config"
	"github.com/docmesh/docmesh/internal/demo/seed"
	"github.com/docmesh/docmesh/internal/export"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/observability"
	s3store "github.com/docmesh/docmesh/internal/storage/s3"
	"github.com/docmesh/docmesh/internal/store"
	"github.com/docmesh/docmesh/internal/store/memory"
	mongostore "github.com/docmesh/docmesh/internal/store/mongo"
)

func OpenStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (store.Store, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendMongo:
		st, err := mongostore.Connect(ctx, mongostore.Config{
			URI:            cfg.Store.MongoURI,
			ConnectTimeout: cfg.Store.MongoConnectTimeout,
			AppName:        cfg.Service.Name,
		})
		if err != nil {
			return nil, fmt.Errorf("connect to %s: %w", observability.MaskURI(cfg.Store.MongoURI), err)
		}
		logger.InfoContext(ctx, "connected to mongodb", slog.String("uri", observability.MaskURI(cfg.Store.MongoURI)))
		return st, nil
	case config.StoreBackendMemory:
		st := memory.New()
		if cfg.Store.MemoryDemoData {
			seeder, err := seed.NewSeeder(st, seed.DefaultConfig(), logger)
			if err != nil {
				return nil, err
			}
			if _, err := seeder.Run(ctx); err != nil {
				return nil, fmt.Errorf("seed memory store: %w", err)
			}
		}
		logger.InfoContext(ctx, "using in-memory document store", slog.Bool("demo_data", cfg.Store.MemoryDemoData))
		return st, nil
	default:
		return nil, fmt.Errorf("unsupported store backend %q", cfg.Store.Backend)
	}
}

// NewTranslator returns nil when translation is disabled or the model client
// cannot be built. The assistant then runs in limited functionality mode and
// answers schema questions only.
func NewTranslator(ctx context.Context, cfg config.Config, logger *slog.Logger) nl2query.Translator {
	if !cfg.AI.Enabled {
		logger.WarnContext(ctx, "query translation disabled; only schema exploration is available")
		return nil
	}
	completer, err := nl2query.NewOpenAICompleter(nl2query.OpenAIConfig{
		BaseURL:     cfg.AI.BaseURL,
		APIKey:      cfg.AI.APIKey,
		Model:       cfg.AI.Model,
		Temperature: cfg.AI.Temperature,
		MaxTokens:   cfg.AI.MaxTokens,
		Timeout:     cfg.AI.Timeout,
	})
	if err != nil {
		return limitedMode(ctx, logger, err)
	}
	translator, err := nl2query.NewModelTranslator(completer)
	if err != nil {
		return limitedMode(ctx, logger, err)
	}
	logger.InfoContext(ctx, "query translation enabled",
		slog.String("model", completer.Model()),
		slog.String("base_url", cfg.AI.BaseURL),
	)
	return translator
}

func limitedMode(ctx context.Context, logger *slog.Logger, err error) nl2query.Translator {
	logger.WarnContext(ctx, "model client unavailable; running in limited functionality mode",
		slog.String("error", err.Error()),
	)
	return nil
}

func NewAssistant(ctx context.Context, cfg config.Config, st store.Store, logger *slog.Logger) (*assistant.Assistant, error) {
	return assistant.Open(ctx, st, assistant.Options{
		Translator:  NewTranslator(ctx, cfg, logger),
		Logger:      logger,
		SampleLimit: int64(cfg.Explore.SampleLimit),
	})
}

// NewExporter returns nil values when export is disabled.
func NewExporter(ctx context.Context, cfg config.Config, logger *slog.Logger) (*export.Exporter, *s3store.Store, error) {
	if !cfg.Export.Enabled {
		return nil, nil, nil
	}
	objects, err := s3store.New(ctx, s3store.Config{
		Endpoint:         cfg.ObjectStore.Endpoint,
		Region:           cfg.ObjectStore.Region,
		Bucket:           cfg.ObjectStore.Bucket,
		AccessKeyID:      cfg.ObjectStore.AccessKeyID,
		SecretAccessKey:  cfg.ObjectStore.SecretAccessKey,
		UseSSL:           cfg.ObjectStore.UseSSL,
		Prefix:           cfg.ObjectStore.Prefix,
		AutoCreateBucket: cfg.ObjectStore.AutoCreateBucket,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("initialize object store: %w", err)
	}
	return &export.Exporter{
		ObjectStore: objects,
		Prefix:      cfg.Export.Prefix,
		Logger:      logger,
	}, objects, nil
}
