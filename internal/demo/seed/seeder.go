// Package seed generates a deterministic demo data set and loads it into a
// document store.
package seed

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store"
)

const (
	ShopDatabase        = "shop"
	CustomersCollection = "customers"
	OrdersCollection    = "orders"
	LibraryDatabase     = "library"
	BooksCollection     = "books"
)

type CollectionSummary struct {
	Database   string
	Collection string
	Inserted   int
	Deleted    int64
}

type Seeder struct {
	executor store.Executor
	cfg      Config
	log      *slog.Logger
}

func NewSeeder(executor store.Executor, cfg Config, logger *slog.Logger) (*Seeder, error) {
	if executor == nil {
		return nil, fmt.Errorf("executor is required")
	}
	if cfg.Customers <= 0 {
		return nil, fmt.Errorf("at least one customer is required")
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Seeder{executor: executor, cfg: cfg, log: logger}, nil
}

// Run generates every collection from one random source, so the result
// depends only on the configured seed and counts.
func (s *Seeder) Run(ctx context.Context) ([]CollectionSummary, error) {
	gen := NewGenerator(s.cfg.Seed)

	customers := make([]document.Document, 0, s.cfg.Customers)
	for i := 1; i <= s.cfg.Customers; i++ {
		customers = append(customers, gen.Customer(i))
	}
	orders := make([]document.Document, 0, s.cfg.Orders)
	for i := 1; i <= s.cfg.Orders; i++ {
		orders = append(orders, gen.Order(i, s.cfg.Customers))
	}
	books := make([]document.Document, 0, s.cfg.Books)
	for i := 1; i <= s.cfg.Books; i++ {
		books = append(books, gen.Book(i))
	}

	plan := []struct {
		database   string
		collection string
		docs       []document.Document
	}{
		{ShopDatabase, CustomersCollection, customers},
		{ShopDatabase, OrdersCollection, orders},
		{LibraryDatabase, BooksCollection, books},
	}

	summaries := make([]CollectionSummary, 0, len(plan))
	for _, step := range plan {
		summary, err := s.load(ctx, step.database, step.collection, step.docs)
		if err != nil {
			return summaries, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *Seeder) load(ctx context.Context, database, collection string, docs []document.Document) (CollectionSummary, error) {
	summary := CollectionSummary{Database: database, Collection: collection}
	if s.cfg.Reset {
		deleted, err := s.executor.DeleteMany(ctx, database, collection, document.Document{})
		if err != nil {
			return summary, fmt.Errorf("reset %s.%s: %w", database, collection, err)
		}
		summary.Deleted = deleted.DeletedCount
	}

	for start := 0; start < len(docs); start += s.cfg.BatchSize {
		end := start + s.cfg.BatchSize
		if end > len(docs) {
			end = len(docs)
		}
		result, err := s.executor.InsertMany(ctx, database, collection, docs[start:end])
		if err != nil {
			return summary, fmt.Errorf("insert %s.%s batch at %d: %w", database, collection, start, err)
		}
		summary.Inserted += len(result.InsertedIDs)
	}

	s.log.InfoContext(ctx, "demo collection seeded",
		slog.String("database", database),
		slog.String("collection", collection),
		slog.Int("inserted", summary.Inserted),
		slog.Int64("deleted", summary.Deleted),
	)
	return summary, nil
}
