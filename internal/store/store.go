package store

import (
	"context"

	"github.com/docmesh/docmesh/internal/document"
)

// SystemDatabases are never listed by ListDatabases.
var SystemDatabases = []string{"admin", "local", "config"}

func IsSystemDatabase(name string) bool {
	for _, system := range SystemDatabases {
		if name == system {
			return true
		}
	}
	return false
}

// FindOptions carries the optional cursor modifiers of a find. Nil documents and
// zero Limit/Skip mean "not set".
type FindOptions struct {
	Filter     document.Document
	Projection document.Document
	Sort       document.Document
	Limit      int64
	Skip       int64
}

type InsertOneResult struct {
	Acknowledged bool `json:"acknowledged"`
	InsertedID   any  `json:"inserted_id"`
}

type InsertManyResult struct {
	Acknowledged bool  `json:"acknowledged"`
	InsertedIDs  []any `json:"inserted_ids"`
}

type UpdateResult struct {
	Acknowledged  bool  `json:"acknowledged"`
	MatchedCount  int64 `json:"matched_count"`
	ModifiedCount int64 `json:"modified_count"`
	UpsertedID    any   `json:"upserted_id"`
}

type DeleteResult struct {
	Acknowledged bool  `json:"acknowledged"`
	DeletedCount int64 `json:"deleted_count"`
}

// SchemaReader enumerates structure and samples documents.
type SchemaReader interface {
	ListDatabases(ctx context.Context) ([]string, error)
	ListCollections(ctx context.Context, database string) ([]string, error)
	// SampleOne returns false when the collection holds no documents.
	SampleOne(ctx context.Context, database, collection string) (document.Document, bool, error)
	SampleMany(ctx context.Context, database, collection string, limit int64) ([]document.Document, error)
}

// Executor runs the fixed set of data operations.
type Executor interface {
	Find(ctx context.Context, database, collection string, opts FindOptions) ([]document.Document, error)
	Aggregate(ctx context.Context, database, collection string, pipeline []document.Document) ([]document.Document, error)
	InsertOne(ctx context.Context, database, collection string, doc document.Document) (InsertOneResult, error)
	InsertMany(ctx context.Context, database, collection string, docs []document.Document) (InsertManyResult, error)
	UpdateOne(ctx context.Context, database, collection string, filter, update document.Document, upsert bool) (UpdateResult, error)
	UpdateMany(ctx context.Context, database, collection string, filter, update document.Document, upsert bool) (UpdateResult, error)
	DeleteOne(ctx context.Context, database, collection string, filter document.Document) (DeleteResult, error)
	DeleteMany(ctx context.Context, database, collection string, filter document.Document) (DeleteResult, error)
	Count(ctx context.Context, database, collection string, filter document.Document) (int64, error)
}

type Store interface {
	SchemaReader
	Executor
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
