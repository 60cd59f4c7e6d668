// Package dispatch executes an operation descriptor against a store and
// returns a JSON-safe result.
package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/observability"
	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/store"
)

// DocumentsResult answers find and aggregate.
type DocumentsResult struct {
	Result []any `json:"result"`
	Count  int   `json:"count"`
}

type CountResult struct {
	Count int64 `json:"count"`
}

// Catalog tells whether a database and collection are known. It is only
// consulted for logging; operations on unknown targets still run.
type Catalog interface {
	Has(database, collection string) bool
}

type Dispatcher struct {
	executor store.Executor
	logger   *slog.Logger
}

func New(executor store.Executor, logger *slog.Logger) *Dispatcher {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Dispatcher{executor: executor, logger: logger}
}

// Dispatch validates the descriptor and runs its operation. All failures are
// *outcome.Error values; a panic in the store is recovered as an execution
// error. catalog may be nil.
func (d *Dispatcher) Dispatch(ctx context.Context, desc nl2query.Descriptor, catalog Catalog) (result any, err error) {
	if desc.Error != "" {
		return nil, outcome.New(outcome.KindValidation, desc.Error)
	}
	if desc.Database == "" || desc.Collection == "" || desc.Operation == "" {
		return nil, outcome.New(outcome.KindValidation, "Missing required query components")
	}
	if !desc.Operation.Valid() {
		return nil, outcome.Newf(outcome.KindValidation, "Unsupported operation: %s", desc.Operation)
	}
	if catalog != nil && !catalog.Has(desc.Database, desc.Collection) {
		d.logger.DebugContext(ctx, "dispatching to collection missing from snapshot",
			slog.String("database", desc.Database),
			slog.String("collection", desc.Collection),
			slog.String("operation", string(desc.Operation)),
		)
	}

	defer func() {
		if recovered := recover(); recovered != nil {
			result = nil
			err = outcome.Newf(outcome.KindExecution, "Error executing query: %v", recovered)
		}
		status := "success"
		if err != nil {
			status = "error"
		}
		observability.IncrementOperation(string(desc.Operation), status)
	}()

	params := desc.Parameters
	if params == nil {
		params = document.Document{}
	}
	result, err = d.run(ctx, desc.Database, desc.Collection, desc.Operation, params)
	if err != nil {
		return nil, outcome.Wrap(outcome.KindExecution, "Error executing query", err)
	}
	return result, nil
}

func (d *Dispatcher) run(ctx context.Context, db, coll string, op nl2query.Operation, params document.Document) (any, error) {
	switch op {
	case nl2query.OpFind:
		return d.find(ctx, db, coll, params)
	case nl2query.OpAggregate:
		pipeline, err := objectListParam(params, "pipeline")
		if err != nil {
			return nil, err
		}
		docs, err := d.executor.Aggregate(ctx, db, coll, pipeline)
		if err != nil {
			return nil, err
		}
		return documentsResult(docs), nil
	case nl2query.OpInsertOne:
		doc, err := filterParam(params, "document")
		if err != nil {
			return nil, err
		}
		res, err := d.executor.InsertOne(ctx, db, coll, doc)
		if err != nil {
			return nil, err
		}
		res.InsertedID = document.Normalize(res.InsertedID)
		return res, nil
	case nl2query.OpInsertMany:
		docs, err := objectListParam(params, "documents")
		if err != nil {
			return nil, err
		}
		res, err := d.executor.InsertMany(ctx, db, coll, docs)
		if err != nil {
			return nil, err
		}
		res.InsertedIDs, _ = document.Normalize(res.InsertedIDs).([]any)
		return res, nil
	case nl2query.OpUpdateOne, nl2query.OpUpdateMany:
		return d.update(ctx, db, coll, op == nl2query.OpUpdateMany, params)
	case nl2query.OpDeleteOne, nl2query.OpDeleteMany:
		filter, err := filterParam(params, "filter")
		if err != nil {
			return nil, err
		}
		var res store.DeleteResult
		if op == nl2query.OpDeleteMany {
			res, err = d.executor.DeleteMany(ctx, db, coll, filter)
		} else {
			res, err = d.executor.DeleteOne(ctx, db, coll, filter)
		}
		if err != nil {
			return nil, err
		}
		return res, nil
	case nl2query.OpCount:
		filter, err := filterParam(params, "filter")
		if err != nil {
			return nil, err
		}
		n, err := d.executor.Count(ctx, db, coll, filter)
		if err != nil {
			return nil, err
		}
		return CountResult{Count: n}, nil
	default:
		return nil, fmt.Errorf("unsupported operation %s", op)
	}
}

func (d *Dispatcher) find(ctx context.Context, db, coll string, params document.Document) (any, error) {
	var (
		opts store.FindOptions
		err  error
	)
	if opts.Filter, err = filterParam(params, "filter"); err != nil {
		return nil, err
	}
	if opts.Projection, err = objectParam(params, "projection"); err != nil {
		return nil, err
	}
	if opts.Sort, err = sortParam(params); err != nil {
		return nil, err
	}
	if opts.Limit, err = countParam(params, "limit"); err != nil {
		return nil, err
	}
	if opts.Skip, err = countParam(params, "skip"); err != nil {
		return nil, err
	}
	docs, err := d.executor.Find(ctx, db, coll, opts)
	if err != nil {
		return nil, err
	}
	return documentsResult(docs), nil
}

func (d *Dispatcher) update(ctx context.Context, db, coll string, many bool, params document.Document) (any, error) {
	filter, err := filterParam(params, "filter")
	if err != nil {
		return nil, err
	}
	update, err := filterParam(params, "update")
	if err != nil {
		return nil, err
	}
	upsert, err := boolParam(params, "upsert")
	if err != nil {
		return nil, err
	}
	var res store.UpdateResult
	if many {
		res, err = d.executor.UpdateMany(ctx, db, coll, filter, update, upsert)
	} else {
		res, err = d.executor.UpdateOne(ctx, db, coll, filter, update, upsert)
	}
	if err != nil {
		return nil, err
	}
	res.UpsertedID = document.Normalize(res.UpsertedID)
	return res, nil
}

func documentsResult(docs []document.Document) DocumentsResult {
	return DocumentsResult{Result: document.NormalizeDocuments(docs), Count: len(docs)}
}
