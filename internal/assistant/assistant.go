// Package assistant wires classification, translation and dispatch into a
// single Process call.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/docmesh/docmesh/internal/classify"
	"github.com/docmesh/docmesh/internal/dispatch"
	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/observability"
	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/schema"
	"github.com/docmesh/docmesh/internal/store"
)

const DefaultSampleLimit = 5

var errNoTranslator = outcome.New(outcome.KindConfiguration, "NLP processor not available")

type Options struct {
	// Translator is optional; without it only schema exploration works.
	Translator  nl2query.Translator
	Logger      *slog.Logger
	SampleLimit int64
}

type Assistant struct {
	store       store.Store
	translator  nl2query.Translator
	dispatcher  *dispatch.Dispatcher
	logger      *slog.Logger
	sampleLimit int64
	snapshot    atomic.Pointer[schema.Snapshot]
}

// New uses snapshot as the initial schema view. Call Refresh to rebuild it.
func New(st store.Store, snapshot *schema.Snapshot, opts Options) *Assistant {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	sampleLimit := opts.SampleLimit
	if sampleLimit <= 0 {
		sampleLimit = DefaultSampleLimit
	}
	if snapshot == nil {
		snapshot = &schema.Snapshot{}
	}
	a := &Assistant{
		store:       st,
		translator:  opts.Translator,
		dispatcher:  dispatch.New(st, logger),
		logger:      logger,
		sampleLimit: sampleLimit,
	}
	a.snapshot.Store(snapshot)
	observability.SetSnapshotCollections(snapshot.CollectionCount())
	return a
}

// Open builds the initial snapshot from the store and returns a ready
// assistant.
func Open(ctx context.Context, st store.Store, opts Options) (*Assistant, error) {
	snapshot, err := schema.Build(ctx, st)
	if err != nil {
		return nil, fmt.Errorf("build schema snapshot: %w", err)
	}
	return New(st, snapshot, opts), nil
}

func (a *Assistant) Snapshot() *schema.Snapshot {
	return a.snapshot.Load()
}

// Refresh rebuilds the snapshot. The previous one stays in place on failure.
func (a *Assistant) Refresh(ctx context.Context) (*schema.Snapshot, error) {
	snapshot, err := schema.Build(ctx, a.store)
	if err != nil {
		return nil, fmt.Errorf("refresh schema snapshot: %w", err)
	}
	a.snapshot.Store(snapshot)
	observability.SetSnapshotCollections(snapshot.CollectionCount())
	a.logger.InfoContext(ctx, "schema snapshot refreshed",
		slog.Int("databases", len(snapshot.Databases)),
		slog.Int("collections", snapshot.CollectionCount()),
	)
	return snapshot, nil
}

func (a *Assistant) TranslatorAvailable() bool {
	return a.translator != nil
}

// Process answers one request. It never panics and never returns a Go error;
// failures are error outcomes.
func (a *Assistant) Process(ctx context.Context, text string) (out outcome.Outcome) {
	start := time.Now()
	category := classify.Classify(text)
	defer func() {
		observability.ObserveQuery(string(category), out.Status, time.Since(start))
		attrs := []any{
			observability.TraceAttr(ctx),
			slog.String("category", string(category)),
			slog.String("status", out.Status),
			slog.String("duration", time.Since(start).String()),
		}
		if !out.OK() {
			attrs = append(attrs, slog.String("error_kind", string(out.ErrorKind)), slog.String("message", out.Message))
		}
		a.logger.InfoContext(ctx, "query processed", attrs...)
	}()

	if category == classify.SchemaExploration {
		data, err := a.explore(ctx, text)
		if err != nil {
			return outcome.Failure(err)
		}
		return outcome.Success(data, nil)
	}
	if a.translator == nil {
		return outcome.Failure(errNoTranslator)
	}

	defer a.recoverPanic(ctx, &out)

	descriptor, err := a.translate(ctx, text)
	if err != nil {
		return outcome.Failure(err)
	}
	return a.Execute(ctx, descriptor)
}

// Execute dispatches a descriptor that was already translated, without
// calling the model again.
func (a *Assistant) Execute(ctx context.Context, descriptor nl2query.Descriptor) (out outcome.Outcome) {
	defer a.recoverPanic(ctx, &out)

	result, err := a.dispatcher.Dispatch(ctx, descriptor, a.Snapshot())
	if err != nil {
		return outcome.Failure(err)
	}
	return outcome.Success(result, descriptor)
}

func (a *Assistant) recoverPanic(ctx context.Context, out *outcome.Outcome) {
	if recovered := recover(); recovered != nil {
		a.logger.ErrorContext(ctx, "query processing panicked", slog.Any("panic", recovered))
		*out = outcome.Failure(outcome.Newf(outcome.KindInternal, "Error processing query: %v", recovered))
	}
}

// Interpret translates without executing.
func (a *Assistant) Interpret(ctx context.Context, text string) (nl2query.Descriptor, error) {
	if a.translator == nil {
		return nl2query.Descriptor{}, errNoTranslator
	}
	return a.translate(ctx, text)
}

func (a *Assistant) translate(ctx context.Context, text string) (nl2query.Descriptor, error) {
	start := time.Now()
	result, err := a.translator.Translate(ctx, nl2query.Request{Text: text, Snapshot: a.Snapshot()})
	status := "success"
	if outcome.KindOf(err) == outcome.KindModel {
		status = "error"
	}
	observability.ObserveModelCall(status, time.Since(start))
	if result.RawResponse != "" {
		a.logger.DebugContext(ctx, "model response", slog.String("raw", result.RawResponse))
	}
	if err != nil {
		var typed *outcome.Error
		if !errors.As(err, &typed) {
			err = outcome.Wrap(outcome.KindModel, "OpenAI API error", err)
		}
		return nl2query.Descriptor{}, err
	}
	return result.Descriptor, nil
}

// explore answers schema questions from the snapshot. The first database whose
// name occurs in the text wins, then the first of its collections.
func (a *Assistant) explore(ctx context.Context, text string) (document.Document, error) {
	snapshot := a.Snapshot()
	lowered := strings.ToLower(text)

	var (
		db    schema.DatabaseInfo
		found bool
	)
	for _, candidate := range snapshot.Databases {
		if strings.Contains(lowered, strings.ToLower(candidate.Name)) {
			db, found = candidate, true
			break
		}
	}
	if !found {
		return document.Document{{Key: "databases", Value: snapshot.Listing()}}, nil
	}

	for _, coll := range db.Collections {
		if !strings.Contains(lowered, strings.ToLower(coll.Name)) {
			continue
		}
		info := coll
		if strings.Contains(lowered, "sample") || strings.Contains(lowered, "example") {
			samples, err := a.store.SampleMany(ctx, db.Name, coll.Name, a.sampleLimit)
			if err != nil {
				return nil, outcome.Wrap(outcome.KindExecution, "Error processing query", err)
			}
			info.Samples = document.NormalizeDocuments(samples)
		}
		return document.Document{
			{Key: "database", Value: db.Name},
			{Key: "collection", Value: coll.Name},
			{Key: "info", Value: info},
		}, nil
	}

	names := make([]any, 0, len(db.Collections))
	for _, name := range db.CollectionNames() {
		names = append(names, name)
	}
	return document.Document{
		{Key: "database", Value: db.Name},
		{Key: "collections", Value: names},
	}, nil
}
