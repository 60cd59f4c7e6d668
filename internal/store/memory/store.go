// Package memory is an in-process document store. It backs the demo mode and
// the pipeline tests, and mirrors MongoDB semantics closely enough for both:
// writes create databases and collections on demand, reads of unknown
// collections return nothing.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store"
)

type collection struct {
	name string
	docs []document.Document
}

type database struct {
	name        string
	collections []*collection
}

type Store struct {
	mu        sync.RWMutex
	databases []*database
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{}
}

// Seed inserts documents, assigning an ObjectID to any document without _id.
func (s *Store) Seed(databaseName, collectionName string, docs ...document.Document) error {
	_, err := s.InsertMany(context.Background(), databaseName, collectionName, docs)
	return err
}

// CreateCollection registers an empty collection so it shows up in listings.
func (s *Store) CreateCollection(databaseName, collectionName string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.collectionFor(databaseName, collectionName, true)
}

func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *Store) Close(context.Context) error {
	return nil
}

func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.databases))
	for _, db := range s.databases {
		if store.IsSystemDatabase(db.name) {
			continue
		}
		names = append(names, db.name)
	}
	return names, nil
}

func (s *Store) ListCollections(ctx context.Context, databaseName string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := []string{}
	for _, db := range s.databases {
		if db.name != databaseName {
			continue
		}
		for _, coll := range db.collections {
			names = append(names, coll.name)
		}
	}
	return names, nil
}

func (s *Store) SampleOne(ctx context.Context, databaseName, collectionName string) (document.Document, bool, error) {
	docs, err := s.SampleMany(ctx, databaseName, collectionName, 1)
	if err != nil || len(docs) == 0 {
		return nil, false, err
	}
	return docs[0], true, nil
}

func (s *Store) SampleMany(ctx context.Context, databaseName, collectionName string, limit int64) ([]document.Document, error) {
	return s.Find(ctx, databaseName, collectionName, store.FindOptions{Limit: limit})
}

func (s *Store) Find(ctx context.Context, databaseName, collectionName string, opts store.FindOptions) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.matching(databaseName, collectionName, opts.Filter)
	if err != nil {
		return nil, err
	}
	if len(opts.Sort) > 0 {
		if err := sortDocuments(docs, opts.Sort); err != nil {
			return nil, err
		}
	}
	if opts.Skip < 0 || opts.Limit < 0 {
		return nil, fmt.Errorf("skip and limit must not be negative")
	}
	if opts.Skip > 0 {
		docs = skipDocuments(docs, opts.Skip)
	}
	if opts.Limit > 0 {
		docs = limitDocuments(docs, opts.Limit)
	}
	return projectDocuments(docs, opts.Projection)
}

func (s *Store) Aggregate(ctx context.Context, databaseName, collectionName string, pipeline []document.Document) ([]document.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	docs, err := s.matching(databaseName, collectionName, nil)
	if err != nil {
		return nil, err
	}
	return runPipeline(docs, pipeline)
}

func (s *Store) InsertOne(ctx context.Context, databaseName, collectionName string, doc document.Document) (store.InsertOneResult, error) {
	result, err := s.InsertMany(ctx, databaseName, collectionName, []document.Document{doc})
	if err != nil {
		return store.InsertOneResult{}, err
	}
	return store.InsertOneResult{Acknowledged: true, InsertedID: result.InsertedIDs[0]}, nil
}

func (s *Store) InsertMany(ctx context.Context, databaseName, collectionName string, docs []document.Document) (store.InsertManyResult, error) {
	if err := ctx.Err(); err != nil {
		return store.InsertManyResult{}, err
	}
	if len(docs) == 0 {
		return store.InsertManyResult{}, fmt.Errorf("documents must be a non-empty list")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	coll := s.collectionFor(databaseName, collectionName, true)
	prepared := make([]document.Document, 0, len(docs))
	ids := make([]any, 0, len(docs))
	for _, doc := range docs {
		stored := withID(doc)
		id, _ := stored.Get("_id")
		if indexOfID(coll.docs, id) >= 0 || indexOfID(prepared, id) >= 0 {
			return store.InsertManyResult{}, fmt.Errorf("E11000 duplicate key error collection: %s.%s dup key: { _id: %s }", databaseName, collectionName, document.Stringify(id))
		}
		prepared = append(prepared, stored)
		ids = append(ids, id)
	}
	coll.docs = append(coll.docs, prepared...)
	return store.InsertManyResult{Acknowledged: true, InsertedIDs: ids}, nil
}

func (s *Store) UpdateOne(ctx context.Context, databaseName, collectionName string, filter, update document.Document, upsert bool) (store.UpdateResult, error) {
	return s.update(ctx, databaseName, collectionName, filter, update, upsert, false)
}

func (s *Store) UpdateMany(ctx context.Context, databaseName, collectionName string, filter, update document.Document, upsert bool) (store.UpdateResult, error) {
	return s.update(ctx, databaseName, collectionName, filter, update, upsert, true)
}

func (s *Store) DeleteOne(ctx context.Context, databaseName, collectionName string, filter document.Document) (store.DeleteResult, error) {
	return s.delete(ctx, databaseName, collectionName, filter, false)
}

func (s *Store) DeleteMany(ctx context.Context, databaseName, collectionName string, filter document.Document) (store.DeleteResult, error) {
	return s.delete(ctx, databaseName, collectionName, filter, true)
}

func (s *Store) Count(ctx context.Context, databaseName, collectionName string, filter document.Document) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	docs, err := s.matching(databaseName, collectionName, filter)
	if err != nil {
		return 0, err
	}
	return int64(len(docs)), nil
}

func (s *Store) update(ctx context.Context, databaseName, collectionName string, filter, update document.Document, upsert, many bool) (store.UpdateResult, error) {
	if err := ctx.Err(); err != nil {
		return store.UpdateResult{}, err
	}
	if len(update) == 0 {
		return store.UpdateResult{}, fmt.Errorf("update document must not be empty")
	}
	for _, op := range update {
		if !strings.HasPrefix(op.Key, "$") {
			return store.UpdateResult{}, fmt.Errorf("update document requires atomic operators, got %q", op.Key)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := store.UpdateResult{Acknowledged: true}
	coll := s.collectionFor(databaseName, collectionName, upsert)
	if coll != nil {
		for i, doc := range coll.docs {
			ok, err := matches(doc, filter)
			if err != nil {
				return store.UpdateResult{}, err
			}
			if !ok {
				continue
			}
			updated, changed, err := applyUpdate(doc, update)
			if err != nil {
				return store.UpdateResult{}, err
			}
			result.MatchedCount++
			if changed {
				coll.docs[i] = updated
				result.ModifiedCount++
			}
			if !many {
				break
			}
		}
	}
	if result.MatchedCount > 0 || !upsert {
		return result, nil
	}

	created, _, err := applyUpdate(upsertSeed(filter), update)
	if err != nil {
		return store.UpdateResult{}, err
	}
	created = withID(created)
	coll.docs = append(coll.docs, created)
	result.UpsertedID, _ = created.Get("_id")
	return result, nil
}

func (s *Store) delete(ctx context.Context, databaseName, collectionName string, filter document.Document, many bool) (store.DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return store.DeleteResult{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	result := store.DeleteResult{Acknowledged: true}
	coll := s.collectionFor(databaseName, collectionName, false)
	if coll == nil {
		return result, nil
	}
	kept := make([]document.Document, 0, len(coll.docs))
	for _, doc := range coll.docs {
		if many || result.DeletedCount == 0 {
			ok, err := matches(doc, filter)
			if err != nil {
				return store.DeleteResult{}, err
			}
			if ok {
				result.DeletedCount++
				continue
			}
		}
		kept = append(kept, doc)
	}
	coll.docs = kept
	return result, nil
}

// matching returns deep copies of the documents that satisfy filter.
func (s *Store) matching(databaseName, collectionName string, filter document.Document) ([]document.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	coll := s.collectionFor(databaseName, collectionName, false)
	if coll == nil {
		return []document.Document{}, nil
	}
	out := make([]document.Document, 0, len(coll.docs))
	for _, doc := range coll.docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc.Clone())
		}
	}
	return out, nil
}

// collectionFor must be called with s.mu held; create requires the write lock.
func (s *Store) collectionFor(databaseName, collectionName string, create bool) *collection {
	var db *database
	for _, candidate := range s.databases {
		if candidate.name == databaseName {
			db = candidate
			break
		}
	}
	if db == nil {
		if !create {
			return nil
		}
		db = &database{name: databaseName}
		s.databases = append(s.databases, db)
	}
	for _, coll := range db.collections {
		if coll.name == collectionName {
			return coll
		}
	}
	if !create {
		return nil
	}
	coll := &collection{name: collectionName}
	db.collections = append(db.collections, coll)
	return coll
}

func withID(doc document.Document) document.Document {
	stored := doc.Clone()
	if stored == nil {
		stored = document.Document{}
	}
	if _, ok := stored.Get("_id"); ok {
		return stored
	}
	return append(document.Document{{Key: "_id", Value: document.NewObjectID()}}, stored...)
}

func indexOfID(docs []document.Document, id any) int {
	for i, doc := range docs {
		if existing, ok := doc.Get("_id"); ok && valuesEqual(existing, id) {
			return i
		}
	}
	return -1
}
