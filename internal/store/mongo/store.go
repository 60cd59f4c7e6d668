// Package mongo implements store.Store on top of the official MongoDB driver.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store"
)

const defaultConnectTimeout = 10 * time.Second

type Config struct {
	URI            string
	ConnectTimeout time.Duration
	AppName        string
}

type Store struct {
	client *mongo.Client
}

var _ store.Store = (*Store)(nil)

// Connect dials the deployment and verifies it answers a ping before
// returning.
func Connect(ctx context.Context, cfg Config) (*Store, error) {
	uri := strings.TrimSpace(cfg.URI)
	if uri == "" {
		return nil, fmt.Errorf("mongo uri is required")
	}
	timeout := cfg.ConnectTimeout
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}

	clientOptions := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)
	if cfg.AppName != "" {
		clientOptions.SetAppName(cfg.AppName)
	}
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	return &Store{client: client}, nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, readpref.Primary())
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

func (s *Store) ListDatabases(ctx context.Context) ([]string, error) {
	all, err := s.client.ListDatabaseNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	names := make([]string, 0, len(all))
	for _, name := range all {
		if store.IsSystemDatabase(name) {
			continue
		}
		names = append(names, name)
	}
	return names, nil
}

func (s *Store) ListCollections(ctx context.Context, databaseName string) ([]string, error) {
	names, err := s.client.Database(databaseName).ListCollectionNames(ctx, bson.D{})
	if err != nil {
		return nil, fmt.Errorf("list collections of %s: %w", databaseName, err)
	}
	return names, nil
}

func (s *Store) SampleOne(ctx context.Context, databaseName, collectionName string) (document.Document, bool, error) {
	var raw bson.D
	err := s.collection(databaseName, collectionName).FindOne(ctx, bson.D{}).Decode(&raw)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("sample %s.%s: %w", databaseName, collectionName, err)
	}
	return fromBSONDoc(raw), true, nil
}

func (s *Store) SampleMany(ctx context.Context, databaseName, collectionName string, limit int64) ([]document.Document, error) {
	return s.Find(ctx, databaseName, collectionName, store.FindOptions{Limit: limit})
}

func (s *Store) Find(ctx context.Context, databaseName, collectionName string, opts store.FindOptions) ([]document.Document, error) {
	findOptions := options.Find()
	if opts.Projection != nil {
		findOptions.SetProjection(toBSONDoc(opts.Projection))
	}
	if opts.Sort != nil {
		findOptions.SetSort(toBSONDoc(opts.Sort))
	}
	if opts.Limit > 0 {
		findOptions.SetLimit(opts.Limit)
	}
	if opts.Skip > 0 {
		findOptions.SetSkip(opts.Skip)
	}
	cursor, err := s.collection(databaseName, collectionName).Find(ctx, toBSONDoc(opts.Filter), findOptions)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (s *Store) Aggregate(ctx context.Context, databaseName, collectionName string, pipeline []document.Document) ([]document.Document, error) {
	stages := make(mongo.Pipeline, 0, len(pipeline))
	for _, stage := range pipeline {
		stages = append(stages, toBSONDoc(stage))
	}
	cursor, err := s.collection(databaseName, collectionName).Aggregate(ctx, stages)
	if err != nil {
		return nil, err
	}
	return drain(ctx, cursor)
}

func (s *Store) InsertOne(ctx context.Context, databaseName, collectionName string, doc document.Document) (store.InsertOneResult, error) {
	result, err := s.collection(databaseName, collectionName).InsertOne(ctx, toBSONDoc(doc))
	if err != nil {
		return store.InsertOneResult{}, err
	}
	return store.InsertOneResult{Acknowledged: true, InsertedID: fromBSON(result.InsertedID)}, nil
}

func (s *Store) InsertMany(ctx context.Context, databaseName, collectionName string, docs []document.Document) (store.InsertManyResult, error) {
	if len(docs) == 0 {
		return store.InsertManyResult{}, fmt.Errorf("documents must be a non-empty list")
	}
	payload := make([]any, len(docs))
	for i, doc := range docs {
		payload[i] = toBSONDoc(doc)
	}
	result, err := s.collection(databaseName, collectionName).InsertMany(ctx, payload)
	if err != nil {
		return store.InsertManyResult{}, err
	}
	return store.InsertManyResult{Acknowledged: true, InsertedIDs: fromBSONArray(result.InsertedIDs)}, nil
}

func (s *Store) UpdateOne(ctx context.Context, databaseName, collectionName string, filter, update document.Document, upsert bool) (store.UpdateResult, error) {
	result, err := s.collection(databaseName, collectionName).UpdateOne(ctx, toBSONDoc(filter), toBSONDoc(update), options.Update().SetUpsert(upsert))
	return updateResult(result, err)
}

func (s *Store) UpdateMany(ctx context.Context, databaseName, collectionName string, filter, update document.Document, upsert bool) (store.UpdateResult, error) {
	result, err := s.collection(databaseName, collectionName).UpdateMany(ctx, toBSONDoc(filter), toBSONDoc(update), options.Update().SetUpsert(upsert))
	return updateResult(result, err)
}

func (s *Store) DeleteOne(ctx context.Context, databaseName, collectionName string, filter document.Document) (store.DeleteResult, error) {
	result, err := s.collection(databaseName, collectionName).DeleteOne(ctx, toBSONDoc(filter))
	return deleteResult(result, err)
}

func (s *Store) DeleteMany(ctx context.Context, databaseName, collectionName string, filter document.Document) (store.DeleteResult, error) {
	result, err := s.collection(databaseName, collectionName).DeleteMany(ctx, toBSONDoc(filter))
	return deleteResult(result, err)
}

func (s *Store) Count(ctx context.Context, databaseName, collectionName string, filter document.Document) (int64, error) {
	return s.collection(databaseName, collectionName).CountDocuments(ctx, toBSONDoc(filter))
}

func (s *Store) collection(databaseName, collectionName string) *mongo.Collection {
	return s.client.Database(databaseName).Collection(collectionName)
}

func drain(ctx context.Context, cursor *mongo.Cursor) ([]document.Document, error) {
	var raw []bson.D
	if err := cursor.All(ctx, &raw); err != nil {
		return nil, err
	}
	return fromBSONDocs(raw), nil
}

func updateResult(result *mongo.UpdateResult, err error) (store.UpdateResult, error) {
	if err != nil {
		return store.UpdateResult{}, err
	}
	return store.UpdateResult{
		Acknowledged:  true,
		MatchedCount:  result.MatchedCount,
		ModifiedCount: result.ModifiedCount,
		UpsertedID:    fromBSON(result.UpsertedID),
	}, nil
}

func deleteResult(result *mongo.DeleteResult, err error) (store.DeleteResult, error) {
	if err != nil {
		return store.DeleteResult{}, err
	}
	return store.DeleteResult{Acknowledged: true, DeletedCount: result.DeletedCount}, nil
}
