//go:build integration

package mongo

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store"
)

func TestStoreRoundTripAgainstMongo(t *testing.T) {
	uri := strings.TrimSpace(os.Getenv("DOCMESH_TEST_MONGO_URI"))
	if uri == "" {
		t.Skip("DOCMESH_TEST_MONGO_URI is not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	s, err := Connect(ctx, Config{URI: uri, ConnectTimeout: 10 * time.Second, AppName: "docmesh-it"})
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	defer func() { _ = s.Close(context.Background()) }()

	dbName := fmt.Sprintf("docmesh_it_%d", time.Now().UnixNano())
	defer func() { _ = s.client.Database(dbName).Drop(context.Background()) }()

	docs := []document.Document{
		{{Key: "name", Value: "Ann"}, {Key: "age", Value: int64(25)}},
		{{Key: "name", Value: "Bob"}, {Key: "age", Value: int64(35)}},
		{{Key: "name", Value: "Cid"}, {Key: "age", Value: int64(42)}},
		{{Key: "name", Value: "Dee"}, {Key: "age", Value: int64(31)}},
	}
	inserted, err := s.InsertMany(ctx, dbName, "users", docs)
	if err != nil {
		t.Fatalf("InsertMany() error = %v", err)
	}
	if len(inserted.InsertedIDs) != 4 {
		t.Fatalf("InsertMany() ids = %d, want 4", len(inserted.InsertedIDs))
	}
	if _, ok := inserted.InsertedIDs[0].(document.ObjectID); !ok {
		t.Fatalf("InsertMany() id type = %T, want document.ObjectID", inserted.InsertedIDs[0])
	}

	over30 := document.Document{{Key: "age", Value: document.Document{{Key: "$gt", Value: int64(30)}}}}
	count, err := s.Count(ctx, dbName, "users", over30)
	if err != nil {
		t.Fatalf("Count() error = %v", err)
	}
	if count != 3 {
		t.Fatalf("Count() = %d, want 3", count)
	}

	found, err := s.Find(ctx, dbName, "users", store.FindOptions{
		Filter:     over30,
		Sort:       document.Document{{Key: "age", Value: int64(-1)}},
		Limit:      1,
		Projection: document.Document{{Key: "_id", Value: int64(0)}, {Key: "name", Value: int64(1)}},
	})
	if err != nil {
		t.Fatalf("Find() error = %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("Find() len = %d, want 1", len(found))
	}
	if name, _ := found[0].Get("name"); name != "Cid" {
		t.Fatalf("Find() name = %v, want Cid", name)
	}

	updated, err := s.UpdateMany(ctx, dbName, "users", over30, document.Document{{Key: "$set", Value: document.Document{{Key: "vip", Value: true}}}}, false)
	if err != nil {
		t.Fatalf("UpdateMany() error = %v", err)
	}
	if updated.ModifiedCount != 3 {
		t.Fatalf("UpdateMany().ModifiedCount = %d, want 3", updated.ModifiedCount)
	}

	dbs, err := s.ListDatabases(ctx)
	if err != nil {
		t.Fatalf("ListDatabases() error = %v", err)
	}
	for _, name := range dbs {
		if store.IsSystemDatabase(name) {
			t.Fatalf("ListDatabases() included system database %q", name)
		}
	}

	sample, ok, err := s.SampleOne(ctx, dbName, "users")
	if err != nil || !ok {
		t.Fatalf("SampleOne() = %v, %v, %v", sample, ok, err)
	}
	if _, ok, err := s.SampleOne(ctx, dbName, "missing"); err != nil || ok {
		t.Fatalf("SampleOne(missing) = %v, %v; want no document", ok, err)
	}

	deleted, err := s.DeleteMany(ctx, dbName, "users", document.Document{})
	if err != nil {
		t.Fatalf("DeleteMany() error = %v", err)
	}
	if deleted.DeletedCount != 4 {
		t.Fatalf("DeleteMany().DeletedCount = %d, want 4", deleted.DeletedCount)
	}
}
