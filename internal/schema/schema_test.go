package schema

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store/memory"
)

type failingReader struct {
	*memory.Store
}

func (failingReader) ListCollections(context.Context, string) ([]string, error) {
	return nil, errors.New("not authorized")
}

func fixtureStore(t *testing.T) *memory.Store {
	t.Helper()
	s := memory.New()
	s.CreateCollection("admin", "system.version")
	id := document.NewObjectID()
	err := s.Seed("shop", "customers", document.Document{
		{Key: "_id", Value: id},
		{Key: "name", Value: "Ann"},
		{Key: "age", Value: int64(31)},
		{Key: "score", Value: 4.5},
		{Key: "vip", Value: true},
		{Key: "tags", Value: []any{"a"}},
		{Key: "address", Value: document.Document{{Key: "city", Value: "Oslo"}}},
		{Key: "note", Value: nil},
	})
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	s.CreateCollection("shop", "empty")
	if err := s.Seed("library", "books", document.Document{{Key: "_id", Value: int64(7)}, {Key: "title", Value: "Dune"}}); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return s
}

func TestBuildCapturesStructureAndTypes(t *testing.T) {
	snapshot, err := Build(context.Background(), fixtureStore(t))
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if diff := cmp.Diff([]string{"shop", "library"}, snapshot.DatabaseNames()); diff != "" {
		t.Fatalf("DatabaseNames() mismatch (-want +got):\n%s", diff)
	}
	shop, ok := snapshot.Database("shop")
	if !ok {
		t.Fatalf("Database(shop) not found")
	}
	if diff := cmp.Diff([]string{"customers", "empty"}, shop.CollectionNames()); diff != "" {
		t.Fatalf("CollectionNames() mismatch (-want +got):\n%s", diff)
	}

	customers, _ := shop.Collection("customers")
	wantTypes := document.Document{
		{Key: "_id", Value: "objectId"},
		{Key: "name", Value: "string"},
		{Key: "age", Value: "int"},
		{Key: "score", Value: "float"},
		{Key: "vip", Value: "bool"},
		{Key: "tags", Value: "array"},
		{Key: "address", Value: "document"},
		{Key: "note", Value: "null"},
	}
	if diff := cmp.Diff(wantTypes, customers.FieldTypes); diff != "" {
		t.Fatalf("FieldTypes mismatch (-want +got):\n%s", diff)
	}
	id, _ := customers.Sample.Get("_id")
	if _, isString := id.(string); !isString {
		t.Fatalf("Sample _id = %#v, want normalized string", id)
	}

	empty, _ := shop.Collection("empty")
	if len(empty.FieldTypes) != 0 || empty.Sample != nil {
		t.Fatalf("empty collection info = %+v, want no types and no sample", empty)
	}
	if got := snapshot.CollectionCount(); got != 3 {
		t.Fatalf("CollectionCount() = %d, want 3", got)
	}
	if !snapshot.Has("library", "books") || snapshot.Has("library", "films") {
		t.Fatalf("Has() answered wrongly")
	}
}

func TestBuildWrapsReaderErrors(t *testing.T) {
	_, err := Build(context.Background(), failingReader{fixtureStore(t)})
	if err == nil {
		t.Fatalf("Build() error = nil, want error")
	}
}

func TestSnapshotJSONKeepsOrder(t *testing.T) {
	s := memory.New()
	_ = s.Seed("library", "books", document.Document{{Key: "_id", Value: int64(7)}, {Key: "title", Value: "Dune"}})
	s.CreateCollection("library", "authors")

	snapshot, err := Build(context.Background(), s)
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	body, err := json.Marshal(snapshot)
	if err != nil {
		t.Fatalf("json.Marshal() error = %v", err)
	}
	want := `{"databases":{"library":{"collections":{"books":{"schema":{"_id":"int","title":"string"},"sample":{"_id":"7","title":"Dune"}},"authors":{"schema":{},"sample":null}}}}}`
	if string(body) != want {
		t.Fatalf("json.Marshal() = %s\nwant %s", body, want)
	}
}

func TestListing(t *testing.T) {
	snapshot := &Snapshot{Databases: []DatabaseInfo{
		{Name: "shop", Collections: []CollectionInfo{{Name: "orders"}, {Name: "customers"}}},
		{Name: "library"},
	}}
	want := document.Document{
		{Key: "shop", Value: []any{"orders", "customers"}},
		{Key: "library", Value: []any{}},
	}
	if diff := cmp.Diff(want, snapshot.Listing()); diff != "" {
		t.Fatalf("Listing() mismatch (-want +got):\n%s", diff)
	}
}
