package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/nl2query"
	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/store"
	"github.com/docmesh/docmesh/internal/store/memory"
)

// countingExecutor records every store call and can be told to fail or panic.
type countingExecutor struct {
	*memory.Store
	calls    int
	failWith error
	panicMsg string
	lastFind store.FindOptions
}

func (c *countingExecutor) hit() error {
	c.calls++
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.failWith
}

func (c *countingExecutor) Find(ctx context.Context, db, coll string, opts store.FindOptions) ([]document.Document, error) {
	if err := c.hit(); err != nil {
		return nil, err
	}
	c.lastFind = opts
	return c.Store.Find(ctx, db, coll, opts)
}

func (c *countingExecutor) Count(ctx context.Context, db, coll string, filter document.Document) (int64, error) {
	if err := c.hit(); err != nil {
		return 0, err
	}
	return c.Store.Count(ctx, db, coll, filter)
}

func (c *countingExecutor) InsertOne(ctx context.Context, db, coll string, doc document.Document) (store.InsertOneResult, error) {
	if err := c.hit(); err != nil {
		return store.InsertOneResult{}, err
	}
	return c.Store.InsertOne(ctx, db, coll, doc)
}

func mustDoc(t *testing.T, raw string) document.Document {
	t.Helper()
	doc, err := document.ParseDocument([]byte(raw))
	if err != nil {
		t.Fatalf("ParseDocument(%s) error = %v", raw, err)
	}
	return doc
}

func fixture(t *testing.T) *countingExecutor {
	t.Helper()
	s := memory.New()
	err := s.Seed("d", "c",
		mustDoc(t, `{"_id": 1, "name": "Ann", "age": 25}`),
		mustDoc(t, `{"_id": 2, "name": "Bob", "age": 35}`),
		mustDoc(t, `{"_id": 3, "name": "Cid", "age": 42}`),
		mustDoc(t, `{"_id": 4, "name": "Dee", "age": 31}`),
	)
	if err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	return &countingExecutor{Store: s}
}

func descriptor(t *testing.T, op string, params string) nl2query.Descriptor {
	t.Helper()
	return nl2query.Descriptor{Database: "d", Collection: "c", Operation: nl2query.Operation(op), Parameters: mustDoc(t, params)}
}

func TestDispatchCount(t *testing.T) {
	exec := fixture(t)
	got, err := New(exec, nil).Dispatch(context.Background(), descriptor(t, "count", `{"filter": {"age": {"$gt": 30}}}`), nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if diff := cmp.Diff(CountResult{Count: 3}, got); diff != "" {
		t.Fatalf("Dispatch() mismatch (-want +got):\n%s", diff)
	}
	body, _ := json.Marshal(got)
	if string(body) != `{"count":3}` {
		t.Fatalf("json = %s", body)
	}
}

func TestDispatchValidationSkipsStore(t *testing.T) {
	tests := []struct {
		name string
		desc nl2query.Descriptor
		want string
	}{
		{name: "unsupported", desc: nl2query.Descriptor{Database: "d", Collection: "c", Operation: "frobnicate"}, want: "Unsupported operation: frobnicate"},
		{name: "missing collection", desc: nl2query.Descriptor{Database: "d", Operation: "count"}, want: "Missing required query components"},
		{name: "missing operation", desc: nl2query.Descriptor{Database: "d", Collection: "c"}, want: "Missing required query components"},
		{name: "model error", desc: nl2query.Descriptor{Error: "cannot help"}, want: "cannot help"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exec := fixture(t)
			_, err := New(exec, nil).Dispatch(context.Background(), tt.desc, nil)
			if err == nil || err.Error() != tt.want {
				t.Fatalf("Dispatch() error = %v, want %q", err, tt.want)
			}
			if outcome.KindOf(err) != outcome.KindValidation {
				t.Fatalf("KindOf() = %q, want validation", outcome.KindOf(err))
			}
			if exec.calls != 0 {
				t.Fatalf("store calls = %d, want 0", exec.calls)
			}
		})
	}
}

func TestDispatchFindCoercesParameters(t *testing.T) {
	exec := fixture(t)
	got, err := New(exec, nil).Dispatch(context.Background(),
		descriptor(t, "find", `{"filter": {"age": {"$gt": 30}}, "sort": [["age", -1]], "limit": 2.0, "skip": 0, "projection": {"name": 1}}`), nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	want := DocumentsResult{
		Result: []any{
			document.Document{{Key: "_id", Value: "3"}, {Key: "name", Value: "Cid"}},
			document.Document{{Key: "_id", Value: "2"}, {Key: "name", Value: "Bob"}},
		},
		Count: 2,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Dispatch() mismatch (-want +got):\n%s", diff)
	}
	if exec.lastFind.Limit != 2 || exec.lastFind.Skip != 0 {
		t.Fatalf("FindOptions = %+v", exec.lastFind)
	}
}

func TestSortParamForms(t *testing.T) {
	tests := []struct {
		params string
		want   document.Document
	}{
		{`{"sort": {"age": -1}}`, document.Document{{Key: "age", Value: int64(-1)}}},
		{`{"sort": "name"}`, document.Document{{Key: "name", Value: int64(1)}}},
		{`{"sort": ["age", -1]}`, document.Document{{Key: "age", Value: int64(-1)}}},
		{`{"sort": [["age", "desc"], ["name", 1]]}`, document.Document{{Key: "age", Value: int64(-1)}, {Key: "name", Value: int64(1)}}},
		{`{}`, nil},
	}
	for _, tt := range tests {
		got, err := sortParam(mustDoc(t, tt.params))
		if err != nil {
			t.Fatalf("sortParam(%s) error = %v", tt.params, err)
		}
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Fatalf("sortParam(%s) mismatch (-want +got):\n%s", tt.params, diff)
		}
	}
	if _, err := sortParam(mustDoc(t, `{"sort": 5}`)); err == nil {
		t.Fatalf("sortParam(5) error = nil")
	}
}

func TestDispatchBadParameterIsExecutionError(t *testing.T) {
	exec := fixture(t)
	_, err := New(exec, nil).Dispatch(context.Background(), descriptor(t, "find", `{"limit": "ten"}`), nil)
	if outcome.KindOf(err) != outcome.KindExecution || err.Error() != `Error executing query: parameter "limit" must be an integer, got string` {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if exec.calls != 0 {
		t.Fatalf("store calls = %d, want 0", exec.calls)
	}
}

func TestDispatchStoreErrorAndPanic(t *testing.T) {
	exec := fixture(t)
	exec.failWith = errors.New("connection reset")
	_, err := New(exec, nil).Dispatch(context.Background(), descriptor(t, "count", `{}`), nil)
	if err == nil || err.Error() != "Error executing query: connection reset" {
		t.Fatalf("Dispatch() error = %v", err)
	}

	exec = fixture(t)
	exec.panicMsg = "cursor exploded"
	got, err := New(exec, nil).Dispatch(context.Background(), descriptor(t, "count", `{}`), nil)
	if got != nil || err == nil || err.Error() != "Error executing query: cursor exploded" {
		t.Fatalf("Dispatch() = %v, %v", got, err)
	}
}

func TestDispatchInsertOneNormalizesID(t *testing.T) {
	exec := fixture(t)
	got, err := New(exec, nil).Dispatch(context.Background(), descriptor(t, "insert_one", `{"document": {"name": "Eve"}}`), nil)
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	res, ok := got.(store.InsertOneResult)
	if !ok {
		t.Fatalf("Dispatch() = %T, want store.InsertOneResult", got)
	}
	id, ok := res.InsertedID.(string)
	if !ok || len(id) != 24 || !res.Acknowledged {
		t.Fatalf("InsertOneResult = %+v, want hex id", res)
	}
}

func TestDispatchWriteOperations(t *testing.T) {
	ctx := context.Background()
	exec := fixture(t)
	d := New(exec, nil)

	many, err := d.Dispatch(ctx, descriptor(t, "insert_many", `{"documents": [{"_id": 10}, {"_id": 11}]}`), nil)
	if err != nil {
		t.Fatalf("insert_many error = %v", err)
	}
	if diff := cmp.Diff(store.InsertManyResult{Acknowledged: true, InsertedIDs: []any{int64(10), int64(11)}}, many); diff != "" {
		t.Fatalf("insert_many mismatch (-want +got):\n%s", diff)
	}

	upd, err := d.Dispatch(ctx, descriptor(t, "update_many", `{"filter": {"age": {"$gt": 30}}, "update": {"$set": {"senior": true}}}`), nil)
	if err != nil {
		t.Fatalf("update_many error = %v", err)
	}
	if diff := cmp.Diff(store.UpdateResult{Acknowledged: true, MatchedCount: 3, ModifiedCount: 3}, upd); diff != "" {
		t.Fatalf("update_many mismatch (-want +got):\n%s", diff)
	}

	ups, err := d.Dispatch(ctx, descriptor(t, "update_one", `{"filter": {"name": "Zed"}, "update": {"$set": {"age": 1}}, "upsert": true}`), nil)
	if err != nil {
		t.Fatalf("update_one error = %v", err)
	}
	if id, ok := ups.(store.UpdateResult).UpsertedID.(string); !ok || len(id) != 24 {
		t.Fatalf("upserted id = %#v, want hex string", ups.(store.UpdateResult).UpsertedID)
	}

	del, err := d.Dispatch(ctx, descriptor(t, "delete_many", `{"filter": {"senior": true}}`), nil)
	if err != nil {
		t.Fatalf("delete_many error = %v", err)
	}
	if diff := cmp.Diff(store.DeleteResult{Acknowledged: true, DeletedCount: 3}, del); diff != "" {
		t.Fatalf("delete_many mismatch (-want +got):\n%s", diff)
	}

	agg, err := d.Dispatch(ctx, descriptor(t, "aggregate", `{"pipeline": [{"$match": {"_id": {"$gte": 10}}}, {"$count": "n"}]}`), nil)
	if err != nil {
		t.Fatalf("aggregate error = %v", err)
	}
	want := DocumentsResult{Result: []any{document.Document{{Key: "n", Value: int64(2)}}}, Count: 1}
	if diff := cmp.Diff(want, agg); diff != "" {
		t.Fatalf("aggregate mismatch (-want +got):\n%s", diff)
	}
}

type fakeCatalog map[string]bool

func (f fakeCatalog) Has(db, coll string) bool { return f[db+"."+coll] }

func TestDispatchUnknownCollectionStillRuns(t *testing.T) {
	exec := fixture(t)
	got, err := New(exec, nil).Dispatch(context.Background(),
		nl2query.Descriptor{Database: "d", Collection: "ghost", Operation: nl2query.OpCount}, fakeCatalog{"d.c": true})
	if err != nil {
		t.Fatalf("Dispatch() error = %v", err)
	}
	if diff := cmp.Diff(CountResult{Count: 0}, got); diff != "" {
		t.Fatalf("Dispatch() mismatch (-want +got):\n%s", diff)
	}
	if exec.calls != 1 {
		t.Fatalf("store calls = %d, want 1", exec.calls)
	}
}
