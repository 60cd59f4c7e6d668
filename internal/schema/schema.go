// Package schema captures which databases and collections exist and what one
// sample document of each collection looks like.
//
// Inference is deliberately shallow: field types come from the top-level keys
// of a single sampled document, so fields that only appear in other documents
// are invisible.
package schema

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/store"
)

type CollectionInfo struct {
	Name string
	// FieldTypes maps each top-level field of the sample to its type tag.
	FieldTypes document.Document
	// Sample is the normalized first document, nil for an empty collection.
	Sample document.Document
	// Samples is only set on exploration answers that asked for examples.
	Samples []any
}

func (c CollectionInfo) MarshalJSON() ([]byte, error) {
	fieldTypes := c.FieldTypes
	if fieldTypes == nil {
		fieldTypes = document.Document{}
	}
	out := document.Document{
		{Key: "schema", Value: fieldTypes},
		{Key: "sample", Value: c.Sample},
	}
	if c.Samples != nil {
		out = append(out, document.Field{Key: "samples", Value: c.Samples})
	}
	return json.Marshal(out)
}

type DatabaseInfo struct {
	Name        string
	Collections []CollectionInfo
}

func (d DatabaseInfo) CollectionNames() []string {
	names := make([]string, 0, len(d.Collections))
	for _, coll := range d.Collections {
		names = append(names, coll.Name)
	}
	return names
}

func (d DatabaseInfo) Collection(name string) (CollectionInfo, bool) {
	for _, coll := range d.Collections {
		if coll.Name == name {
			return coll, true
		}
	}
	return CollectionInfo{}, false
}

// Snapshot is immutable once built; rebuild it to observe later changes.
type Snapshot struct {
	Databases []DatabaseInfo
}

func (s *Snapshot) Database(name string) (DatabaseInfo, bool) {
	if s == nil {
		return DatabaseInfo{}, false
	}
	for _, db := range s.Databases {
		if db.Name == name {
			return db, true
		}
	}
	return DatabaseInfo{}, false
}

func (s *Snapshot) DatabaseNames() []string {
	if s == nil {
		return nil
	}
	names := make([]string, 0, len(s.Databases))
	for _, db := range s.Databases {
		names = append(names, db.Name)
	}
	return names
}

// Has reports whether the snapshot knows the database and collection.
func (s *Snapshot) Has(databaseName, collectionName string) bool {
	db, ok := s.Database(databaseName)
	if !ok {
		return false
	}
	_, ok = db.Collection(collectionName)
	return ok
}

func (s *Snapshot) CollectionCount() int {
	if s == nil {
		return 0
	}
	total := 0
	for _, db := range s.Databases {
		total += len(db.Collections)
	}
	return total
}

// Listing maps each database to its collection names, in snapshot order.
func (s *Snapshot) Listing() document.Document {
	out := document.Document{}
	if s == nil {
		return out
	}
	for _, db := range s.Databases {
		names := make([]any, 0, len(db.Collections))
		for _, name := range db.CollectionNames() {
			names = append(names, name)
		}
		out = append(out, document.Field{Key: db.Name, Value: names})
	}
	return out
}

// MarshalJSON renders {"databases": {db: {"collections": {coll: info}}}}.
func (s *Snapshot) MarshalJSON() ([]byte, error) {
	databases := document.Document{}
	if s != nil {
		for _, db := range s.Databases {
			collections := make(document.Document, 0, len(db.Collections))
			for _, coll := range db.Collections {
				collections = append(collections, document.Field{Key: coll.Name, Value: coll})
			}
			databases = append(databases, document.Field{Key: db.Name, Value: document.Document{{Key: "collections", Value: collections}}})
		}
	}
	return json.Marshal(document.Document{{Key: "databases", Value: databases}})
}

// Build lists every non-system database and samples each collection. It reads
// one document for the field types and one more for the stored sample.
func Build(ctx context.Context, reader store.SchemaReader) (*Snapshot, error) {
	databaseNames, err := reader.ListDatabases(ctx)
	if err != nil {
		return nil, fmt.Errorf("list databases: %w", err)
	}
	snapshot := &Snapshot{Databases: make([]DatabaseInfo, 0, len(databaseNames))}
	for _, databaseName := range databaseNames {
		if store.IsSystemDatabase(databaseName) {
			continue
		}
		collectionNames, err := reader.ListCollections(ctx, databaseName)
		if err != nil {
			return nil, fmt.Errorf("list collections of %s: %w", databaseName, err)
		}
		db := DatabaseInfo{Name: databaseName, Collections: make([]CollectionInfo, 0, len(collectionNames))}
		for _, collectionName := range collectionNames {
			info, err := describeCollection(ctx, reader, databaseName, collectionName)
			if err != nil {
				return nil, err
			}
			db.Collections = append(db.Collections, info)
		}
		snapshot.Databases = append(snapshot.Databases, db)
	}
	return snapshot, nil
}

func describeCollection(ctx context.Context, reader store.SchemaReader, databaseName, collectionName string) (CollectionInfo, error) {
	info := CollectionInfo{Name: collectionName, FieldTypes: document.Document{}}
	first, ok, err := reader.SampleOne(ctx, databaseName, collectionName)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("sample %s.%s: %w", databaseName, collectionName, err)
	}
	if ok {
		info.FieldTypes = FieldTypes(first)
	}
	samples, err := reader.SampleMany(ctx, databaseName, collectionName, 1)
	if err != nil {
		return CollectionInfo{}, fmt.Errorf("sample %s.%s: %w", databaseName, collectionName, err)
	}
	if len(samples) > 0 {
		info.Sample, _ = document.Normalize(samples[0]).(document.Document)
	}
	return info, nil
}

// FieldTypes maps the top-level keys of doc to their type tags.
func FieldTypes(doc document.Document) document.Document {
	out := make(document.Document, 0, len(doc))
	for _, field := range doc {
		out = append(out, document.Field{Key: field.Key, Value: document.TypeTag(field.Value)})
	}
	return out
}
