package nl2query

import (
	"encoding/json"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/outcome"
)

type Operation string

const (
	OpFind       Operation = "find"
	OpAggregate  Operation = "aggregate"
	OpInsertOne  Operation = "insert_one"
	OpInsertMany Operation = "insert_many"
	OpUpdateOne  Operation = "update_one"
	OpUpdateMany Operation = "update_many"
	OpDeleteOne  Operation = "delete_one"
	OpDeleteMany Operation = "delete_many"
	OpCount      Operation = "count"
)

// Operations is the closed set the dispatcher executes.
var Operations = []Operation{OpFind, OpAggregate, OpInsertOne, OpInsertMany, OpUpdateOne, OpUpdateMany, OpDeleteOne, OpDeleteMany, OpCount}

func (o Operation) Valid() bool {
	for _, known := range Operations {
		if o == known {
			return true
		}
	}
	return false
}

// Descriptor is the structured operation a request was translated into.
// Error is set when the model answered with an error object instead.
type Descriptor struct {
	Database   string
	Collection string
	Operation  Operation
	Parameters document.Document
	Error      string
}

// DescriptorFromDocument reads a parsed model answer. Identifying fields that
// are not strings are treated as missing; the dispatcher reports them.
func DescriptorFromDocument(doc document.Document) (Descriptor, error) {
	if raw, ok := doc.Get("error"); ok {
		return Descriptor{Error: document.Stringify(raw)}, nil
	}
	d := Descriptor{
		Database:   stringField(doc, "database"),
		Collection: stringField(doc, "collection"),
		Operation:  Operation(stringField(doc, "operation")),
		Parameters: document.Document{},
	}
	raw, ok := doc.Get("parameters")
	if !ok || raw == nil {
		return d, nil
	}
	params, ok := raw.(document.Document)
	if !ok {
		return Descriptor{}, outcome.New(outcome.KindValidation, "Invalid query parameters: parameters must be an object")
	}
	d.Parameters = params
	return d, nil
}

func stringField(doc document.Document, key string) string {
	raw, _ := doc.Get(key)
	value, _ := raw.(string)
	return value
}

// Document renders the descriptor in its wire shape with normalized parameters.
func (d Descriptor) Document() document.Document {
	if d.Error != "" {
		return document.Document{{Key: "error", Value: d.Error}}
	}
	params, _ := document.Normalize(d.Parameters).(document.Document)
	if params == nil {
		params = document.Document{}
	}
	return document.Document{
		{Key: "database", Value: d.Database},
		{Key: "collection", Value: d.Collection},
		{Key: "operation", Value: string(d.Operation)},
		{Key: "parameters", Value: params},
	}
}

func (d Descriptor) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Document())
}
