package nl2query

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/outcome"
)

func TestParseResponse(t *testing.T) {
	want := document.Document{{Key: "a", Value: int64(1)}}
	tests := []struct {
		name string
		raw  string
	}{
		{name: "fenced", raw: "```json\n{\"a\":1}\n```"},
		{name: "bare fence", raw: "```\n{\"a\":1}\n```"},
		{name: "prose around", raw: `here is the json: {"a":1} thanks`},
		{name: "whitespace", raw: "  \n{\"a\": 1}\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseResponse(tt.raw)
			if err != nil {
				t.Fatalf("ParseResponse() error = %v", err)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("ParseResponse() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseResponseFailures(t *testing.T) {
	for _, raw := range []string{"not json at all", "", "{broken", "[1, 2]", `first {"a":1} and then {"b":2}`} {
		_, err := ParseResponse(raw)
		if err == nil {
			t.Fatalf("ParseResponse(%q) error = nil, want error", raw)
		}
		var typed *outcome.Error
		if !errors.As(err, &typed) || typed.Kind != outcome.KindParse || typed.Message != "No valid JSON found in response" {
			t.Fatalf("ParseResponse(%q) error = %#v", raw, err)
		}
	}
}

func TestParseResponseKeepsOrderAndObjectIDs(t *testing.T) {
	raw := `Sure!
` + "```json" + `
{"database": "shop", "collection": "orders", "operation": "find",
 "parameters": {"filter": {"_id": {"$oid": "65a1b2c3d4e5f60718293a4b"}}, "limit": 5}}
` + "```"
	got, err := ParseResponse(raw)
	if err != nil {
		t.Fatalf("ParseResponse() error = %v", err)
	}
	if diff := cmp.Diff([]string{"database", "collection", "operation", "parameters"}, got.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}
	params, _ := got.Get("parameters")
	filter, _ := params.(document.Document).Get("filter")
	id, _ := filter.(document.Document).Get("_id")
	if _, ok := id.(document.ObjectID); !ok {
		t.Fatalf("filter _id = %#v, want ObjectID", id)
	}
}

func TestDescriptorFromDocument(t *testing.T) {
	doc, _ := ParseResponse(`{"database": "shop", "collection": "orders", "operation": "count", "parameters": {"filter": {"status": "open"}}}`)
	got, err := DescriptorFromDocument(doc)
	if err != nil {
		t.Fatalf("DescriptorFromDocument() error = %v", err)
	}
	if got.Database != "shop" || got.Collection != "orders" || got.Operation != OpCount {
		t.Fatalf("DescriptorFromDocument() = %+v", got)
	}
	if _, ok := got.Parameters.Get("filter"); !ok {
		t.Fatalf("Parameters = %v, want filter", got.Parameters)
	}
}

func TestDescriptorFromDocumentEdgeCases(t *testing.T) {
	doc, _ := ParseResponse(`{"database": 7, "collection": "orders", "operation": "find"}`)
	got, err := DescriptorFromDocument(doc)
	if err != nil {
		t.Fatalf("DescriptorFromDocument() error = %v", err)
	}
	if got.Database != "" || got.Parameters == nil {
		t.Fatalf("DescriptorFromDocument() = %+v, want empty database and empty parameters", got)
	}

	doc, _ = ParseResponse(`{"database": "shop", "collection": "orders", "operation": "find", "parameters": [1]}`)
	_, err = DescriptorFromDocument(doc)
	if outcome.KindOf(err) != outcome.KindValidation || !strings.Contains(err.Error(), "parameters must be an object") {
		t.Fatalf("DescriptorFromDocument() error = %v, want validation error", err)
	}

	doc, _ = ParseResponse(`{"error": "I cannot answer that"}`)
	got, err = DescriptorFromDocument(doc)
	if err != nil || got.Error != "I cannot answer that" {
		t.Fatalf("DescriptorFromDocument() = %+v, %v; want model error carried", got, err)
	}
}

func TestDescriptorJSON(t *testing.T) {
	id, _ := document.ObjectIDFromHex("65a1b2c3d4e5f60718293a4b")
	d := Descriptor{
		Database:   "shop",
		Collection: "orders",
		Operation:  OpFind,
		Parameters: document.Document{{Key: "filter", Value: document.Document{{Key: "customer", Value: id}}}},
	}
	body, err := d.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	want := `{"database":"shop","collection":"orders","operation":"find","parameters":{"filter":{"customer":"65a1b2c3d4e5f60718293a4b"}}}`
	if string(body) != want {
		t.Fatalf("MarshalJSON() = %s", body)
	}
}

func TestOperationValid(t *testing.T) {
	if !OpDeleteMany.Valid() || Operation("frobnicate").Valid() {
		t.Fatalf("Valid() answered wrongly")
	}
}
