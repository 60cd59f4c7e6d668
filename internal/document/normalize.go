package document

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Normalize makes a value safe for JSON transport: every ObjectID becomes its hex
// string and the value stored under an "_id" key is always stringified, whatever
// its type. Everything else keeps its shape. Normalize never fails and
// Normalize(Normalize(v)) equals Normalize(v).
func Normalize(value any) any {
	switch typed := value.(type) {
	case Document:
		if typed == nil {
			return typed
		}
		out := make(Document, 0, len(typed))
		for _, field := range typed {
			if field.Key == "_id" {
				out = append(out, Field{Key: field.Key, Value: Stringify(field.Value)})
				continue
			}
			out = append(out, Field{Key: field.Key, Value: Normalize(field.Value)})
		}
		return out
	case []Document:
		out := make([]any, len(typed))
		for i, doc := range typed {
			out[i] = Normalize(doc)
		}
		return out
	case []any:
		if typed == nil {
			return typed
		}
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = Normalize(item)
		}
		return out
	case ObjectID:
		return typed.Hex()
	default:
		return value
	}
}

// NormalizeDocuments normalizes a result set into a JSON-safe sequence.
func NormalizeDocuments(docs []Document) []any {
	out := make([]any, len(docs))
	for i, doc := range docs {
		out[i] = Normalize(doc)
	}
	return out
}

// Stringify renders any value as text. Strings are returned unchanged so the
// result is stable under repeated application.
func Stringify(value any) string {
	switch typed := value.(type) {
	case string:
		return typed
	case ObjectID:
		return typed.Hex()
	case nil:
		return "null"
	case bool:
		return strconv.FormatBool(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	case float64:
		return strconv.FormatFloat(typed, 'g', -1, 64)
	case Document, []any:
		encoded, err := json.Marshal(Normalize(typed))
		if err != nil {
			return fmt.Sprint(typed)
		}
		return string(encoded)
	default:
		return fmt.Sprint(typed)
	}
}
