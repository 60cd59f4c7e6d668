// Package document defines the value model shared by every stage of the query
// pipeline.
//
// A value is always one of: nil, bool, int64, float64, string, ObjectID, []any
// (whose elements are values) or Document. Store adapters and the JSON decoder
// only ever produce these types, so consumers can switch over them exhaustively.
package document

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ObjectID is an opaque, driver-generated document identifier. It has the
// same layout as the driver's primitive.ObjectID.
type ObjectID [12]byte

// NewObjectID returns a fresh identifier from the driver's generator.
func NewObjectID() ObjectID {
	return ObjectID(primitive.NewObjectID())
}

func ObjectIDFromHex(value string) (ObjectID, error) {
	id, err := primitive.ObjectIDFromHex(value)
	if err != nil {
		return ObjectID{}, fmt.Errorf("invalid object id %q: %w", value, err)
	}
	return ObjectID(id), nil
}

func (id ObjectID) Hex() string {
	return hex.EncodeToString(id[:])
}

func (id ObjectID) String() string {
	return id.Hex()
}

func (id ObjectID) IsZero() bool {
	return id == ObjectID{}
}

func (id ObjectID) MarshalJSON() ([]byte, error) {
	return json.Marshal(id.Hex())
}

// Field is one key/value pair of a Document.
type Field struct {
	Key   string
	Value any
}

// Document is an ordered mapping from field name to value.
type Document []Field

func (d Document) Get(key string) (any, bool) {
	for _, field := range d {
		if field.Key == key {
			return field.Value, true
		}
	}
	return nil, false
}

// Set replaces the value of an existing key in place or appends a new field.
func (d *Document) Set(key string, value any) {
	for i := range *d {
		if (*d)[i].Key == key {
			(*d)[i].Value = value
			return
		}
	}
	*d = append(*d, Field{Key: key, Value: value})
}

func (d *Document) Delete(key string) bool {
	for i := range *d {
		if (*d)[i].Key == key {
			*d = append((*d)[:i], (*d)[i+1:]...)
			return true
		}
	}
	return false
}

func (d Document) Keys() []string {
	keys := make([]string, 0, len(d))
	for _, field := range d {
		keys = append(keys, field.Key)
	}
	return keys
}

func (d Document) Len() int {
	return len(d)
}

// Clone returns a deep copy; nested documents and sequences are not shared.
func (d Document) Clone() Document {
	if d == nil {
		return nil
	}
	out := make(Document, len(d))
	for i, field := range d {
		out[i] = Field{Key: field.Key, Value: CloneValue(field.Value)}
	}
	return out
}

func CloneValue(value any) any {
	switch typed := value.(type) {
	case Document:
		return typed.Clone()
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = CloneValue(item)
		}
		return out
	default:
		return value
	}
}

// MarshalJSON writes the fields in document order. A nil Document encodes as null.
func (d Document) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, field := range d {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(field.Key)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		value, err := json.Marshal(field.Value)
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", field.Key, err)
		}
		buf.Write(value)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// TypeTag names the variant of a value as reported in schema snapshots.
func TypeTag(value any) string {
	switch value.(type) {
	case nil:
		return "null"
	case bool:
		return "bool"
	case int64, int32, int:
		return "int"
	case float64, float32:
		return "float"
	case string:
		return "string"
	case ObjectID:
		return "objectId"
	case []any:
		return "array"
	case Document:
		return "document"
	default:
		return fmt.Sprintf("%T", value)
	}
}
