package mongo

import (
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/docmesh/docmesh/internal/document"
)

// toBSON converts a pipeline value into the driver's representation.
func toBSON(value any) any {
	switch typed := value.(type) {
	case document.Document:
		return toBSONDoc(typed)
	case []any:
		out := make(bson.A, len(typed))
		for i, item := range typed {
			out[i] = toBSON(item)
		}
		return out
	case document.ObjectID:
		return primitive.ObjectID(typed)
	default:
		return value
	}
}

// toBSONDoc never returns nil so the driver always receives a document.
func toBSONDoc(doc document.Document) bson.D {
	out := make(bson.D, 0, len(doc))
	for _, field := range doc {
		out = append(out, bson.E{Key: field.Key, Value: toBSON(field.Value)})
	}
	return out
}

// fromBSON maps decoded driver values onto the closed document value set.
// BSON types without a counterpart are rendered as text.
func fromBSON(value any) any {
	switch typed := value.(type) {
	case nil, primitive.Null, primitive.Undefined:
		return nil
	case bool, string, int64, float64:
		return typed
	case int32:
		return int64(typed)
	case int:
		return int64(typed)
	case float32:
		return float64(typed)
	case primitive.ObjectID:
		return document.ObjectID(typed)
	case bson.D:
		return fromBSONDoc(typed)
	case bson.M:
		keys := make([]string, 0, len(typed))
		for key := range typed {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		out := make(document.Document, 0, len(keys))
		for _, key := range keys {
			out = append(out, document.Field{Key: key, Value: fromBSON(typed[key])})
		}
		return out
	case bson.A:
		return fromBSONArray(typed)
	case []any:
		return fromBSONArray(typed)
	case primitive.DateTime:
		return typed.Time().UTC().Format(time.RFC3339Nano)
	case time.Time:
		return typed.UTC().Format(time.RFC3339Nano)
	case primitive.Decimal128:
		return typed.String()
	case primitive.Binary:
		return base64.StdEncoding.EncodeToString(typed.Data)
	case []byte:
		return base64.StdEncoding.EncodeToString(typed)
	case primitive.Timestamp:
		return fmt.Sprintf("Timestamp(%d, %d)", typed.T, typed.I)
	case primitive.Regex:
		return fmt.Sprintf("/%s/%s", typed.Pattern, typed.Options)
	case primitive.Symbol:
		return string(typed)
	case primitive.JavaScript:
		return string(typed)
	case primitive.MinKey:
		return "MinKey"
	case primitive.MaxKey:
		return "MaxKey"
	default:
		return fmt.Sprint(typed)
	}
}

func fromBSONDoc(doc bson.D) document.Document {
	out := make(document.Document, 0, len(doc))
	for _, elem := range doc {
		out = append(out, document.Field{Key: elem.Key, Value: fromBSON(elem.Value)})
	}
	return out
}

func fromBSONArray(items []any) []any {
	out := make([]any, len(items))
	for i, item := range items {
		out[i] = fromBSON(item)
	}
	return out
}

func fromBSONDocs(docs []bson.D) []document.Document {
	out := make([]document.Document, len(docs))
	for i, doc := range docs {
		out[i] = fromBSONDoc(doc)
	}
	return out
}
