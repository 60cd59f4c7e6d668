package memory

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
)

// lookupPath resolves a dotted path. Walking through an array of documents
// collects the sub-values of every element, the way MongoDB does.
func lookupPath(doc document.Document, path string) (any, bool) {
	return lookupValue(doc, strings.Split(path, "."))
}

func lookupValue(value any, parts []string) (any, bool) {
	if len(parts) == 0 {
		return value, true
	}
	switch typed := value.(type) {
	case document.Document:
		next, ok := typed.Get(parts[0])
		if !ok {
			return nil, false
		}
		return lookupValue(next, parts[1:])
	case []any:
		if index, err := strconv.Atoi(parts[0]); err == nil {
			if index < 0 || index >= len(typed) {
				return nil, false
			}
			return lookupValue(typed[index], parts[1:])
		}
		collected := make([]any, 0, len(typed))
		for _, item := range typed {
			if found, ok := lookupValue(item, parts); ok {
				collected = append(collected, found)
			}
		}
		if len(collected) == 0 {
			return nil, false
		}
		return collected, true
	default:
		return nil, false
	}
}

// setPath assigns a dotted path, creating intermediate documents as needed.
func setPath(doc *document.Document, path string, value any) {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 1 {
		doc.Set(path, value)
		return
	}
	current, _ := doc.Get(parts[0])
	nested, ok := current.(document.Document)
	if !ok {
		nested = document.Document{}
	}
	setPath(&nested, parts[1], value)
	doc.Set(parts[0], nested)
}

func unsetPath(doc *document.Document, path string) bool {
	parts := strings.SplitN(path, ".", 2)
	if len(parts) == 1 {
		return doc.Delete(path)
	}
	current, _ := doc.Get(parts[0])
	nested, ok := current.(document.Document)
	if !ok {
		return false
	}
	removed := unsetPath(&nested, parts[1])
	doc.Set(parts[0], nested)
	return removed
}

func toFloat(value any) (float64, bool) {
	switch typed := value.(type) {
	case int64:
		return float64(typed), true
	case float64:
		return typed, true
	case int:
		return float64(typed), true
	case int32:
		return float64(typed), true
	default:
		return 0, false
	}
}

func toInt(value any) (int64, bool) {
	switch typed := value.(type) {
	case int64:
		return typed, true
	case int:
		return int64(typed), true
	case int32:
		return int64(typed), true
	case float64:
		if typed == float64(int64(typed)) {
			return int64(typed), true
		}
	}
	return 0, false
}

func valuesEqual(a, b any) bool {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		return ok && af == bf
	}
	switch at := a.(type) {
	case document.Document:
		bt, ok := b.(document.Document)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if at[i].Key != bt[i].Key || !valuesEqual(at[i].Value, bt[i].Value) {
				return false
			}
		}
		return true
	case []any:
		bt, ok := b.([]any)
		if !ok || len(at) != len(bt) {
			return false
		}
		for i := range at {
			if !valuesEqual(at[i], bt[i]) {
				return false
			}
		}
		return true
	case nil:
		return b == nil
	case bool, string, document.ObjectID:
		return a == b
	default:
		return false
	}
}

// compareSameType orders two values of the same type bracket. ok is false when
// they are not comparable, in which case range operators do not match.
func compareSameType(a, b any) (int, bool) {
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		return compareFloats(af, bf), true
	}
	switch at := a.(type) {
	case string:
		bt, ok := b.(string)
		if !ok {
			return 0, false
		}
		return strings.Compare(at, bt), true
	case bool:
		bt, ok := b.(bool)
		if !ok {
			return 0, false
		}
		return compareBools(at, bt), true
	case document.ObjectID:
		bt, ok := b.(document.ObjectID)
		if !ok {
			return 0, false
		}
		return bytes.Compare(at[:], bt[:]), true
	case nil:
		if b == nil {
			return 0, true
		}
	}
	return 0, false
}

// compareForSort is a total order across types following the BSON comparison
// order: null, numbers, strings, documents, arrays, object ids, booleans.
func compareForSort(a, b any) int {
	ra, rb := typeRank(a), typeRank(b)
	if ra != rb {
		return ra - rb
	}
	if cmp, ok := compareSameType(a, b); ok {
		return cmp
	}
	switch at := a.(type) {
	case document.Document:
		bt := b.(document.Document)
		for i := 0; i < len(at) && i < len(bt); i++ {
			if c := strings.Compare(at[i].Key, bt[i].Key); c != 0 {
				return c
			}
			if c := compareForSort(at[i].Value, bt[i].Value); c != 0 {
				return c
			}
		}
		return len(at) - len(bt)
	case []any:
		bt := b.([]any)
		for i := 0; i < len(at) && i < len(bt); i++ {
			if c := compareForSort(at[i], bt[i]); c != 0 {
				return c
			}
		}
		return len(at) - len(bt)
	}
	return 0
}

func typeRank(value any) int {
	switch value.(type) {
	case nil:
		return 0
	case int64, float64, int, int32:
		return 1
	case string:
		return 2
	case document.Document:
		return 3
	case []any:
		return 4
	case document.ObjectID:
		return 5
	case bool:
		return 6
	default:
		return 7
	}
}

func compareFloats(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBools(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

func addNumbers(a, b any) (any, bool) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		return ai + bi, true
	}
	af, ok := toFloat(a)
	if !ok {
		return nil, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return nil, false
	}
	return af + bf, true
}
