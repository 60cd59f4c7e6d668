package dispatch

import (
	"fmt"
	"math"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
)

// objectParam returns nil when the parameter is absent or null.
func objectParam(params document.Document, key string) (document.Document, error) {
	raw, ok := params.Get(key)
	if !ok || raw == nil {
		return nil, nil
	}
	doc, ok := raw.(document.Document)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be an object, got %s", key, document.TypeTag(raw))
	}
	return doc, nil
}

// filterParam defaults to the empty filter that matches everything.
func filterParam(params document.Document, key string) (document.Document, error) {
	doc, err := objectParam(params, key)
	if err != nil || doc != nil {
		return doc, err
	}
	return document.Document{}, nil
}

func objectListParam(params document.Document, key string) ([]document.Document, error) {
	raw, ok := params.Get(key)
	if !ok || raw == nil {
		return []document.Document{}, nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("parameter %q must be an array, got %s", key, document.TypeTag(raw))
	}
	out := make([]document.Document, 0, len(items))
	for i, item := range items {
		doc, ok := item.(document.Document)
		if !ok {
			return nil, fmt.Errorf("parameter %q element %d must be an object, got %s", key, i, document.TypeTag(item))
		}
		out = append(out, doc)
	}
	return out, nil
}

// countParam reads limit/skip. Absent, null and 0 all mean "not set".
func countParam(params document.Document, key string) (int64, error) {
	raw, ok := params.Get(key)
	if !ok || raw == nil {
		return 0, nil
	}
	var n int64
	switch typed := raw.(type) {
	case int64:
		n = typed
	case float64:
		if typed != math.Trunc(typed) || math.IsInf(typed, 0) {
			return 0, fmt.Errorf("parameter %q must be an integer, got %v", key, typed)
		}
		n = int64(typed)
	default:
		return 0, fmt.Errorf("parameter %q must be an integer, got %s", key, document.TypeTag(raw))
	}
	if n < 0 {
		return 0, fmt.Errorf("parameter %q must not be negative", key)
	}
	return n, nil
}

func boolParam(params document.Document, key string) (bool, error) {
	raw, ok := params.Get(key)
	if !ok || raw == nil {
		return false, nil
	}
	value, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q must be a boolean, got %s", key, document.TypeTag(raw))
	}
	return value, nil
}

// sortParam accepts {"field": dir, ...}, [["field", dir], ...], ["field", dir]
// or a bare "field" (ascending).
func sortParam(params document.Document) (document.Document, error) {
	raw, ok := params.Get("sort")
	if !ok || raw == nil {
		return nil, nil
	}
	switch typed := raw.(type) {
	case document.Document:
		return typed, nil
	case string:
		return document.Document{{Key: typed, Value: int64(1)}}, nil
	case []any:
		if len(typed) == 0 {
			return nil, nil
		}
		if field, isString := typed[0].(string); isString && len(typed) == 2 {
			if _, isPair := typed[1].([]any); !isPair {
				dir, err := direction(typed[1])
				if err != nil {
					return nil, err
				}
				return document.Document{{Key: field, Value: dir}}, nil
			}
		}
		out := make(document.Document, 0, len(typed))
		for _, item := range typed {
			switch entry := item.(type) {
			case string:
				out = append(out, document.Field{Key: entry, Value: int64(1)})
			case []any:
				field, isString := firstString(entry)
				if !isString || len(entry) != 2 {
					return nil, fmt.Errorf("sort entries must be [field, direction] pairs")
				}
				dir, err := direction(entry[1])
				if err != nil {
					return nil, err
				}
				out = append(out, document.Field{Key: field, Value: dir})
			default:
				return nil, fmt.Errorf("sort entries must be [field, direction] pairs")
			}
		}
		return out, nil
	default:
		return nil, fmt.Errorf("parameter \"sort\" must be an object or an array, got %s", document.TypeTag(raw))
	}
}

func direction(raw any) (int64, error) {
	switch typed := raw.(type) {
	case int64:
		if typed == 1 || typed == -1 {
			return typed, nil
		}
	case float64:
		if typed == 1 || typed == -1 {
			return int64(typed), nil
		}
	case string:
		switch strings.ToLower(typed) {
		case "asc", "ascending":
			return 1, nil
		case "desc", "descending":
			return -1, nil
		}
	}
	return 0, fmt.Errorf("sort direction must be 1 or -1, got %v", raw)
}

func firstString(items []any) (string, bool) {
	if len(items) == 0 {
		return "", false
	}
	value, ok := items[0].(string)
	return value, ok
}
