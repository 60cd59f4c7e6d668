package memory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
)

// runPipeline supports the aggregation stages $match $sort $skip $limit
// $project $count $group and $unwind.
func runPipeline(docs []document.Document, pipeline []document.Document) ([]document.Document, error) {
	current := docs
	for i, stage := range pipeline {
		if len(stage) != 1 {
			return nil, fmt.Errorf("pipeline stage %d must have exactly one field", i)
		}
		name, spec := stage[0].Key, stage[0].Value
		var err error
		switch name {
		case "$match":
			filter, ok := spec.(document.Document)
			if !ok {
				return nil, fmt.Errorf("$match requires an object")
			}
			current, err = filterDocuments(current, filter)
		case "$sort":
			order, ok := spec.(document.Document)
			if !ok {
				return nil, fmt.Errorf("$sort requires an object")
			}
			err = sortDocuments(current, order)
		case "$skip":
			n, ok := toInt(spec)
			if !ok || n < 0 {
				return nil, fmt.Errorf("$skip requires a non-negative integer")
			}
			current = skipDocuments(current, n)
		case "$limit":
			n, ok := toInt(spec)
			if !ok || n <= 0 {
				return nil, fmt.Errorf("$limit requires a positive integer")
			}
			current = limitDocuments(current, n)
		case "$project":
			projection, ok := spec.(document.Document)
			if !ok {
				return nil, fmt.Errorf("$project requires an object")
			}
			current, err = projectDocuments(current, projection)
		case "$count":
			field, ok := spec.(string)
			if !ok || field == "" || strings.HasPrefix(field, "$") {
				return nil, fmt.Errorf("$count requires a nonempty field name")
			}
			if len(current) == 0 {
				current = []document.Document{}
			} else {
				current = []document.Document{{{Key: field, Value: int64(len(current))}}}
			}
		case "$group":
			groupSpec, ok := spec.(document.Document)
			if !ok {
				return nil, fmt.Errorf("$group requires an object")
			}
			current, err = groupDocuments(current, groupSpec)
		case "$unwind":
			current, err = unwindDocuments(current, spec)
		default:
			return nil, fmt.Errorf("unsupported pipeline stage %s", name)
		}
		if err != nil {
			return nil, err
		}
	}
	return current, nil
}

func filterDocuments(docs []document.Document, filter document.Document) ([]document.Document, error) {
	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		ok, err := matches(doc, filter)
		if err != nil {
			return nil, err
		}
		if ok {
			out = append(out, doc)
		}
	}
	return out, nil
}

func sortDocuments(docs []document.Document, order document.Document) error {
	directions := make([]int, len(order))
	for i, field := range order {
		dir, ok := toInt(field.Value)
		if !ok || (dir != 1 && dir != -1) {
			return fmt.Errorf("sort direction for %q must be 1 or -1", field.Key)
		}
		directions[i] = int(dir)
	}
	sort.SliceStable(docs, func(i, j int) bool {
		for k, field := range order {
			a, _ := lookupPath(docs[i], field.Key)
			b, _ := lookupPath(docs[j], field.Key)
			if c := compareForSort(a, b); c != 0 {
				return c*directions[k] < 0
			}
		}
		return false
	})
	return nil
}

func skipDocuments(docs []document.Document, n int64) []document.Document {
	if n >= int64(len(docs)) {
		return []document.Document{}
	}
	return docs[n:]
}

func limitDocuments(docs []document.Document, n int64) []document.Document {
	if n >= int64(len(docs)) {
		return docs
	}
	return docs[:n]
}

// projectDocuments applies an inclusion or exclusion projection on top-level
// and dotted fields. _id is kept unless excluded explicitly.
func projectDocuments(docs []document.Document, projection document.Document) ([]document.Document, error) {
	if len(projection) == 0 {
		return docs, nil
	}
	include := -1
	keepID := true
	for _, field := range projection {
		flag, ok := projectionFlag(field.Value)
		if !ok {
			return nil, fmt.Errorf("projection value for %q must be 0/1 or a boolean", field.Key)
		}
		if field.Key == "_id" {
			keepID = flag
			continue
		}
		mode := 0
		if flag {
			mode = 1
		}
		if include != -1 && include != mode {
			return nil, fmt.Errorf("cannot mix inclusion and exclusion in a projection")
		}
		include = mode
	}

	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		var projected document.Document
		if include == 1 {
			projected = document.Document{}
			if id, ok := doc.Get("_id"); ok && keepID {
				projected.Set("_id", id)
			}
			for _, field := range projection {
				if field.Key == "_id" {
					continue
				}
				if value, ok := lookupPath(doc, field.Key); ok {
					setPath(&projected, field.Key, value)
				}
			}
		} else {
			projected = doc.Clone()
			for _, field := range projection {
				if field.Key == "_id" {
					continue
				}
				unsetPath(&projected, field.Key)
			}
			if !keepID {
				projected.Delete("_id")
			}
		}
		out = append(out, projected)
	}
	return out, nil
}

func projectionFlag(value any) (bool, bool) {
	if b, ok := value.(bool); ok {
		return b, true
	}
	if n, ok := toFloat(value); ok {
		return n != 0, true
	}
	return false, false
}

type groupState struct {
	key    any
	result document.Document
	counts map[string]int64
}

func groupDocuments(docs []document.Document, spec document.Document) ([]document.Document, error) {
	keyExpr, ok := spec.Get("_id")
	if !ok {
		return nil, fmt.Errorf("a group specification must include an _id")
	}
	groups := []*groupState{}
	for _, doc := range docs {
		key := evalExpression(doc, keyExpr)
		var group *groupState
		for _, existing := range groups {
			if valuesEqual(existing.key, key) {
				group = existing
				break
			}
		}
		if group == nil {
			group = &groupState{key: key, result: document.Document{{Key: "_id", Value: key}}, counts: map[string]int64{}}
			groups = append(groups, group)
		}
		for _, field := range spec {
			if field.Key == "_id" {
				continue
			}
			if err := accumulate(group, doc, field.Key, field.Value); err != nil {
				return nil, err
			}
		}
	}
	out := make([]document.Document, 0, len(groups))
	for _, group := range groups {
		for _, field := range spec {
			acc, ok := field.Value.(document.Document)
			if !ok || len(acc) != 1 || acc[0].Key != "$avg" {
				continue
			}
			sum, _ := group.result.Get(field.Key)
			if n := group.counts[field.Key]; n > 0 {
				total, _ := toFloat(sum)
				group.result.Set(field.Key, total/float64(n))
			} else {
				group.result.Set(field.Key, nil)
			}
		}
		out = append(out, group.result)
	}
	return out, nil
}

func accumulate(group *groupState, doc document.Document, name string, spec any) error {
	acc, ok := spec.(document.Document)
	if !ok || len(acc) != 1 {
		return fmt.Errorf("the field %q must be an accumulator object", name)
	}
	op, expr := acc[0].Key, acc[0].Value
	value := evalExpression(doc, expr)
	current, exists := group.result.Get(name)
	switch op {
	case "$sum", "$avg":
		if !exists {
			current = int64(0)
		}
		if _, numeric := toFloat(value); numeric {
			next, _ := addNumbers(current, value)
			group.result.Set(name, next)
			group.counts[name]++
		} else {
			group.result.Set(name, current)
		}
	case "$min", "$max":
		if value == nil {
			if !exists {
				group.result.Set(name, nil)
			}
			return nil
		}
		if !exists || current == nil {
			group.result.Set(name, value)
			return nil
		}
		c := compareForSort(value, current)
		if (op == "$min" && c < 0) || (op == "$max" && c > 0) {
			group.result.Set(name, value)
		}
	case "$first":
		if !exists {
			group.result.Set(name, value)
		}
	case "$last":
		group.result.Set(name, value)
	case "$push", "$addToSet":
		items, _ := current.([]any)
		if op == "$addToSet" && equalsOrContains(items, value) {
			group.result.Set(name, items)
			return nil
		}
		group.result.Set(name, append(items, value))
	default:
		return fmt.Errorf("unknown group operator %s", op)
	}
	return nil
}

// evalExpression resolves "$field" references; documents are evaluated
// field-wise and anything else is a literal.
func evalExpression(doc document.Document, expr any) any {
	switch typed := expr.(type) {
	case string:
		if strings.HasPrefix(typed, "$") {
			value, _ := lookupPath(doc, strings.TrimPrefix(typed, "$"))
			return value
		}
		return typed
	case document.Document:
		out := make(document.Document, 0, len(typed))
		for _, field := range typed {
			out = append(out, document.Field{Key: field.Key, Value: evalExpression(doc, field.Value)})
		}
		return out
	default:
		return expr
	}
}

func unwindDocuments(docs []document.Document, spec any) ([]document.Document, error) {
	path, ok := spec.(string)
	if !ok {
		if options, isDoc := spec.(document.Document); isDoc {
			raw, _ := options.Get("path")
			path, ok = raw.(string)
		}
	}
	if !ok || !strings.HasPrefix(path, "$") {
		return nil, fmt.Errorf("$unwind requires a field path starting with '$'")
	}
	field := strings.TrimPrefix(path, "$")
	out := make([]document.Document, 0, len(docs))
	for _, doc := range docs {
		value, found := lookupPath(doc, field)
		items, isArray := value.([]any)
		if !found || value == nil || (isArray && len(items) == 0) {
			continue
		}
		if !isArray {
			out = append(out, doc)
			continue
		}
		for _, item := range items {
			unwound := doc.Clone()
			setPath(&unwound, field, document.CloneValue(item))
			out = append(out, unwound)
		}
	}
	return out, nil
}
