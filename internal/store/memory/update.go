package memory

import (
	"fmt"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
)

// applyUpdate runs the update operators against a copy of doc and reports
// whether anything changed. Supported: $set $unset $inc $mul $push $addToSet
// $pull $rename.
func applyUpdate(doc document.Document, update document.Document) (document.Document, bool, error) {
	if len(update) == 0 {
		return nil, false, fmt.Errorf("update document must not be empty")
	}
	out := doc.Clone()
	for _, op := range update {
		if !strings.HasPrefix(op.Key, "$") {
			return nil, false, fmt.Errorf("update document requires atomic operators, got %q", op.Key)
		}
		fields, ok := op.Value.(document.Document)
		if !ok {
			return nil, false, fmt.Errorf("modifier %s expects an object", op.Key)
		}
		for _, field := range fields {
			if field.Key == "_id" && op.Key != "$inc" && op.Key != "$mul" {
				if current, exists := out.Get("_id"); exists && !valuesEqual(current, field.Value) {
					return nil, false, fmt.Errorf("performing an update on the path '_id' would modify the immutable field '_id'")
				}
			}
			if err := applyModifier(&out, op.Key, field.Key, field.Value); err != nil {
				return nil, false, err
			}
		}
	}
	return out, !valuesEqual(doc, out), nil
}

func applyModifier(doc *document.Document, op, path string, operand any) error {
	current, found := lookupPath(*doc, path)
	switch op {
	case "$set":
		setPath(doc, path, document.CloneValue(operand))
	case "$unset":
		unsetPath(doc, path)
	case "$inc", "$mul":
		if _, ok := toFloat(operand); !ok {
			return fmt.Errorf("cannot %s with non-numeric argument", strings.TrimPrefix(op, "$"))
		}
		if !found {
			if op == "$mul" {
				operand = zeroLike(operand)
			}
			setPath(doc, path, operand)
			return nil
		}
		var next any
		var ok bool
		if op == "$inc" {
			next, ok = addNumbers(current, operand)
		} else {
			next, ok = multiplyNumbers(current, operand)
		}
		if !ok {
			return fmt.Errorf("cannot apply %s to a value of non-numeric type %s", op, document.TypeTag(current))
		}
		setPath(doc, path, next)
	case "$push", "$addToSet":
		items, err := arrayAt(current, found, path)
		if err != nil {
			return err
		}
		values := []any{operand}
		if spec, ok := operand.(document.Document); ok {
			if each, ok := spec.Get("$each"); ok {
				list, ok := each.([]any)
				if !ok {
					return fmt.Errorf("$each requires an array")
				}
				values = list
			}
		}
		for _, value := range values {
			if op == "$addToSet" && equalsOrContains(items, value) {
				continue
			}
			items = append(items, document.CloneValue(value))
		}
		setPath(doc, path, items)
	case "$pull":
		if !found {
			return nil
		}
		items, err := arrayAt(current, found, path)
		if err != nil {
			return err
		}
		kept := make([]any, 0, len(items))
		for _, item := range items {
			remove, err := pullMatches(item, operand)
			if err != nil {
				return err
			}
			if !remove {
				kept = append(kept, item)
			}
		}
		setPath(doc, path, kept)
	case "$rename":
		target, ok := operand.(string)
		if !ok || target == "" {
			return fmt.Errorf("$rename target must be a nonempty string")
		}
		if !found {
			return nil
		}
		unsetPath(doc, path)
		setPath(doc, target, current)
	default:
		return fmt.Errorf("unknown modifier: %s", op)
	}
	return nil
}

func arrayAt(current any, found bool, path string) ([]any, error) {
	if !found || current == nil {
		return []any{}, nil
	}
	items, ok := current.([]any)
	if !ok {
		return nil, fmt.Errorf("the field '%s' must be an array but is of type %s", path, document.TypeTag(current))
	}
	return append([]any{}, items...), nil
}

func pullMatches(item, condition any) (bool, error) {
	if _, ok := isOperatorDocument(condition); ok {
		return matchCondition(item, true, condition)
	}
	if cond, ok := condition.(document.Document); ok {
		if doc, ok := item.(document.Document); ok {
			return matches(doc, cond)
		}
		return false, nil
	}
	return valuesEqual(item, condition), nil
}

func multiplyNumbers(a, b any) (any, bool) {
	ai, aInt := a.(int64)
	bi, bInt := b.(int64)
	if aInt && bInt {
		return ai * bi, true
	}
	af, ok := toFloat(a)
	if !ok {
		return nil, false
	}
	bf, ok := toFloat(b)
	if !ok {
		return nil, false
	}
	return af * bf, true
}

func zeroLike(value any) any {
	if _, ok := value.(int64); ok {
		return int64(0)
	}
	return float64(0)
}

// upsertSeed builds the base document for an upsert from the equality
// conditions of the filter.
func upsertSeed(filter document.Document) document.Document {
	seed := document.Document{}
	for _, field := range filter {
		if strings.HasPrefix(field.Key, "$") {
			continue
		}
		if ops, isOps := isOperatorDocument(field.Value); isOps {
			if eq, ok := ops.Get("$eq"); ok {
				setPath(&seed, field.Key, document.CloneValue(eq))
			}
			continue
		}
		setPath(&seed, field.Key, document.CloneValue(field.Value))
	}
	return seed
}
