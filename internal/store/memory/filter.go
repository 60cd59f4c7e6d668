package memory

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
)

// matches evaluates a MongoDB-style query filter. Supported: implicit equality
// (with array element matching), $eq $ne $gt $gte $lt $lte $in $nin $exists
// $regex $options $not $size, and the logical $and $or $nor.
func matches(doc document.Document, filter document.Document) (bool, error) {
	for _, field := range filter {
		switch field.Key {
		case "$and", "$or", "$nor":
			clauses, err := filterList(field.Key, field.Value)
			if err != nil {
				return false, err
			}
			ok, err := matchLogical(doc, field.Key, clauses)
			if err != nil || !ok {
				return false, err
			}
			continue
		}
		if strings.HasPrefix(field.Key, "$") {
			return false, fmt.Errorf("unknown top level operator: %s", field.Key)
		}
		actual, found := lookupPath(doc, field.Key)
		ok, err := matchCondition(actual, found, field.Value)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func filterList(op string, value any) ([]document.Document, error) {
	items, ok := value.([]any)
	if !ok || len(items) == 0 {
		return nil, fmt.Errorf("%s must be a nonempty array", op)
	}
	clauses := make([]document.Document, 0, len(items))
	for _, item := range items {
		clause, ok := item.(document.Document)
		if !ok {
			return nil, fmt.Errorf("%s entries must be objects", op)
		}
		clauses = append(clauses, clause)
	}
	return clauses, nil
}

func matchLogical(doc document.Document, op string, clauses []document.Document) (bool, error) {
	for _, clause := range clauses {
		ok, err := matches(doc, clause)
		if err != nil {
			return false, err
		}
		switch op {
		case "$and":
			if !ok {
				return false, nil
			}
		case "$or":
			if ok {
				return true, nil
			}
		case "$nor":
			if ok {
				return false, nil
			}
		}
	}
	return op != "$or", nil
}

func isOperatorDocument(value any) (document.Document, bool) {
	doc, ok := value.(document.Document)
	if !ok || len(doc) == 0 {
		return nil, false
	}
	return doc, strings.HasPrefix(doc[0].Key, "$")
}

func matchCondition(actual any, found bool, condition any) (bool, error) {
	ops, isOps := isOperatorDocument(condition)
	if !isOps {
		return found && equalsOrContains(actual, condition), nil
	}
	var regexOptions string
	if raw, ok := ops.Get("$options"); ok {
		regexOptions, _ = raw.(string)
	}
	for _, op := range ops {
		ok, err := matchOperator(actual, found, op.Key, op.Value, regexOptions)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

func matchOperator(actual any, found bool, op string, operand any, regexOptions string) (bool, error) {
	switch op {
	case "$eq":
		return equalsOrContains(actual, operand) || (!found && operand == nil), nil
	case "$ne":
		return !(equalsOrContains(actual, operand) || (!found && operand == nil)), nil
	case "$gt", "$gte", "$lt", "$lte":
		if !found {
			return false, nil
		}
		return anyCandidate(actual, func(candidate any) bool {
			cmp, ok := compareSameType(candidate, operand)
			if !ok {
				return false
			}
			switch op {
			case "$gt":
				return cmp > 0
			case "$gte":
				return cmp >= 0
			case "$lt":
				return cmp < 0
			default:
				return cmp <= 0
			}
		}), nil
	case "$in", "$nin":
		options, ok := operand.([]any)
		if !ok {
			return false, fmt.Errorf("%s needs an array", op)
		}
		in := false
		for _, option := range options {
			if equalsOrContains(actual, option) || (!found && option == nil) {
				in = true
				break
			}
		}
		if op == "$in" {
			return in, nil
		}
		return !in, nil
	case "$exists":
		want, ok := operand.(bool)
		if !ok {
			n, isNum := toFloat(operand)
			want, ok = n != 0, isNum
		}
		if !ok {
			return false, fmt.Errorf("$exists needs a boolean")
		}
		return found == want, nil
	case "$regex":
		pattern, ok := operand.(string)
		if !ok {
			return false, fmt.Errorf("$regex has to be a string")
		}
		re, err := compileRegex(pattern, regexOptions)
		if err != nil {
			return false, err
		}
		return found && anyCandidate(actual, func(candidate any) bool {
			text, ok := candidate.(string)
			return ok && re.MatchString(text)
		}), nil
	case "$options":
		return true, nil
	case "$not":
		ok, err := matchCondition(actual, found, operand)
		if err != nil {
			return false, err
		}
		return !ok, nil
	case "$size":
		want, ok := toInt(operand)
		if !ok {
			return false, fmt.Errorf("$size needs a number")
		}
		items, isArray := actual.([]any)
		return found && isArray && int64(len(items)) == want, nil
	default:
		return false, fmt.Errorf("unknown operator: %s", op)
	}
}

func compileRegex(pattern, options string) (*regexp.Regexp, error) {
	flags := ""
	for _, option := range options {
		switch option {
		case 'i', 'm', 's':
			flags += string(option)
		}
	}
	if flags != "" {
		pattern = "(?" + flags + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid regular expression: %w", err)
	}
	return re, nil
}

// equalsOrContains is equality against the value itself or, for arrays, any of
// its elements.
func equalsOrContains(actual, want any) bool {
	if valuesEqual(actual, want) {
		return true
	}
	if items, ok := actual.([]any); ok {
		for _, item := range items {
			if valuesEqual(item, want) {
				return true
			}
		}
	}
	return false
}

func anyCandidate(actual any, fn func(any) bool) bool {
	if items, ok := actual.([]any); ok {
		for _, item := range items {
			if fn(item) {
				return true
			}
		}
		return false
	}
	return fn(actual)
}
