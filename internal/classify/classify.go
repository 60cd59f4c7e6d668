// Package classify routes a request by keyword before any model is involved.
package classify

import "strings"

type Category string

const (
	SchemaExploration Category = "schema_exploration"
	Insert            Category = "data_modification_insert"
	Update            Category = "data_modification_update"
	Delete            Category = "data_modification_delete"
	Query             Category = "query"
)

var rules = []struct {
	category Category
	keywords []string
}{
	{SchemaExploration, []string{"what collections", "what tables", "show collections", "show tables", "what fields", "what columns", "schema", "structure", "sample data"}},
	{Insert, []string{"add", "insert", "create", "put"}},
	{Update, []string{"update", "change", "modify", "set"}},
	{Delete, []string{"delete", "remove", "drop"}},
}

// Classify matches case-insensitive substrings, so "settings" counts as an
// update and "address" as an insert. First matching rule wins.
func Classify(text string) Category {
	lowered := strings.ToLower(text)
	for _, rule := range rules {
		for _, keyword := range rule.keywords {
			if strings.Contains(lowered, keyword) {
				return rule.category
			}
		}
	}
	return Query
}
