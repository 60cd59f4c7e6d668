package nl2query

import (
	"regexp"
	"strings"

	"github.com/docmesh/docmesh/internal/document"
	"github.com/docmesh/docmesh/internal/outcome"
)

var bracedObject = regexp.MustCompile(`(?s)\{.*\}`)

// ParseResponse extracts the JSON object from a model answer. Code fences are
// stripped first; failing that, the widest {...} span of the raw text is tried.
func ParseResponse(raw string) (document.Document, error) {
	cleaned := strings.ReplaceAll(raw, "```json", "")
	cleaned = strings.ReplaceAll(cleaned, "```", "")
	if doc, err := document.ParseDocument([]byte(strings.TrimSpace(cleaned))); err == nil {
		return doc, nil
	}
	if match := bracedObject.FindString(raw); match != "" {
		if doc, err := document.ParseDocument([]byte(match)); err == nil {
			return doc, nil
		}
	}
	return nil, outcome.New(outcome.KindParse, "No valid JSON found in response")
}
