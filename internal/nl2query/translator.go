// Package nl2query turns a natural-language request into an operation
// descriptor by prompting a language model and parsing its answer.
package nl2query

import (
	"context"
	"fmt"

	"github.com/docmesh/docmesh/internal/outcome"
	"github.com/docmesh/docmesh/internal/schema"
)

// Completer is a chat model that answers one system+user prompt pair.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

type Request struct {
	Text     string
	Snapshot *schema.Snapshot
}

type Result struct {
	Descriptor  Descriptor
	RawResponse string
}

type Translator interface {
	Translate(ctx context.Context, req Request) (Result, error)
}

type ModelTranslator struct {
	completer Completer
}

func NewModelTranslator(completer Completer) (*ModelTranslator, error) {
	if completer == nil {
		return nil, fmt.Errorf("completer is required")
	}
	return &ModelTranslator{completer: completer}, nil
}

// Translate returns *outcome.Error values: model failures as KindModel, answers
// without a JSON object as KindParse and malformed parameters as KindValidation.
// RawResponse is filled whenever the model answered.
func (t *ModelTranslator) Translate(ctx context.Context, req Request) (Result, error) {
	raw, err := t.completer.Complete(ctx, SystemPrompt, BuildPrompt(req.Text, req.Snapshot))
	if err != nil {
		return Result{}, outcome.Wrap(outcome.KindModel, "OpenAI API error", err)
	}
	result := Result{RawResponse: raw}
	doc, err := ParseResponse(raw)
	if err != nil {
		return result, err
	}
	descriptor, err := DescriptorFromDocument(doc)
	if err != nil {
		return result, err
	}
	result.Descriptor = descriptor
	return result, nil
}
