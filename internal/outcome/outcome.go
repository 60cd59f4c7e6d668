// Package outcome defines the result of one pipeline run and the typed errors
// every pipeline stage reports.
package outcome

import (
	"errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	KindModel         Kind = "model"
	KindParse         Kind = "parse"
	KindValidation    Kind = "validation"
	KindExecution     Kind = "execution"
	KindConfiguration Kind = "configuration"
	KindInternal      Kind = "internal"
)

// Error is a pipeline failure. Message is what the caller sees; Err keeps the
// underlying cause for logging.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap formats the message as "<prefix>: <err>".
func Wrap(kind Kind, prefix string, err error) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf("%s: %v", prefix, err), Err: err}
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var typed *Error
	if errors.As(err, &typed) {
		return typed.Kind
	}
	return KindInternal
}

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Outcome is either a success carrying data (and optionally the descriptor the
// query was interpreted as) or an error carrying a message.
type Outcome struct {
	Status    string `json:"status"`
	Data      any    `json:"data,omitempty"`
	Query     any    `json:"query,omitempty"`
	Message   string `json:"message,omitempty"`
	ErrorKind Kind   `json:"error_kind,omitempty"`
}

func Success(data, query any) Outcome {
	return Outcome{Status: StatusSuccess, Data: data, Query: query}
}

// Failure converts any error into an error outcome. Errors that are not an
// *Error are reported as internal.
func Failure(err error) Outcome {
	var typed *Error
	if errors.As(err, &typed) {
		return Outcome{Status: StatusError, Message: typed.Message, ErrorKind: typed.Kind}
	}
	return Outcome{Status: StatusError, Message: err.Error(), ErrorKind: KindInternal}
}

func (o Outcome) OK() bool {
	return o.Status == StatusSuccess
}

// Err returns the outcome's failure as an *Error, or nil on success.
func (o Outcome) Err() *Error {
	if o.OK() {
		return nil
	}
	return &Error{Kind: o.ErrorKind, Message: o.Message}
}
