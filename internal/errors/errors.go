// Package errors defines typed errors with categories for user-friendly reporting.
// It provides a structured approach to error handling with machine-readable error kinds
// and human-friendly messages. This enables better error categorization, logging,
// and user experience by providing context-aware error information.
//
// The package supports wrapping underlying errors while maintaining error kind information,
// making it easier to handle different types of failures appropriately.
package errors

import (
	stderrors "errors"
	"fmt"
)

// Kind is a machine-readable error category.
type Kind string

const (
	// ConnectionFailed indicates the terminal session failed to start or the
	// CMP service failed to open. Fatal to the caller, never retried.
	ConnectionFailed Kind = "connection_failed"
	// Throttled indicates the service reported its rate limit for a request.
	Throttled Kind = "throttled"
	// ThrottleExhausted indicates a throttled request ran out of retries.
	ThrottleExhausted Kind = "throttle_exhausted"
	// NoResponse indicates no terminal response arrived within the attempt budget.
	NoResponse Kind = "no_response"
	// BadResponse indicates a response that could not be decoded or had an
	// unexpected shape.
	BadResponse Kind = "bad_response"
	// RequestFailed indicates the service rejected a request with a
	// non-throttling error message.
	RequestFailed Kind = "request_failed"
	// BatchTimeout indicates a multi-request batch exceeded its overall deadline.
	BatchTimeout Kind = "batch_timeout"
	// SchemaMismatch indicates table columns did not match in strict stacking.
	SchemaMismatch Kind = "schema_mismatch"
	// Usage indicates invalid caller input rejected before any network call.
	Usage Kind = "usage"
)

// E wraps an error with kind and human-friendly message.
type E struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *E) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *E) Unwrap() error { return e.Err }

func Wrap(kind Kind, msg string, err error) *E { return &E{Kind: kind, Message: msg, Err: err} }
func New(kind Kind, msg string) *E             { return &E{Kind: kind, Message: msg} }

// IsKind reports whether err (or anything it wraps) carries the given kind.
func IsKind(err error, kind Kind) bool {
	var e *E
	if stderrors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}
