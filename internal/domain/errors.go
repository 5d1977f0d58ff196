package domain

import (
	"errors"
	"fmt"
)

// ErrorKind classifies pipeline failures
type ErrorKind string

const (
	KindNotFound   ErrorKind = "NOT_FOUND"   // identifier unresolvable
	KindTransient  ErrorKind = "TRANSIENT"   // network/service failure, safe to retry
	KindFormat     ErrorKind = "FORMAT"      // response shape unexpected
	KindEmptyInput ErrorKind = "EMPTY_INPUT" // alignment input empty after normalization
	KindEmptyGraph ErrorKind = "EMPTY_GRAPH" // no interaction edges survived filtering
)

// Error is the typed error carried through the pipeline
type Error struct {
	Kind    ErrorKind
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the sentinel for this error's kind.
// Sentinels carry no message, so errors.Is(err, ErrFormat) matches any FORMAT error.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Message == "" && t.Err == nil && t.Kind == e.Kind
}

// Sentinels for errors.Is checks
var (
	ErrNotFound   = &Error{Kind: KindNotFound}
	ErrTransient  = &Error{Kind: KindTransient}
	ErrFormat     = &Error{Kind: KindFormat}
	ErrEmptyInput = &Error{Kind: KindEmptyInput}
	ErrEmptyGraph = &Error{Kind: KindEmptyGraph}
)

// NewNotFound creates a NOT_FOUND error for an identifier
func NewNotFound(identifier string) error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf("identifier %q not found", identifier)}
}

// NewTransient creates a TRANSIENT error wrapping the underlying failure
func NewTransient(message string, err error) error {
	return &Error{Kind: KindTransient, Message: message, Err: err}
}

// NewFormatError creates a FORMAT error
func NewFormatError(message string) error {
	return &Error{Kind: KindFormat, Message: message}
}

// WrapFormat creates a FORMAT error with a cause
func WrapFormat(message string, err error) error {
	return &Error{Kind: KindFormat, Message: message, Err: err}
}

// NewEmptyInput creates an EMPTY_INPUT error naming the empty side
func NewEmptyInput(which string) error {
	return &Error{Kind: KindEmptyInput, Message: which + " sequence is empty"}
}

// NewEmptyGraph creates an EMPTY_GRAPH error
func NewEmptyGraph(minScore int) error {
	return &Error{Kind: KindEmptyGraph, Message: fmt.Sprintf("no interactions with score >= %d", minScore)}
}

// KindOf returns the kind of the first domain error in err's chain, or "" if none
func KindOf(err error) ErrorKind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return ""
}

// UserMessage returns an actionable message for rendering err to a user
func UserMessage(err error) string {
	switch KindOf(err) {
	case KindNotFound:
		return "The identifier could not be resolved. Check the accession and try again."
	case KindTransient:
		return "The remote service is unavailable right now. Please retry in a moment."
	case KindFormat:
		return "The data was not in the expected format. Check the identifier or the input format."
	case KindEmptyInput:
		return "Both sequences must contain at least one residue."
	case KindEmptyGraph:
		return "No interaction data above the score threshold."
	default:
		return "Unexpected error."
	}
}
