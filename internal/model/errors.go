package model

import (
	"errors"
	"fmt"
)

// ErrorKind classifies ingestion failures
type ErrorKind string

const (
	KindConfigurationMissing ErrorKind = "CONFIGURATION_MISSING"
	KindSourceUnavailable    ErrorKind = "SOURCE_UNAVAILABLE"
	KindTranscriptionFailure ErrorKind = "TRANSCRIPTION_FAILURE"
	KindPersistenceFailure   ErrorKind = "PERSISTENCE_FAILURE"
	KindLookupFailure        ErrorKind = "LOOKUP_FAILURE"
)

// Sentinels for errors.Is matching on kind
var (
	ErrConfigurationMissing = &Error{Kind: KindConfigurationMissing}
	ErrSourceUnavailable    = &Error{Kind: KindSourceUnavailable}
	ErrTranscriptionFailure = &Error{Kind: KindTranscriptionFailure}
	ErrPersistenceFailure   = &Error{Kind: KindPersistenceFailure}
	ErrLookupFailure        = &Error{Kind: KindLookupFailure}
)

// Error is a kind-tagged failure with the operation that produced it.
type Error struct {
	Kind ErrorKind
	Op   string
	Err  error
}

// NewError wraps err with a kind and operation name
func NewError(kind ErrorKind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Errorf builds a kind-tagged error from a format string
func Errorf(kind ErrorKind, op, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Op: op, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	switch {
	case e.Op == "" && e.Err == nil:
		return string(e.Kind)
	case e.Op == "":
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	case e.Err == nil:
		return fmt.Sprintf("%s: %s", e.Kind, e.Op)
	default:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Op, e.Err)
	}
}

// Unwrap exposes the underlying cause for errors.Is / errors.As.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so sentinels compare by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}
