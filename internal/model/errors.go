package model

import (
	"errors"
	"fmt"

	"github.com/rotisserie/eris"
)

// Error kinds. Match them with errors.Is; the cause stays reachable too.
var (
	ErrAuthFailure             = eris.New("auth failure")
	ErrClassifierUnavailable   = eris.New("classifier unavailable")
	ErrMappingGenerationFailed = eris.New("mapping generation failed")
	ErrPersistenceUnavailable  = eris.New("persistence unavailable")
)

// Error attaches a kind and tenant to an underlying failure.
type Error struct {
	Kind   error
	Tenant string
	Err    error
}

// NewError builds an *Error. A nil cause is allowed.
func NewError(kind error, tenant string, err error) *Error {
	return &Error{Kind: kind, Tenant: tenant, Err: err}
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Tenant != "" {
		msg = fmt.Sprintf("%s (tenant %s)", msg, e.Tenant)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// Retryable reports whether the caller may retry the same operation.
// A generation that validated to nothing is terminal for that attempt.
func (e *Error) Retryable() bool {
	return !errors.Is(e.Kind, ErrMappingGenerationFailed)
}

// KindOf returns the error kind in err's chain, or nil.
func KindOf(err error) error {
	for _, k := range []error{ErrAuthFailure, ErrClassifierUnavailable, ErrMappingGenerationFailed, ErrPersistenceUnavailable} {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// Code returns a stable snake_case name for err's kind, or "internal".
func Code(err error) string {
	switch KindOf(err) {
	case ErrAuthFailure:
		return "auth_failure"
	case ErrClassifierUnavailable:
		return "classifier_unavailable"
	case ErrMappingGenerationFailed:
		return "mapping_generation_failed"
	case ErrPersistenceUnavailable:
		return "persistence_unavailable"
	default:
		return "internal"
	}
}

// IsRetryable reports whether err may be retried. Errors without a kind are
// treated as retryable.
func IsRetryable(err error) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Retryable()
	}
	return true
}
