// Package errors provides error handling for the job substrate.
//
// This package re-exports github.com/cockroachdb/errors, providing:
//   - Stack traces for debugging failed job runs
//   - Error wrapping and context
//   - Details and hints that survive wrapping
//
// Usage:
//
//	// Wrap with context
//	if err := scan(ctx); err != nil {
//	    return errors.Wrap(err, "failed to scan open reports")
//	}
//
//	// Check sentinels
//	if errors.Is(err, errors.ErrNotImplemented) {
//	    // action exists but has no executor yet
//	}
//
// For full documentation see: https://pkg.go.dev/github.com/cockroachdb/errors
package errors

import (
	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New          = crdb.New
	Newf         = crdb.Newf
	Wrap         = crdb.Wrap
	Wrapf        = crdb.Wrapf
	WithStack    = crdb.WithStack
	WithMessage  = crdb.WithMessage
	WithMessagef = crdb.WithMessagef
)

// Messages and details
var (
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetail  = crdb.WithDetail
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is            = crdb.Is
	IsAny         = crdb.IsAny
	As            = crdb.As
	Unwrap        = crdb.Unwrap
	UnwrapAll     = crdb.UnwrapAll
	GetAllHints   = crdb.GetAllHints
	GetAllDetails = crdb.GetAllDetails
	FlattenHints  = crdb.FlattenHints
)

// GetStack returns the reportable stack trace attached to err, if any.
var GetStack = crdb.GetReportableStackTrace

// Sentinel errors shared across packages.
// Wrap these with errors.Wrap() to add context while preserving the type.
var (
	// ErrNotFound indicates the requested row or object does not exist
	ErrNotFound = New("not found")

	// ErrInvalidRequest indicates malformed input (bad enum value, bad JSON, bad config)
	ErrInvalidRequest = New("invalid request")

	// ErrNotImplemented marks a known variant that has no implementation yet.
	// Callers use it to tell "handled, nothing to do" apart from "not yet supported".
	ErrNotImplemented = New("not implemented")

	// ErrUnsupported indicates an operation the target type cannot perform
	ErrUnsupported = New("unsupported")

	// ErrAtCapacity indicates a bounded resource pool has no free slot
	ErrAtCapacity = New("at capacity")

	// ErrInvalidCron indicates a cron expression that failed to parse
	ErrInvalidCron = New("invalid cron expression")
)

// IsNotFoundError checks if an error is or wraps ErrNotFound.
func IsNotFoundError(err error) bool {
	return err != nil && Is(err, ErrNotFound)
}

// IsInvalidRequestError checks if an error is or wraps ErrInvalidRequest
func IsInvalidRequestError(err error) bool {
	return err != nil && Is(err, ErrInvalidRequest)
}

// IsNotImplementedError checks if an error is or wraps ErrNotImplemented
func IsNotImplementedError(err error) bool {
	return err != nil && Is(err, ErrNotImplemented)
}

// NewNotFoundError creates a not-found error with a formatted message
func NewNotFoundError(format string, args ...interface{}) error {
	return Wrap(ErrNotFound, Newf(format, args...).Error())
}

// NewInvalidRequestError creates an invalid-request error with a formatted message
func NewInvalidRequestError(format string, args ...interface{}) error {
	return Wrap(ErrInvalidRequest, Newf(format, args...).Error())
}

// NewNotImplementedError creates a not-implemented error with a formatted message
func NewNotImplementedError(format string, args ...interface{}) error {
	return Wrap(ErrNotImplemented, Newf(format, args...).Error())
}

// NewUnsupportedError creates an unsupported-operation error with a formatted message
func NewUnsupportedError(format string, args ...interface{}) error {
	return Wrap(ErrUnsupported, Newf(format, args...).Error())
}
