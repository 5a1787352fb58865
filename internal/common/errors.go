// Package common defines shared constants and sentinel errors used across
// the logbook server layers. Callers should use errors.Is to match these
// values and KindOf to turn them into a result envelope kind.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound    = errors.New("not found")
	ErrStaleState    = errors.New("row not in expected state")
	ErrAlreadySigned = errors.New("entry already has a signature")

	// Transport-level errors (identity boundary).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden for role")
	ErrInvalidToken   = errors.New("invalid token")
	ErrTokenExpired   = errors.New("token expired")

	// Workflow errors. Absence and lack of access share one error.
	ErrNotFoundOrUnauthorized = errors.New("entry not found or not accessible")
	ErrInvalidStateTransition = errors.New("invalid state transition")
	ErrValidation             = errors.New("validation error")
	ErrEmptyBulkSelection     = errors.New("no submitted entries in selection")
)

// ErrorKind is the machine-readable error class carried by a result envelope.
type ErrorKind string

const (
	KindNone                   ErrorKind = ""
	KindNotFoundOrUnauthorized ErrorKind = "NOT_FOUND_OR_UNAUTHORIZED"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindValidation             ErrorKind = "VALIDATION_ERROR"
	KindEmptyBulkSelection     ErrorKind = "EMPTY_BULK_SELECTION"
	KindForbidden              ErrorKind = "FORBIDDEN"
	KindInternal               ErrorKind = "INTERNAL"
)

// KindOf classifies err. Anything outside the workflow taxonomy is KindInternal.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrNotFoundOrUnauthorized):
		return KindNotFoundOrUnauthorized
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrValidation):
		return KindValidation
	case errors.Is(err, ErrEmptyBulkSelection):
		return KindEmptyBulkSelection
	case errors.Is(err, ErrForbidden), errors.Is(err, ErrorUnauthorized):
		return KindForbidden
	default:
		return KindInternal
	}
}

// IsDomain reports whether err belongs to the workflow taxonomy and should be
// returned to the caller inside an envelope rather than as a transport failure.
func IsDomain(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInternal
}
