package services

import (
	"errors"
)

// Validation errors are rejected before any side effect
var (
	ErrValidation        = errors.New("validation failed")
	ErrInvalidCorrection = errors.New("invalid correction")
)

// Insufficient resource errors are rejected with no side effect
var (
	ErrInsufficientBalance       = errors.New("insufficient balance")
	ErrInsufficientFreeAllowance = errors.New("insufficient free allowance")
	ErrCapacityExceeded          = errors.New("requested shares exceed remaining capacity")
)

// Conflict errors; the state moved under the caller
var (
	ErrConcurrencyConflict  = errors.New("concurrency conflict, retry")
	ErrRoundNotOpen         = errors.New("round is not open")
	ErrInvalidTransition    = errors.New("invalid round status transition")
	ErrLedgerNotFinalized   = errors.New("round ledger is not finalized")
	ErrDrawWindowNotReached = errors.New("draw window has not opened yet")
	ErrDrawWindowExpired    = errors.New("draw window has expired, round is overdue")
)

// Draw computation errors leave the round in its prior state and raise an alert
var ErrDrawComputation = errors.New("draw computation failed")

// Lookup and authorization errors
var (
	ErrRoundNotFound         = errors.New("round not found")
	ErrParticipationNotFound = errors.New("participation not found")
	ErrUserNotFound          = errors.New("user not found")
	ErrDrawResultNotFound    = errors.New("draw result not found")
	ErrUnauthorized          = errors.New("operator is not authorized")
)

// ErrorKind is the coarse class of an error, used by transports to pick a response
type ErrorKind string

const (
	KindValidation           ErrorKind = "validation"
	KindInsufficientResource ErrorKind = "insufficient_resource"
	KindConflict             ErrorKind = "conflict"
	KindDrawComputation      ErrorKind = "draw_computation"
	KindNotFound             ErrorKind = "not_found"
	KindUnauthorized         ErrorKind = "unauthorized"
	KindInternal             ErrorKind = "internal"
)

// Classify maps any error to its ErrorKind
func Classify(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrValidation), errors.Is(err, ErrInvalidCorrection):
		return KindValidation
	case errors.Is(err, ErrInsufficientBalance),
		errors.Is(err, ErrInsufficientFreeAllowance),
		errors.Is(err, ErrCapacityExceeded):
		return KindInsufficientResource
	case errors.Is(err, ErrConcurrencyConflict),
		errors.Is(err, ErrRoundNotOpen),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrLedgerNotFinalized),
		errors.Is(err, ErrDrawWindowNotReached),
		errors.Is(err, ErrDrawWindowExpired):
		return KindConflict
	case errors.Is(err, ErrDrawComputation):
		return KindDrawComputation
	case errors.Is(err, ErrRoundNotFound),
		errors.Is(err, ErrParticipationNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrDrawResultNotFound):
		return KindNotFound
	case errors.Is(err, ErrUnauthorized):
		return KindUnauthorized
	}
	return KindInternal
}

// IsRetryable reports whether the caller may simply retry the same request
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrDrawWindowNotReached)
}
