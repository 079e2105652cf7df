package credits

import "errors"

var (
	// ErrInsufficientCredits is returned when user doesn't have enough credits
	ErrInsufficientCredits = errors.New("insufficient credits")

	// ErrInvalidAmount is returned when amount is <= 0
	ErrInvalidAmount = errors.New("invalid amount: must be greater than 0")

	// ErrNoBalance is returned by reads when no balance row exists for the user.
	// Callers that want read-as-zero semantics must map it explicitly; it is
	// kept distinct so the reconciler's fallback path can tell "no row" apart
	// from a failed read.
	ErrNoBalance = errors.New("no balance row")

	ErrInternal = errors.New("internal error")
)
