package payments

import "errors"

var (
	// ErrUnresolvablePayload is returned when neither the paying user nor a
	// positive credit amount can be derived from a callback
	ErrUnresolvablePayload = errors.New("cannot resolve user or credits from payload")

	// ErrCreditFailed is returned when the credit mutation failed through
	// both the atomic and the fallback paths
	ErrCreditFailed = errors.New("credit mutation failed")

	// ErrUnknownPack is returned when an invoice is requested for a pack id
	// that doesn't exist
	ErrUnknownPack = errors.New("unknown credit pack")
)
