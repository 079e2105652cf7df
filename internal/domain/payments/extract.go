package payments

import (
	"math"
	"regexp"
	"strconv"

	"github.com/coduxa/coduxa-api/internal/pkg/xendit"
)

// Top-up invoices are issued with external_id "topup-<userID>-<epochMillis>",
// so the user survives in the callback even when metadata is stripped.
var (
	externalIDPattern  = regexp.MustCompile(`^topup-(.+)-(\d+)$`)
	descriptionPattern = regexp.MustCompile(`(\d+)\s*credits`)
)

// userIDStrategy derives the paying user from a callback, reporting whether
// it succeeded. Strategies run in declaration order; first match wins.
type userIDStrategy func(cb *xendit.InvoiceCallback) (string, bool)

// creditsStrategy derives the purchased credit amount from a callback.
type creditsStrategy func(cb *xendit.InvoiceCallback) (int, bool)

func userFromMetadata(cb *xendit.InvoiceCallback) (string, bool) {
	if cb.Metadata != nil && cb.Metadata.UserID != "" {
		return cb.Metadata.UserID, true
	}
	return "", false
}

func userFromExternalID(cb *xendit.InvoiceCallback) (string, bool) {
	m := externalIDPattern.FindStringSubmatch(cb.ExternalID)
	if m == nil {
		return "", false
	}
	return m[1], true
}

func creditsFromMetadata(cb *xendit.InvoiceCallback) (int, bool) {
	if cb.Metadata != nil && int(cb.Metadata.Credits) > 0 {
		return int(cb.Metadata.Credits), true
	}
	return 0, false
}

func creditsFromDescription(cb *xendit.InvoiceCallback) (int, bool) {
	m := descriptionPattern.FindStringSubmatch(cb.Description)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// creditsFromAmount converts the paid amount at a fixed conversion rate.
// Last resort when neither metadata nor description carry the count.
func creditsFromAmount(rate float64) creditsStrategy {
	return func(cb *xendit.InvoiceCallback) (int, bool) {
		if rate <= 0 || cb.Amount <= 0 {
			return 0, false
		}
		n := int(math.Floor(cb.Amount / rate))
		if n <= 0 {
			return 0, false
		}
		return n, true
	}
}

// Extraction resolves the paying user and credit amount from callbacks
// through ordered fallback chains.
type Extraction struct {
	userStrategies   []userIDStrategy
	creditStrategies []creditsStrategy
}

// NewExtraction builds the extraction chains with the given fallback
// amount-to-credit conversion rate.
func NewExtraction(conversionRate float64) *Extraction {
	return &Extraction{
		userStrategies: []userIDStrategy{
			userFromMetadata,
			userFromExternalID,
		},
		creditStrategies: []creditsStrategy{
			creditsFromMetadata,
			creditsFromDescription,
			creditsFromAmount(conversionRate),
		},
	}
}

// Resolve derives (userID, credits) from a callback.
// Returns ErrUnresolvablePayload when no strategy yields a user or the
// resolved credits are not positive.
func (e *Extraction) Resolve(cb *xendit.InvoiceCallback) (string, int, error) {
	var userID string
	for _, strategy := range e.userStrategies {
		if id, ok := strategy(cb); ok {
			userID = id
			break
		}
	}
	if userID == "" {
		return "", 0, ErrUnresolvablePayload
	}

	var credits int
	for _, strategy := range e.creditStrategies {
		if n, ok := strategy(cb); ok {
			credits = n
			break
		}
	}
	if credits <= 0 {
		return "", 0, ErrUnresolvablePayload
	}

	return userID, credits, nil
}
