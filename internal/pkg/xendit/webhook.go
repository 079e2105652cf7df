package xendit

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Invoice callback statuses
const (
	StatusPaid    = "PAID"
	StatusExpired = "EXPIRED"
	StatusPending = "PENDING"
)

// FlexInt tolerates both JSON numbers and numeric strings.
// Gateway metadata is merchant-supplied, so "credits" arrives in either shape.
type FlexInt int

func (f *FlexInt) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	// Accept "40.0" style values from clients that serialized a float.
	// Anything non-numeric reads as absent rather than failing the whole
	// payload; the credit extraction chain has other sources to try.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = FlexInt(int(v))
	return nil
}

// CallbackMetadata is the merchant-supplied metadata echoed back by the gateway.
// Every field is optional.
type CallbackMetadata struct {
	UserID    string  `json:"user_id"`
	Credits   FlexInt `json:"credits"`
	PackTitle string  `json:"pack_title"`
}

// InvoiceCallback represents an invoice webhook payload.
// The field set is fixed by the gateway contract; everything except status
// may be absent.
type InvoiceCallback struct {
	ID          string            `json:"id"`
	ExternalID  string            `json:"external_id"`
	Status      string            `json:"status"`
	Amount      float64           `json:"amount"`
	Currency    string            `json:"currency"`
	Description string            `json:"description"`
	PaidAt      string            `json:"paid_at"`
	Metadata    *CallbackMetadata `json:"metadata"`
}

// ParseInvoiceCallback decodes a webhook body into a callback payload
func ParseInvoiceCallback(body []byte) (*InvoiceCallback, error) {
	var cb InvoiceCallback
	if err := json.Unmarshal(body, &cb); err != nil {
		return nil, fmt.Errorf("invalid callback payload: %w", err)
	}
	if cb.Status == "" {
		return nil, fmt.Errorf("callback payload missing status")
	}
	return &cb, nil
}

// VerifyCallbackToken validates the x-callback-token header against the
// configured webhook verification token. Returns false when either is empty.
func VerifyCallbackToken(given, expected string) bool {
	if given == "" || expected == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(expected)) == 1
}
