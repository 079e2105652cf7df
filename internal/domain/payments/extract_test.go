package payments

import (
	"errors"
	"testing"

	"github.com/coduxa/coduxa-api/internal/pkg/xendit"
)

func TestResolveMetadataWins(t *testing.T) {
	// Highest-priority fields win regardless of external_id and description
	cb := &xendit.InvoiceCallback{
		Status:      xendit.StatusPaid,
		ExternalID:  "topup-someone-else-1700000000000",
		Description: "Mega Pack - 999 credits",
		Metadata:    &xendit.CallbackMetadata{UserID: "u1", Credits: 40},
	}

	userID, credits, err := NewExtraction(1000).Resolve(cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "u1" {
		t.Fatalf("expected u1, got %s", userID)
	}
	if credits != 40 {
		t.Fatalf("expected 40, got %d", credits)
	}
}

func TestResolveUserFromExternalID(t *testing.T) {
	cb := &xendit.InvoiceCallback{
		Status:     xendit.StatusPaid,
		ExternalID: "topup-u2-1700000000000",
		Metadata:   &xendit.CallbackMetadata{Credits: 10},
	}

	userID, _, err := NewExtraction(1000).Resolve(cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "u2" {
		t.Fatalf("expected u2, got %s", userID)
	}
}

func TestResolveUserFromExternalIDWithUUID(t *testing.T) {
	// UUIDs contain dashes; the middle capture must keep them all
	cb := &xendit.InvoiceCallback{
		Status:     xendit.StatusPaid,
		ExternalID: "topup-0b0aeca4-78de-4e3a-bc52-06cdcddd6a1e-1700000000000",
		Metadata:   &xendit.CallbackMetadata{Credits: 10},
	}

	userID, _, err := NewExtraction(1000).Resolve(cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if userID != "0b0aeca4-78de-4e3a-bc52-06cdcddd6a1e" {
		t.Fatalf("unexpected user id: %s", userID)
	}
}

func TestResolveCreditsFromDescription(t *testing.T) {
	cb := &xendit.InvoiceCallback{
		Status:      xendit.StatusPaid,
		ExternalID:  "topup-u3-1700000000000",
		Description: "Popular Pack - 40 credits",
	}

	_, credits, err := NewExtraction(1000).Resolve(cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if credits != 40 {
		t.Fatalf("expected 40, got %d", credits)
	}
}

func TestResolveCreditsFromAmount(t *testing.T) {
	cb := &xendit.InvoiceCallback{
		Status:     xendit.StatusPaid,
		ExternalID: "topup-u4-1700000000000",
		Amount:     50500,
	}

	_, credits, err := NewExtraction(1000).Resolve(cb)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// floor(50500 / 1000) = 50
	if credits != 50 {
		t.Fatalf("expected 50, got %d", credits)
	}
}

func TestResolveUnresolvableUser(t *testing.T) {
	cb := &xendit.InvoiceCallback{
		Status:     xendit.StatusPaid,
		ExternalID: "order-12345",
		Amount:     50000,
	}

	_, _, err := NewExtraction(1000).Resolve(cb)
	if !errors.Is(err, ErrUnresolvablePayload) {
		t.Fatalf("expected ErrUnresolvablePayload, got %v", err)
	}
}

func TestResolveZeroCredits(t *testing.T) {
	cb := &xendit.InvoiceCallback{
		Status:     xendit.StatusPaid,
		ExternalID: "topup-u5-1700000000000",
		Amount:     0,
	}

	_, _, err := NewExtraction(1000).Resolve(cb)
	if !errors.Is(err, ErrUnresolvablePayload) {
		t.Fatalf("expected ErrUnresolvablePayload, got %v", err)
	}
}
