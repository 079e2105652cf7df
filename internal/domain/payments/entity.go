package payments

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/pkg/pgutil"
)

// Status represents payment status
type Status string

const (
	StatusPending Status = "pending"
	StatusPaid    Status = "paid"
	StatusExpired Status = "expired"
	StatusFailed  Status = "failed"
)

// Payment is a persisted gateway event, kept as an audit record.
// Rows are written once after a successful credit and never mutated.
type Payment struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	GatewayID   sql.NullString `db:"gateway_id" json:"gateway_id,omitempty"`
	ExternalID  string         `db:"external_id" json:"external_id"`
	UserID      string         `db:"user_id" json:"user_id"`
	Amount      float64        `db:"amount" json:"amount"`
	Currency    string         `db:"currency" json:"currency"`
	Credits     int            `db:"credits" json:"credits"`
	Description string         `db:"description" json:"description"`
	Status      Status         `db:"status" json:"status"`
	PackTitle   sql.NullString `db:"pack_title" json:"pack_title,omitempty"`
	Metadata    pgutil.JSONRaw `db:"metadata" json:"metadata,omitempty"`
	PaidAt      time.Time      `db:"paid_at" json:"paid_at"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// CreditPack is a purchasable credit bundle shown on the top-up page
type CreditPack struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Credits int     `json:"credits"`
	Amount  float64 `json:"amount"`
}

// Packs lists the purchasable bundles. Amounts are in the gateway's
// minor-unit-free currency value.
var Packs = []CreditPack{
	{ID: "starter", Title: "Starter Pack", Credits: 10, Amount: 15000},
	{ID: "popular", Title: "Popular Pack", Credits: 40, Amount: 50000},
	{ID: "pro", Title: "Pro Pack", Credits: 100, Amount: 100000},
}

// PackByID returns the pack with the given id, or nil
func PackByID(id string) *CreditPack {
	for i := range Packs {
		if Packs[i].ID == id {
			return &Packs[i]
		}
	}
	return nil
}
