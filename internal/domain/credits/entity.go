package credits

import "time"

// TxType defines supported credit transaction types.
type TxType string

const (
	TxTypePurchase   TxType = "purchase"
	TxTypeUsage      TxType = "usage"
	TxTypeAdminGrant TxType = "admin_grant"
)

// TxMeta represents optional metadata attached to a credit transaction.
type TxMeta struct {
	RelatedEntityType *string
	RelatedEntityID   *string
	Description       string
}

// Pagination controls simple list pagination.
type Pagination struct {
	Limit  int
	Offset int
}

// SearchFilters provides admin-facing transaction filtering.
type SearchFilters struct {
	UserID            *string
	TxType            *string
	DateFrom          *time.Time
	DateTo            *time.Time
	RelatedEntityType *string
	RelatedEntityID   *string
	Limit             int
	Offset            int
}

// Balance is a user_credits row.
// At most one row exists per user; the row is created lazily on the first
// increment, and a missing row reads as a balance of zero.
type Balance struct {
	UserID    string    `db:"user_id"`
	Credits   int       `db:"credits"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Transaction is a ledger row.
type Transaction struct {
	ID                string    `db:"id" json:"id"`
	UserID            string    `db:"user_id" json:"user_id"`
	AmountDelta       int       `db:"amount_delta" json:"amount_delta"`
	TxType            string    `db:"tx_type" json:"tx_type"`
	RelatedEntityType *string   `db:"related_entity_type" json:"related_entity_type,omitempty"`
	RelatedEntityID   *string   `db:"related_entity_id" json:"related_entity_id,omitempty"`
	Description       string    `db:"description" json:"description"`
	CreatedAt         time.Time `db:"created_at" json:"created_at"`
}
