package activity

import (
	"time"

	"github.com/google/uuid"

	"github.com/coduxa/coduxa-api/internal/pkg/pgutil"
)

// Type enumerates activity log entry types
type Type string

const (
	TypeCreditPurchase   Type = "credit_purchase"
	TypeUserRegistration Type = "user_registration"
	TypeCreditUsage      Type = "credit_usage"
	TypeAdminAction      Type = "admin_action"
	TypeOther            Type = "other"
)

// Entry is an append-only activity log row
type Entry struct {
	ID          uuid.UUID      `db:"id" json:"id"`
	Type        Type           `db:"type" json:"type"`
	UserID      string         `db:"user_id" json:"user_id"`
	Amount      *int           `db:"amount" json:"amount,omitempty"`
	Description string         `db:"description" json:"description"`
	Metadata    pgutil.JSONRaw `db:"metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}
