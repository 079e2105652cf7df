package admin

// GrantCreditsRequest for POST /admin/credits/grant
type GrantCreditsRequest struct {
	UserID string `json:"user_id" validate:"required,uuid"`
	Amount int    `json:"amount" validate:"required,min=1,max=100000"`
	Reason string `json:"reason" validate:"required,min=3,max=255"`
}

// SearchTransactionsRequest mirrors the ledger search filters as
// query parameters
type SearchTransactionsRequest struct {
	UserID string `json:"user_id"`
	TxType string `json:"tx_type"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
