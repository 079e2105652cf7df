package credits

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// TransactionMeta contains metadata for credit transactions
type TransactionMeta struct {
	RelatedEntityType string
	RelatedEntityID   string
	Description       string
}

// Service defines the credit ledger operations
type Service interface {
	// Balance returns the current credit balance for a user.
	// A user with no balance row reads as zero.
	Balance(ctx context.Context, userID uuid.UUID) (int, error)

	// Add atomically adds credits to a user, creating the row on first use
	Add(ctx context.Context, userID uuid.UUID, amount int, txType TxType, meta TransactionMeta) error

	// Spend atomically deducts credits from a user.
	// Returns ErrInsufficientCredits when the balance is too low.
	Spend(ctx context.Context, userID uuid.UUID, amount int, meta TransactionMeta) error

	// ListTransactions returns paginated transaction history for a user
	ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error)

	// SearchTransactions returns filtered transactions (admin use)
	SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error)
}

type service struct {
	repo Repository
}

// NewService creates a new credits service
func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (s *service) Balance(ctx context.Context, userID uuid.UUID) (int, error) {
	balance, err := s.repo.GetBalance(ctx, userID.String())
	if err != nil {
		if errors.Is(err, ErrNoBalance) {
			return 0, nil
		}
		return 0, err
	}
	return balance, nil
}

func (s *service) Add(ctx context.Context, userID uuid.UUID, amount int, txType TxType, meta TransactionMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.Increment(ctx, userID.String(), amount, string(txType), toTxMeta(meta))
}

func (s *service) Spend(ctx context.Context, userID uuid.UUID, amount int, meta TransactionMeta) error {
	if amount <= 0 {
		return ErrInvalidAmount
	}
	return s.repo.Spend(ctx, userID.String(), amount, toTxMeta(meta))
}

func (s *service) ListTransactions(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Transaction, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.repo.ListTransactions(ctx, userID.String(), Pagination{Limit: limit, Offset: offset})
}

func (s *service) SearchTransactions(ctx context.Context, filters SearchFilters) ([]Transaction, error) {
	return s.repo.SearchTransactions(ctx, filters)
}

func toTxMeta(meta TransactionMeta) TxMeta {
	out := TxMeta{Description: meta.Description}
	if meta.RelatedEntityType != "" {
		out.RelatedEntityType = &meta.RelatedEntityType
	}
	if meta.RelatedEntityID != "" {
		out.RelatedEntityID = &meta.RelatedEntityID
	}
	return out
}
