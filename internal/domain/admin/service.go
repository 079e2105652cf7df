package admin

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
)

// Service handles admin dashboard business logic
type Service struct {
	stats      StatsRepository
	credits    credits.Service
	activities activity.Repository
	hub        *Hub // nil disables live feed events
}

// NewService creates admin service
func NewService(stats StatsRepository, creditsService credits.Service, activities activity.Repository, hub *Hub) *Service {
	return &Service{
		stats:      stats,
		credits:    creditsService,
		activities: activities,
		hub:        hub,
	}
}

// Stats returns platform-wide aggregates
func (s *Service) Stats(ctx context.Context) (*Stats, error) {
	return s.stats.Stats(ctx)
}

// GrantCredits adds credits to a user on an admin's behalf. The grant
// lands in the ledger as admin_grant; the audit trail and feed event
// are best-effort.
func (s *Service) GrantCredits(ctx context.Context, adminID uuid.UUID, req *GrantCreditsRequest) error {
	userID, err := uuid.Parse(req.UserID)
	if err != nil {
		return credits.ErrInvalidAmount
	}

	err = s.credits.Add(ctx, userID, req.Amount, credits.TxTypeAdminGrant, credits.TransactionMeta{
		RelatedEntityType: "admin",
		RelatedEntityID:   adminID.String(),
		Description:       req.Reason,
	})
	if err != nil {
		return err
	}

	s.recordGrant(ctx, adminID, userID, req)

	if s.hub != nil {
		s.hub.Publish(&FeedEvent{
			Type:        EventCreditGrant,
			UserID:      req.UserID,
			Credits:     req.Amount,
			Description: req.Reason,
			At:          time.Now(),
		})
	}
	return nil
}

// RecentActivity returns the latest activity log entries
func (s *Service) RecentActivity(ctx context.Context, limit int) ([]activity.Entry, error) {
	return s.activities.ListRecent(ctx, limit)
}

// UserActivity returns one user's slice of the activity log
func (s *Service) UserActivity(ctx context.Context, userID string, limit, offset int) ([]activity.Entry, error) {
	return s.activities.ListByUser(ctx, userID, limit, offset)
}

// SearchTransactions runs a filtered ledger query
func (s *Service) SearchTransactions(ctx context.Context, req *SearchTransactionsRequest) ([]credits.Transaction, error) {
	filters := credits.SearchFilters{
		Limit:  req.Limit,
		Offset: req.Offset,
	}
	if req.UserID != "" {
		filters.UserID = &req.UserID
	}
	if req.TxType != "" {
		filters.TxType = &req.TxType
	}
	return s.credits.SearchTransactions(ctx, filters)
}

func (s *Service) recordGrant(ctx context.Context, adminID, userID uuid.UUID, req *GrantCreditsRequest) {
	amount := req.Amount
	entry := &activity.Entry{
		ID:          uuid.New(),
		Type:        activity.TypeAdminAction,
		UserID:      userID.String(),
		Amount:      &amount,
		Description: "Admin credit grant: " + req.Reason,
		CreatedAt:   time.Now(),
	}
	if err := s.activities.Insert(ctx, entry); err != nil {
		log.Warn().Err(err).
			Str("admin_id", adminID.String()).
			Str("user_id", userID.String()).
			Msg("failed to record credit grant")
	}
}
