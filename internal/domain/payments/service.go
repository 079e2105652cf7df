package payments

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/activity"
	"github.com/coduxa/coduxa-api/internal/domain/credits"
	"github.com/coduxa/coduxa-api/internal/pkg/xendit"
)

// InvoiceClient is the slice of the gateway client the service needs
type InvoiceClient interface {
	CreateInvoice(ctx context.Context, req xendit.CreateInvoiceRequest) (*xendit.Invoice, error)
}

// EventPublisher pushes reconciled purchases to the admin live feed.
// Publishing is fire-and-forget.
type EventPublisher interface {
	PublishCreditPurchase(userID string, creditAmount int, packTitle string)
}

// WebhookResult describes what the reconciler did with a callback
type WebhookResult struct {
	Skipped  bool
	Fallback bool
	UserID   string
	Credits  int
}

// Service reconciles gateway callbacks against the credits ledger and
// issues hosted top-up invoices.
type Service struct {
	ledger      credits.Repository
	repo        Repository
	activities  activity.Recorder
	publisher   EventPublisher
	gateway     InvoiceClient
	extraction  *Extraction
	frontendURL string
}

// NewService creates payments service. activities, publisher and gateway
// may be nil; the corresponding features degrade to no-ops.
func NewService(ledger credits.Repository, repo Repository, activities activity.Recorder, publisher EventPublisher, gateway InvoiceClient, conversionRate float64, frontendURL string) *Service {
	return &Service{
		ledger:      ledger,
		repo:        repo,
		activities:  activities,
		publisher:   publisher,
		gateway:     gateway,
		extraction:  NewExtraction(conversionRate),
		frontendURL: frontendURL,
	}
}

// ProcessInvoiceCallback converts a gateway callback into a durable credit
// increment plus audit trail.
//
// Non-PAID statuses are acknowledged without mutation so the gateway does
// not redeliver them. The credit increment goes through the atomic ledger
// path first; on any failure there it degrades to read-then-upsert, which
// is racy under concurrent callbacks for the same user. Audit writes never
// roll back the increment and never fail the callback.
func (s *Service) ProcessInvoiceCallback(ctx context.Context, cb *xendit.InvoiceCallback) (*WebhookResult, error) {
	if cb.Status != xendit.StatusPaid {
		log.Info().
			Str("status", cb.Status).
			Str("external_id", cb.ExternalID).
			Msg("webhook skipped: non-PAID status")
		return &WebhookResult{Skipped: true}, nil
	}

	userID, creditAmount, err := s.extraction.Resolve(cb)
	if err != nil {
		return nil, err
	}

	result := &WebhookResult{UserID: userID, Credits: creditAmount}

	meta := TxMetaForCallback(cb)
	if err := s.ledger.Increment(ctx, userID, creditAmount, string(credits.TxTypePurchase), meta); err != nil {
		log.Warn().Err(err).
			Str("user_id", userID).
			Int("credits", creditAmount).
			Msg("atomic increment failed, falling back to read-then-upsert")

		if err := s.fallbackIncrement(ctx, userID, creditAmount); err != nil {
			return nil, err
		}
		result.Fallback = true
	}

	s.recordAudit(ctx, cb, userID, creditAmount)

	return result, nil
}

// fallbackIncrement is the degraded path: read the balance (a missing row
// reads as zero, any other read error is fatal) and upsert the new value.
func (s *Service) fallbackIncrement(ctx context.Context, userID string, creditAmount int) error {
	balance, err := s.ledger.GetBalance(ctx, userID)
	if err != nil {
		if !errors.Is(err, credits.ErrNoBalance) {
			return fmt.Errorf("%w: fallback read: %v", ErrCreditFailed, err)
		}
		balance = 0
	}

	if err := s.ledger.Upsert(ctx, userID, balance+creditAmount); err != nil {
		return fmt.Errorf("%w: fallback upsert: %v", ErrCreditFailed, err)
	}

	return nil
}

// recordAudit writes the payment and activity rows and notifies the live
// feed. All of it is best-effort: the credit mutation is the source of
// truth and has already committed.
func (s *Service) recordAudit(ctx context.Context, cb *xendit.InvoiceCallback, userID string, creditAmount int) {
	paidAt := time.Now()
	if cb.PaidAt != "" {
		if t, err := time.Parse(time.RFC3339, cb.PaidAt); err == nil {
			paidAt = t
		}
	}

	p := &Payment{
		ID:          uuid.New(),
		ExternalID:  cb.ExternalID,
		UserID:      userID,
		Amount:      cb.Amount,
		Currency:    cb.Currency,
		Credits:     creditAmount,
		Description: cb.Description,
		Status:      StatusPaid,
		PaidAt:      paidAt,
	}
	if cb.ID != "" {
		p.GatewayID = sql.NullString{String: cb.ID, Valid: true}
	}
	if cb.Metadata != nil {
		if cb.Metadata.PackTitle != "" {
			p.PackTitle = sql.NullString{String: cb.Metadata.PackTitle, Valid: true}
		}
		if raw, err := json.Marshal(cb.Metadata); err == nil {
			p.Metadata = raw
		}
	}

	if err := s.repo.Insert(ctx, p); err != nil {
		log.Error().Err(err).Str("external_id", cb.ExternalID).Msg("payment audit insert failed")
	}

	if s.activities != nil {
		amount := creditAmount
		entry := &activity.Entry{
			Type:        activity.TypeCreditPurchase,
			UserID:      userID,
			Amount:      &amount,
			Description: fmt.Sprintf("Purchased %d credits", creditAmount),
			Metadata:    p.Metadata,
		}
		if err := s.activities.Insert(ctx, entry); err != nil {
			log.Error().Err(err).Str("user_id", userID).Msg("activity insert failed")
		}
	}

	if s.publisher != nil {
		packTitle := ""
		if cb.Metadata != nil {
			packTitle = cb.Metadata.PackTitle
		}
		s.publisher.PublishCreditPurchase(userID, creditAmount, packTitle)
	}
}

// TxMetaForCallback builds ledger metadata for a reconciled callback
func TxMetaForCallback(cb *xendit.InvoiceCallback) credits.TxMeta {
	meta := credits.TxMeta{Description: cb.Description}
	if meta.Description == "" {
		meta.Description = "credit top-up"
	}
	entityType := "payment"
	meta.RelatedEntityType = &entityType
	if cb.ID != "" {
		id := cb.ID
		meta.RelatedEntityID = &id
	} else if cb.ExternalID != "" {
		id := cb.ExternalID
		meta.RelatedEntityID = &id
	}
	return meta
}

// CreateTopUpInvoice issues a hosted invoice for a credit pack.
// The external_id and metadata carry everything the reconciler needs to
// credit the right user when the callback arrives.
func (s *Service) CreateTopUpInvoice(ctx context.Context, userID uuid.UUID, packID, payerEmail string) (*xendit.Invoice, error) {
	if s.gateway == nil {
		return nil, fmt.Errorf("payment gateway is not configured")
	}

	pack := PackByID(packID)
	if pack == nil {
		return nil, ErrUnknownPack
	}

	externalID := fmt.Sprintf("topup-%s-%d", userID.String(), time.Now().UnixMilli())

	return s.gateway.CreateInvoice(ctx, xendit.CreateInvoiceRequest{
		ExternalID:         externalID,
		Amount:             pack.Amount,
		Description:        fmt.Sprintf("%s - %d credits", pack.Title, pack.Credits),
		PayerEmail:         payerEmail,
		SuccessRedirectURL: s.frontendURL + "/credits?status=success",
		FailureRedirectURL: s.frontendURL + "/credits?status=failed",
		Metadata: map[string]string{
			"user_id":    userID.String(),
			"credits":    strconv.Itoa(pack.Credits),
			"pack_title": pack.Title,
		},
	})
}

// History returns a user's payment audit records
func (s *Service) History(ctx context.Context, userID uuid.UUID, limit, offset int) ([]*Payment, error) {
	return s.repo.ListByUser(ctx, userID.String(), limit, offset)
}
