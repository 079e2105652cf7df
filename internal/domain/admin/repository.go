package admin

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/coduxa/coduxa-api/internal/domain/exam"
	"github.com/coduxa/coduxa-api/internal/domain/payments"
)

const queryTimeout = 3 * time.Second

// Stats is the dashboard summary block
type Stats struct {
	TotalUsers    int `db:"total_users" json:"total_users"`
	CreditsIssued int `db:"credits_issued" json:"credits_issued"`
	CreditsSpent  int `db:"credits_spent" json:"credits_spent"`
	PaidPayments  int `db:"paid_payments" json:"paid_payments"`
	ExamsTaken    int `db:"exams_taken" json:"exams_taken"`
	Certificates  int `db:"certificates" json:"certificates"`
}

// StatsRepository reads platform-wide aggregates
type StatsRepository interface {
	Stats(ctx context.Context) (*Stats, error)
}

type statsRepository struct {
	db *sqlx.DB
}

// NewStatsRepository creates stats repository
func NewStatsRepository(db *sqlx.DB) StatsRepository {
	return &statsRepository{db: db}
}

func (r *statsRepository) Stats(ctx context.Context) (*Stats, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	// Status filters bind the constants the writing packages use so the
	// aggregates cannot drift from what the reconciler and exam service
	// actually persist.
	var s Stats
	err := r.db.GetContext(ctx2, &s, `
		SELECT
			(SELECT COUNT(*) FROM users) AS total_users,
			(SELECT COALESCE(SUM(amount_delta), 0) FROM credit_transactions WHERE amount_delta > 0) AS credits_issued,
			(SELECT COALESCE(-SUM(amount_delta), 0) FROM credit_transactions WHERE amount_delta < 0) AS credits_spent,
			(SELECT COUNT(*) FROM payments WHERE status = $1) AS paid_payments,
			(SELECT COUNT(*) FROM exam_sessions WHERE status = $2) AS exams_taken,
			(SELECT COUNT(*) FROM certificates) AS certificates
	`, string(payments.StatusPaid), exam.StatusSubmitted)
	if err != nil {
		return nil, fmt.Errorf("dashboard stats: %w", err)
	}
	return &s, nil
}
