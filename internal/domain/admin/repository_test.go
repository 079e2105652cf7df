package admin

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

// The status filters must bind the exact values the payments and exam
// packages persist; a literal that drifts from them silently zeroes the
// aggregate.
func TestStatsFiltersMatchPersistedStatuses(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer db.Close()

	repo := NewStatsRepository(sqlx.NewDb(db, "sqlmock"))

	mock.ExpectQuery("SELECT").
		WithArgs("paid", "submitted").
		WillReturnRows(sqlmock.NewRows([]string{
			"total_users", "credits_issued", "credits_spent",
			"paid_payments", "exams_taken", "certificates",
		}).AddRow(3, 120, 45, 2, 5, 1))

	stats, err := repo.Stats(context.Background())
	if err != nil {
		t.Fatalf("stats query failed: %v", err)
	}
	if stats.PaidPayments != 2 {
		t.Fatalf("expected 2 paid payments, got %d", stats.PaidPayments)
	}
	if stats.ExamsTaken != 5 {
		t.Fatalf("expected 5 exams taken, got %d", stats.ExamsTaken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
