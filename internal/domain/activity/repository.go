package activity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Recorder is the write side of the activity log.
// Callers treat insert failures as non-fatal observability loss.
type Recorder interface {
	Insert(ctx context.Context, e *Entry) error
}

// Repository defines activity log data access
type Repository interface {
	Recorder
	ListRecent(ctx context.Context, limit int) ([]Entry, error)
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates activity repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Type == "" {
		e.Type = TypeOther
	}

	query := `
		INSERT INTO activity_log (id, type, user_id, amount, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID, e.Type, e.UserID, e.Amount, e.Description, e.Metadata, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert activity entry: %w", err)
	}
	return nil
}

func (r *repository) ListRecent(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, type, user_id, amount, description, metadata, created_at
		FROM activity_log
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list recent activity: %w", err)
	}
	return entries, nil
}

func (r *repository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	entries := make([]Entry, 0)
	err := r.db.SelectContext(ctx, &entries, `
		SELECT id, type, user_id, amount, description, metadata, created_at
		FROM activity_log
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list user activity: %w", err)
	}
	return entries, nil
}
