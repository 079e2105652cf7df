package certificate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// Repository defines certificate data access
type Repository interface {
	Insert(ctx context.Context, c *Certificate) error
	UpdateArtifactURL(ctx context.Context, id uuid.UUID, url string) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error)
	GetBySerial(ctx context.Context, serial string) (*Certificate, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates certificate repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Insert(ctx context.Context, c *Certificate) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO certificates (id, user_id, exam_id, score, serial, issued_at, artifact_url)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, c.ID, c.UserID, c.ExamID, c.Score, c.Serial, c.IssuedAt, c.ArtifactURL)
	if err != nil {
		return fmt.Errorf("insert certificate: %w", err)
	}
	return nil
}

func (r *repository) UpdateArtifactURL(ctx context.Context, id uuid.UUID, url string) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		UPDATE certificates SET artifact_url = $2 WHERE id = $1
	`, id, url)
	if err != nil {
		return fmt.Errorf("update certificate artifact: %w", err)
	}
	return nil
}

func (r *repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Certificate, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var certs []Certificate
	err := r.db.SelectContext(ctx2, &certs, `
		SELECT * FROM certificates
		WHERE user_id = $1
		ORDER BY issued_at DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	return certs, nil
}

func (r *repository) Delete(ctx context.Context, id uuid.UUID) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	res, err := r.db.ExecContext(ctx2, `DELETE FROM certificates WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete certificate: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) GetBySerial(ctx context.Context, serial string) (*Certificate, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var c Certificate
	err := r.db.GetContext(ctx2, &c, `SELECT * FROM certificates WHERE serial = $1`, serial)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get certificate: %w", err)
	}
	return &c, nil
}
