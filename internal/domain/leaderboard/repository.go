package leaderboard

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

const queryTimeout = 3 * time.Second

// ErrNotRanked is returned for users with no recorded results
var ErrNotRanked = errors.New("user has no leaderboard entry")

// Repository is the postgres mirror of the leaderboard. It carries
// display names and survives a Redis flush; the sorted set is just the
// fast path for rank queries.
type Repository interface {
	AddResult(ctx context.Context, userID, username string, points int) error
	TopN(ctx context.Context, limit int) ([]Entry, error)
	Get(ctx context.Context, userID string) (*Entry, error)
	CountAbove(ctx context.Context, points int) (int, error)
}

type repository struct {
	db *sqlx.DB
}

// NewRepository creates leaderboard repository
func NewRepository(db *sqlx.DB) Repository {
	return &repository{db: db}
}

func (r *repository) AddResult(ctx context.Context, userID, username string, points int) error {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err := r.db.ExecContext(ctx2, `
		INSERT INTO leaderboard_entries (user_id, username, points, exams, updated_at)
		VALUES ($1, $2, $3, 1, NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			points = leaderboard_entries.points + EXCLUDED.points,
			exams = leaderboard_entries.exams + 1,
			username = EXCLUDED.username,
			updated_at = NOW()
	`, userID, username, points)
	if err != nil {
		return fmt.Errorf("add leaderboard result: %w", err)
	}
	return nil
}

func (r *repository) TopN(ctx context.Context, limit int) ([]Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var entries []Entry
	err := r.db.SelectContext(ctx2, &entries, `
		SELECT user_id, username, points, exams
		FROM leaderboard_entries
		ORDER BY points DESC, updated_at ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard top: %w", err)
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

func (r *repository) Get(ctx context.Context, userID string) (*Entry, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var e Entry
	err := r.db.GetContext(ctx2, &e, `
		SELECT user_id, username, points, exams
		FROM leaderboard_entries
		WHERE user_id = $1
	`, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotRanked
		}
		return nil, fmt.Errorf("leaderboard get: %w", err)
	}
	return &e, nil
}

func (r *repository) CountAbove(ctx context.Context, points int) (int, error) {
	ctx2, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var count int
	err := r.db.GetContext(ctx2, &count, `
		SELECT COUNT(*) FROM leaderboard_entries WHERE points > $1
	`, points)
	if err != nil {
		return 0, fmt.Errorf("leaderboard rank: %w", err)
	}
	return count, nil
}
