package leaderboard

import (
	"context"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/coduxa/coduxa-api/internal/domain/user"
)

// rankingKey is the all-time sorted set: member userID, score points
const rankingKey = "leaderboard:alltime"

// Service maintains exam rankings. The postgres mirror is the source
// of truth; the Redis sorted set is a cache for rank lookups and is
// rebuilt lazily as results come in. A nil Redis client degrades to
// postgres-only operation.
type Service struct {
	repo     Repository
	userRepo user.Repository
	redis    *redis.Client
}

// NewService creates leaderboard service
func NewService(repo Repository, userRepo user.Repository, redisClient *redis.Client) *Service {
	return &Service{repo: repo, userRepo: userRepo, redis: redisClient}
}

// RecordResult adds a finished exam's score to the user's total.
// Implements the exam service's ResultReporter.
func (s *Service) RecordResult(ctx context.Context, userID, examID uuid.UUID, score int) error {
	username := s.displayName(ctx, userID)

	if err := s.repo.AddResult(ctx, userID.String(), username, score); err != nil {
		return err
	}

	if s.redis != nil {
		if err := s.redis.ZIncrBy(ctx, rankingKey, float64(score), userID.String()).Err(); err != nil {
			// mirror row landed; the set self-heals on the next result
			log.Warn().Err(err).Str("user_id", userID.String()).Msg("leaderboard zset update failed")
		}
	}
	return nil
}

// Top returns the highest-ranked entries
func (s *Service) Top(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	return s.repo.TopN(ctx, limit)
}

// UserRank returns one user's entry with their rank. The sorted set
// answers the rank when available; otherwise it is counted from the
// mirror table.
func (s *Service) UserRank(ctx context.Context, userID uuid.UUID) (*Entry, error) {
	entry, err := s.repo.Get(ctx, userID.String())
	if err != nil {
		return nil, err
	}

	if s.redis != nil {
		rank, err := s.redis.ZRevRank(ctx, rankingKey, userID.String()).Result()
		if err == nil {
			entry.Rank = int(rank) + 1
			return entry, nil
		}
	}

	above, err := s.repo.CountAbove(ctx, entry.Points)
	if err != nil {
		return nil, err
	}
	entry.Rank = above + 1
	return entry, nil
}

func (s *Service) displayName(ctx context.Context, userID uuid.UUID) string {
	u, err := s.userRepo.GetByID(ctx, userID)
	if err != nil || u == nil {
		return "anonymous"
	}
	return u.Username
}
