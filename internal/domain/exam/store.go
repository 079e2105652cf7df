package exam

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ProgressStore persists autosaved exam progress. Load returns
// (nil, nil) whenever the session should start fresh: absent key,
// corrupted record, or a record past the freshness window. Only
// transport failures surface as errors.
type ProgressStore interface {
	Save(ctx context.Context, p *Progress) error
	Load(ctx context.Context, sessionID uuid.UUID) (*Progress, error)
	Remove(ctx context.Context, sessionID uuid.UUID) error
}

// RedisProgressStore keeps progress records in Redis under
// exam:progress:<sessionID>. The key TTL matches the freshness
// window so stale records expire on their own; the timestamp check
// in decode still applies on read.
type RedisProgressStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisProgressStore creates a Redis-backed progress store.
// A non-positive ttl falls back to the freshness window.
func NewRedisProgressStore(client *redis.Client, ttl time.Duration) *RedisProgressStore {
	if ttl <= 0 {
		ttl = freshnessWindow
	}
	return &RedisProgressStore{client: client, ttl: ttl}
}

func progressKey(sessionID uuid.UUID) string {
	return "exam:progress:" + sessionID.String()
}

func (s *RedisProgressStore) Save(ctx context.Context, p *Progress) error {
	data, err := encodeProgress(p, time.Now())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	if err := s.client.Set(ctx, progressKey(p.SessionID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("save progress: %w", err)
	}
	return nil
}

func (s *RedisProgressStore) Load(ctx context.Context, sessionID uuid.UUID) (*Progress, error) {
	data, err := s.client.Get(ctx, progressKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("load progress: %w", err)
	}
	return decodeProgress(data, time.Now()), nil
}

func (s *RedisProgressStore) Remove(ctx context.Context, sessionID uuid.UUID) error {
	if err := s.client.Del(ctx, progressKey(sessionID)).Err(); err != nil {
		return fmt.Errorf("remove progress: %w", err)
	}
	return nil
}

// MemoryProgressStore keeps progress records in process memory. It is
// the development fallback when Redis is not configured; records do
// not survive a restart. It stores the same encoded form as the Redis
// store, so the freshness and corruption rules behave identically.
type MemoryProgressStore struct {
	mu      sync.Mutex
	records map[uuid.UUID][]byte
}

// NewMemoryProgressStore creates an in-memory progress store
func NewMemoryProgressStore() *MemoryProgressStore {
	return &MemoryProgressStore{records: make(map[uuid.UUID][]byte)}
}

func (s *MemoryProgressStore) Save(ctx context.Context, p *Progress) error {
	data, err := encodeProgress(p, time.Now())
	if err != nil {
		return fmt.Errorf("encode progress: %w", err)
	}
	s.mu.Lock()
	s.records[p.SessionID] = data
	s.mu.Unlock()
	return nil
}

func (s *MemoryProgressStore) Load(ctx context.Context, sessionID uuid.UUID) (*Progress, error) {
	s.mu.Lock()
	data, ok := s.records[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, nil
	}
	return decodeProgress(data, time.Now()), nil
}

func (s *MemoryProgressStore) Remove(ctx context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	delete(s.records, sessionID)
	s.mu.Unlock()
	return nil
}
