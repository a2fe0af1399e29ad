package assistant

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dileep-u-k/weather-assistant/internal/logging"
	"github.com/m-mizutani/goerr/v2"
	"github.com/redis/go-redis/v9"
)

// DefaultSessionTTL is how long an idle session keeps its remembered city.
const DefaultSessionTTL = time.Hour

// SessionStore remembers the last city mentioned in each conversation.
// Sessions never see each other's city.
type SessionStore interface {
	LastCity(ctx context.Context, sessionID string) (string, error)
	SetLastCity(ctx context.Context, sessionID, city string) error
}

// =================================================================================
// In-process store
// =================================================================================

type memoryEntry struct {
	city    string
	expires time.Time
}

// MemoryStore keeps sessions in a map guarded by a RWMutex. Entries expire
// after ttl without a read or write; expired entries are swept on writes.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	ttl     time.Duration
	writes  int
	now     func() time.Time
}

var _ SessionStore = (*MemoryStore)(nil)

const sweepEvery = 128

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &MemoryStore{
		entries: make(map[string]memoryEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

func (s *MemoryStore) LastCity(_ context.Context, sessionID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	entry, ok := s.entries[sessionID]
	if !ok || !now.Before(entry.expires) {
		return "", nil
	}
	entry.expires = now.Add(s.ttl)
	s.entries[sessionID] = entry
	return entry.city, nil
}

func (s *MemoryStore) SetLastCity(_ context.Context, sessionID, city string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.entries[sessionID] = memoryEntry{city: city, expires: now.Add(s.ttl)}

	s.writes++
	if s.writes%sweepEvery == 0 {
		for id, entry := range s.entries {
			if !now.Before(entry.expires) {
				delete(s.entries, id)
			}
		}
	}
	return nil
}

// Len returns the number of stored sessions, expired or not.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// =================================================================================
// Redis store
// =================================================================================

const lastCityField = "last_city"

// RedisStore keeps each session in a Redis hash "session:<id>" whose TTL is
// refreshed on every read and write, so replicas share conversations.
type RedisStore struct {
	rdb *redis.Client
	ttl time.Duration
}

var _ SessionStore = (*RedisStore)(nil)

func NewRedisStore(rdb *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl}
}

func sessionKey(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}

func (s *RedisStore) LastCity(ctx context.Context, sessionID string) (string, error) {
	key := sessionKey(sessionID)
	city, err := s.rdb.HGet(ctx, key, lastCityField).Result()
	if err == redis.Nil {
		return "", nil
	}
	if err != nil {
		return "", goerr.Wrap(err, "failed to read session from redis", goerr.V("session_id", sessionID))
	}
	s.refreshSessionTTL(ctx, key)
	return city, nil
}

func (s *RedisStore) SetLastCity(ctx context.Context, sessionID, city string) error {
	key := sessionKey(sessionID)
	_, err := s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, lastCityField, city)
		pipe.Expire(ctx, key, s.ttl)
		return nil
	})
	if err != nil {
		return goerr.Wrap(err, "failed to write session to redis", goerr.V("session_id", sessionID))
	}
	return nil
}

// refreshSessionTTL slides the expiry after a read. A failure only shortens
// the session, so it is logged and the read still succeeds.
func (s *RedisStore) refreshSessionTTL(ctx context.Context, key string) {
	if err := s.rdb.Expire(ctx, key, s.ttl).Err(); err != nil {
		logging.From(ctx).Warn("failed to refresh session TTL", "key", key, "error", err)
	}
}
