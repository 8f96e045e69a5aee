package dedup

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const seenKeyPrefix = "hunter:seen:"

// SeenStore remembers fingerprints of already-dispatched tasks in Redis so a
// restart does not re-queue work the backend already attempted. It is
// optional: a nil store accepts everything.
type SeenStore struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewSeenStore creates a seen-store over the given Redis client.
func NewSeenStore(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *SeenStore {
	if ttl <= 0 {
		ttl = 48 * time.Hour
	}
	return &SeenStore{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "seen_store").Logger(),
	}
}

// Mark records a fingerprint with the configured TTL.
func (s *SeenStore) Mark(ctx context.Context, fingerprint string) {
	if s == nil || s.client == nil {
		return
	}
	if err := s.client.Set(ctx, seenKeyPrefix+fingerprint, 1, s.ttl).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("Failed to mark fingerprint")
	}
}

// Seen reports whether a fingerprint was already dispatched. Redis errors
// fail open: an unreachable store must not stall discovery.
func (s *SeenStore) Seen(ctx context.Context, fingerprint string) bool {
	if s == nil || s.client == nil {
		return false
	}
	n, err := s.client.Exists(ctx, seenKeyPrefix+fingerprint).Result()
	if err != nil {
		s.logger.Warn().Err(err).Msg("Seen lookup failed")
		return false
	}
	return n > 0
}
