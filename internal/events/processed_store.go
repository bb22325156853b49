package events

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const processedTTL = 24 * time.Hour

// ProcessedStore records webhook events that were already handled, so a
// redelivered event does not append duplicate conversation turns. It is
// nil-safe: with no Redis configured every event looks new.
type ProcessedStore struct {
	redis *redis.Client
}

// NewProcessedStore creates a Redis-backed processed-event tracker.
func NewProcessedStore(client *redis.Client) *ProcessedStore {
	if client == nil {
		panic("events: redis client required")
	}
	return &ProcessedStore{redis: client}
}

// AlreadyProcessed checks if we've seen this provider event id.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if s == nil || s.redis == nil || eventID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, processedKey(provider, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return n > 0, nil
}

// MarkProcessed records an event id for the provider, returning false if it
// was already present.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, provider, eventID string) (bool, error) {
	if s == nil || s.redis == nil || eventID == "" {
		return true, nil
	}
	ok, err := s.redis.SetNX(ctx, processedKey(provider, eventID), 1, processedTTL).Result()
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ok, nil
}

func processedKey(provider, eventID string) string {
	return fmt.Sprintf("processed:%s:%s", provider, eventID)
}
