package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alessio-signorini/slack-meet-command/internal/domain"
	"github.com/alessio-signorini/slack-meet-command/internal/repository"
)

const pendingPrefix = "meet:pending:"

// RedisPendingStore implements PendingCallbackStore backed by Redis.
type RedisPendingStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

var _ repository.PendingCallbackStore = (*RedisPendingStore)(nil)

// NewRedisPendingStore constructs a Redis-backed pending-callback store.
func NewRedisPendingStore(client redis.UniversalClient, ttl time.Duration) *RedisPendingStore {
	return &RedisPendingStore{client: client, ttl: ttl}
}

// Store persists the callback with TTL, replacing any previous one.
func (s *RedisPendingStore) Store(ctx context.Context, slackUserID string, cb domain.PendingCallback) error {
	payload, err := json.Marshal(cb)
	if err != nil {
		return fmt.Errorf("marshal pending callback: %w", err)
	}
	if err := s.client.Set(ctx, pendingPrefix+slackUserID, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("persist pending callback: %w", err)
	}
	return nil
}

// Take loads and deletes the callback in one round trip. GETDEL keeps the
// read-and-clear atomic so a callback URL is consumed at most once.
func (s *RedisPendingStore) Take(ctx context.Context, slackUserID string) (*domain.PendingCallback, error) {
	bytes, err := s.client.GetDel(ctx, pendingPrefix+slackUserID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("take pending callback: %w", err)
	}
	var cb domain.PendingCallback
	if err := json.Unmarshal(bytes, &cb); err != nil {
		return nil, fmt.Errorf("decode pending callback: %w", err)
	}
	return &cb, nil
}
