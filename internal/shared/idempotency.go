package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrIdempotencyConflict indicates a duplicate key.
var ErrIdempotencyConflict = errors.New("idempotent request already processed")

// IdempotencyStore remembers processed submission keys in Redis.
type IdempotencyStore struct {
	client    *redis.Client
	retention time.Duration
}

// NewIdempotencyStore constructs the store. A nil client accepts every key.
func NewIdempotencyStore(client *redis.Client, retention time.Duration) *IdempotencyStore {
	if retention <= 0 {
		retention = 24 * time.Hour
	}
	return &IdempotencyStore{client: client, retention: retention}
}

// CheckAndInsert claims key within module, failing when it was seen before.
func (s *IdempotencyStore) CheckAndInsert(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil {
		return nil
	}
	if key == "" {
		return errors.New("idempotency key required")
	}
	if module == "" {
		return errors.New("idempotency module required")
	}
	ok, err := s.client.SetNX(ctx, idempotencyKey(module, key), time.Now().UTC().Format(time.RFC3339), s.retention).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrIdempotencyConflict
	}
	return nil
}

// Release forgets key so a failed submission can be retried.
func (s *IdempotencyStore) Release(ctx context.Context, key, module string) error {
	if s == nil || s.client == nil || key == "" {
		return nil
	}
	return s.client.Del(ctx, idempotencyKey(module, key)).Err()
}

func idempotencyKey(module, key string) string {
	return fmt.Sprintf("idempotency:%s:%s", module, key)
}
