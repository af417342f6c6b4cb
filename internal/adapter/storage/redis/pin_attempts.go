package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// PinAttemptStore implements ports.PinAttemptLimiter. Failures are counted
// per user in a key that expires lockoutWindow after the first failure.
type PinAttemptStore struct {
	client        *goredis.Client
	prefix        string
	maxAttempts   int64
	lockoutWindow time.Duration
}

// NewPinAttemptStore creates a Redis-backed PIN failure counter.
func NewPinAttemptStore(client *goredis.Client, maxAttempts int64, lockoutWindow time.Duration) *PinAttemptStore {
	return &PinAttemptStore{
		client:        client,
		prefix:        "pin_failures:",
		maxAttempts:   maxAttempts,
		lockoutWindow: lockoutWindow,
	}
}

// Locked reports whether the user has exhausted their attempts.
func (s *PinAttemptStore) Locked(ctx context.Context, userID string) (bool, error) {
	count, err := s.client.Get(ctx, s.prefix+userID).Int64()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return false, nil
		}
		return false, fmt.Errorf("redis pin attempts get: %w", err)
	}
	return count >= s.maxAttempts, nil
}

// RecordFailure increments the failure counter and returns the new count.
// The key is created with its expiry in the same transaction as the
// increment, so a counter can never outlive the window.
func (s *PinAttemptStore) RecordFailure(ctx context.Context, userID string) (int64, error) {
	key := s.prefix + userID
	var incr *goredis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.SetNX(ctx, key, 0, s.lockoutWindow)
		incr = pipe.Incr(ctx, key)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("redis pin attempts incr: %w", err)
	}
	return incr.Val(), nil
}

// Reset clears the failure counter after a successful PIN check.
func (s *PinAttemptStore) Reset(ctx context.Context, userID string) error {
	if err := s.client.Del(ctx, s.prefix+userID).Err(); err != nil {
		return fmt.Errorf("redis pin attempts reset: %w", err)
	}
	return nil
}
