package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// redisKeyPrefix namespaces job entries in Redis.
const redisKeyPrefix = "ecg:job:"

// redisJobTTL bounds how long terminal job state is kept around. Clients poll
// within minutes of submission; a week is generous.
const redisJobTTL = 7 * 24 * time.Hour

// RedisStore is a JobStore backed by Redis, so status queries survive engine
// restarts and can be served by any replica.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed job store.
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Set(ctx context.Context, snap JobSnapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to marshal job state: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+snap.ID.String(), data, redisJobTTL).Err(); err != nil {
		return fmt.Errorf("failed to store job state: %w", err)
	}
	return nil
}

func (s *RedisStore) Get(ctx context.Context, id uuid.UUID) (JobSnapshot, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+id.String()).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return JobSnapshot{}, ErrUnknownJob
		}
		return JobSnapshot{}, fmt.Errorf("failed to read job state: %w", err)
	}

	var snap JobSnapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return JobSnapshot{}, fmt.Errorf("failed to unmarshal job state: %w", err)
	}
	return snap, nil
}

// Ensure RedisStore implements JobStore at compile time.
var _ JobStore = (*RedisStore)(nil)
