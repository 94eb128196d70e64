package baseline

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore реализует CacheStore для Redis
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore создает новый экземпляр RedisStore
func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func baselineKey(id string) string {
	return fmt.Sprintf("baseline:%s", id)
}

func (r *RedisStore) SetBaseline(ctx context.Context, b *Baseline) error {
	data, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("failed to marshal baseline: %w", err)
	}
	return r.client.Set(ctx, baselineKey(b.ID), data, 0).Err()
}

func (r *RedisStore) GetBaseline(ctx context.Context, id string) (*Baseline, error) {
	data, err := r.client.Get(ctx, baselineKey(id)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: %s", ErrBaselineNotFound, id)
		}
		return nil, fmt.Errorf("failed to get baseline: %w", err)
	}

	var b Baseline
	if err := json.Unmarshal([]byte(data), &b); err != nil {
		return nil, fmt.Errorf("failed to unmarshal baseline: %w", err)
	}
	return &b, nil
}
