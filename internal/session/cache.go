package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Krimson/vibro-monitor/internal/stream"
	"github.com/redis/go-redis/v9"
)

// ErrNotFound возвращается при отсутствии сессии или результата
var ErrNotFound = errors.New("not found")

// CacheStore хранит горячее состояние сессий и последние
// результаты обработки
type CacheStore interface {
	SetSession(ctx context.Context, s *Session) error
	GetSession(ctx context.Context, structureID string) (*Session, error)
	DeleteSession(ctx context.Context, structureID string) error
	SetLatestResult(ctx context.Context, structureID string, result *stream.WindowResult) error
	GetLatestResult(ctx context.Context, structureID string) (*stream.WindowResult, error)
}

// RedisStore реализует CacheStore для Redis
type RedisStore struct {
	client    *redis.Client
	resultTTL time.Duration
}

// NewRedisStore создает новый экземпляр RedisStore
func NewRedisStore(client *redis.Client, resultTTL time.Duration) *RedisStore {
	return &RedisStore{client: client, resultTTL: resultTTL}
}

func sessionKey(structureID string) string {
	return fmt.Sprintf("session:%s", structureID)
}

func latestKey(structureID string) string {
	return fmt.Sprintf("latest:%s", structureID)
}

func (r *RedisStore) SetSession(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	return r.client.Set(ctx, sessionKey(s.StructureID), data, 0).Err()
}

func (r *RedisStore) GetSession(ctx context.Context, structureID string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(structureID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: session %s", ErrNotFound, structureID)
		}
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	var s Session
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}
	return &s, nil
}

func (r *RedisStore) DeleteSession(ctx context.Context, structureID string) error {
	return r.client.Del(ctx, sessionKey(structureID)).Err()
}

// SetLatestResult сохраняет последний результат окна с TTL: фронтенд
// может догнать состояние после переподключения
func (r *RedisStore) SetLatestResult(ctx context.Context, structureID string, result *stream.WindowResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal window result: %w", err)
	}
	return r.client.Set(ctx, latestKey(structureID), data, r.resultTTL).Err()
}

func (r *RedisStore) GetLatestResult(ctx context.Context, structureID string) (*stream.WindowResult, error) {
	data, err := r.client.Get(ctx, latestKey(structureID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("%w: latest result for %s", ErrNotFound, structureID)
		}
		return nil, fmt.Errorf("failed to get latest result: %w", err)
	}

	var result stream.WindowResult
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		return nil, fmt.Errorf("failed to unmarshal window result: %w", err)
	}
	return &result, nil
}
