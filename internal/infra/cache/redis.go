package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yt-dl-bot/internal/domain"
)

const videoKeyPrefix = "ytdl:video:"

// RedisVideos реализует domain.VideoCache через Redis. TTL выставляется самим
// Redis, поэтому запись переживает перезапуск процесса в пределах своего срока.
type RedisVideos struct {
	client *redis.Client
}

var _ domain.VideoCache = (*RedisVideos)(nil)

// NewRedisVideos создаёт кэш.
func NewRedisVideos(client *redis.Client) *RedisVideos {
	return &RedisVideos{client: client}
}

// Put сохраняет запись с TTL.
func (c *RedisVideos) Put(ctx context.Context, key string, record domain.VideoRecord, ttl time.Duration) error {
	payload, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("marshal video record: %w", err)
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := c.client.Set(ctx, videoKey(key), payload, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Get возвращает запись. redis.Nil означает промах, а не ошибку.
func (c *RedisVideos) Get(ctx context.Context, key string) (domain.VideoRecord, bool, error) {
	raw, err := c.client.Get(ctx, videoKey(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.VideoRecord{}, false, nil
		}
		return domain.VideoRecord{}, false, fmt.Errorf("redis get: %w", err)
	}
	var record domain.VideoRecord
	if err := json.Unmarshal(raw, &record); err != nil {
		return domain.VideoRecord{}, false, fmt.Errorf("decode video record: %w", err)
	}
	return record, true, nil
}

// Delete удаляет запись.
func (c *RedisVideos) Delete(ctx context.Context, key string) error {
	return c.client.Del(ctx, videoKey(key)).Err()
}

func videoKey(key string) string {
	return videoKeyPrefix + key
}
