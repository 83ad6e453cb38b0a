package users

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"yt-dl-bot/internal/domain"
	"yt-dl-bot/internal/infra/metrics"
)

const redisUsersKey = "ytdl:users"

// Redis хранит множество пользователей в Redis, счётчик общий для всех реплик.
type Redis struct {
	client *redis.Client
	key    string
}

var _ domain.UserRegistry = (*Redis)(nil)

// NewRedis создаёт реестр.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client, key: redisUsersKey}
}

// Touch добавляет пользователя в множество.
func (r *Redis) Touch(ctx context.Context, tgUserID int64) error {
	if tgUserID == 0 {
		return nil
	}
	start := time.Now()
	err := r.client.SAdd(ctx, r.key, tgUserID).Err()
	metrics.ObserveNetworkRequest("redis", "users_sadd", start, err)
	if err != nil {
		return fmt.Errorf("redis sadd: %w", err)
	}
	return nil
}

// Count возвращает мощность множества.
func (r *Redis) Count(ctx context.Context) (int, error) {
	start := time.Now()
	n, err := r.client.SCard(ctx, r.key).Result()
	metrics.ObserveNetworkRequest("redis", "users_scard", start, err)
	if err != nil {
		return 0, fmt.Errorf("redis scard: %w", err)
	}
	return int(n), nil
}
