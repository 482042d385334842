package quotastore

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisStore keeps the counters in Redis. INCRBY is atomic server-side, so
// concurrent adds for the same key cannot lose updates. Keys are never
// expired: usage history is retained, and a new period simply starts a new
// key at zero.
type RedisStore struct {
	client *redis.Client
}

var _ CounterStore = (*RedisStore)(nil)

func NewRedisStore(cfg Config) (*RedisStore, error) {
	if cfg.RedisAddr == "" {
		return nil, errors.New("redis counter store requires redis_addr")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	return &RedisStore{client: client}, nil
}

func usedKey(userID, period string) string {
	return fmt.Sprintf("quota:used:%s:%s", userID, period)
}

func allowanceKey(userID, period string) string {
	return fmt.Sprintf("quota:allow:%s:%s", userID, period)
}

func (s *RedisStore) get(ctx context.Context, key string) (int64, error) {
	val, err := s.client.Get(ctx, key).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return val, nil
}

func (s *RedisStore) GetUsed(ctx context.Context, userID, period string) (int64, error) {
	return s.get(ctx, usedKey(userID, period))
}

func (s *RedisStore) AddUsed(ctx context.Context, userID, period string, tokens int64) (int64, error) {
	return s.client.IncrBy(ctx, usedKey(userID, period), clampTokens(tokens)).Result()
}

func (s *RedisStore) GetAllowance(ctx context.Context, userID, period string) (int64, error) {
	return s.get(ctx, allowanceKey(userID, period))
}

func (s *RedisStore) AddAllowance(ctx context.Context, userID, period string, tokens int64) (int64, error) {
	return s.client.IncrBy(ctx, allowanceKey(userID, period), clampTokens(tokens)).Result()
}

// Close releases the underlying Redis connection pool.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
