package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisReplayStore makes the duplicate-id rejection hold cluster-wide when
// multiple instances receive webhooks behind one endpoint. SET NX is the
// atomic check-and-set; Redis expires the key after the TTL.
type RedisReplayStore struct {
	client *redis.Client
}

func NewRedisReplayStore(addr, password string, db int) *RedisReplayStore {
	return &RedisReplayStore{
		client: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
			DB:       db,
		}),
	}
}

func (s *RedisReplayStore) CheckAndSet(ctx context.Context, id string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, "webhook:"+id, "1", ttl).Result()
	if err != nil {
		return false, fmt.Errorf("replay store: %w", err)
	}
	return ok, nil
}

func (s *RedisReplayStore) Close() error {
	return s.client.Close()
}
