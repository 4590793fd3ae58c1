package common

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"infinite-experiment/plp/internal/logging"
)

const redisKeyPrefix = "plp:"

// RedisCacheService shares cached charts between service instances. Values
// are stored as JSON under the plp: namespace; a Redis outage degrades to
// cache misses.
type RedisCacheService struct {
	client  *redis.Client
	timeout time.Duration
}

var _ CacheInterface = (*RedisCacheService)(nil)

func NewRedisCacheService(client *redis.Client) *RedisCacheService {
	return &RedisCacheService{client: client, timeout: 2 * time.Second}
}

func (r *RedisCacheService) op() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}

func (r *RedisCacheService) Set(key string, value interface{}, duration time.Duration) {
	data, err := json.Marshal(value)
	if err != nil {
		logging.Warn("Redis cache: failed to encode value", "key", key, "error", err.Error())
		return
	}

	ctx, cancel := r.op()
	defer cancel()
	if err := r.client.Set(ctx, redisKeyPrefix+key, data, duration).Err(); err != nil {
		logging.Warn("Redis cache: set failed", "key", key, "error", err.Error())
	}
}

func (r *RedisCacheService) Get(key string) (interface{}, bool) {
	ctx, cancel := r.op()
	defer cancel()

	data, err := r.client.Get(ctx, redisKeyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		logging.Warn("Redis cache: get failed", "key", key, "error", err.Error())
		return nil, false
	}

	var result interface{}
	if err := json.Unmarshal(data, &result); err != nil {
		logging.Warn("Redis cache: dropping undecodable entry", "key", key, "error", err.Error())
		r.Delete(key)
		return nil, false
	}
	return result, true
}

func (r *RedisCacheService) Delete(key string) {
	ctx, cancel := r.op()
	defer cancel()
	if err := r.client.Del(ctx, redisKeyPrefix+key).Err(); err != nil {
		logging.Warn("Redis cache: delete failed", "key", key, "error", err.Error())
	}
}

func (r *RedisCacheService) GetOrSet(key string, duration time.Duration, loader func() (any, error)) (interface{}, error) {
	if val, found := r.Get(key); found {
		return val, nil
	}
	val, err := loader()
	if err != nil {
		return nil, err
	}
	r.Set(key, val, duration)
	return val, nil
}

func (r *RedisCacheService) Close() error {
	return r.client.Close()
}
