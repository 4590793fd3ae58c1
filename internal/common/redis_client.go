package common

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"

	"infinite-experiment/plp/internal/config"
	"infinite-experiment/plp/internal/constants"
	"infinite-experiment/plp/internal/logging"
)

func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	logging.Info("Initializing Redis client", "addr", cfg.Addr, "db", cfg.DB)

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logging.Warn("Failed to ping Redis, pool will keep retrying", "error", err.Error())
		return client
	}

	logging.Info("Connected to Redis")
	return client
}

// NewCache picks the cache backend named in the config.
func NewCache(cfg *config.Config) (CacheInterface, error) {
	switch cfg.Cache.Backend {
	case "redis":
		return NewRedisCacheService(NewRedisClient(cfg.Redis)), nil
	case "memory", "":
		return NewCacheService(cfg.Cache.DefaultTTL, cfg.Cache.CleanupInterval), nil
	default:
		return nil, ConfigError(constants.ErrCodeConfigMalformed, "unknown cache backend %q", cfg.Cache.Backend)
	}
}
