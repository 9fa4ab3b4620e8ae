// Package redisclient opens the shared redis.Cmdable used by the redis
// cache backend, the way the teacher's common.InitRedisClient does.
package redisclient

import (
	"github.com/Laisky/errors/v2"
	"github.com/Laisky/zap"
	"github.com/go-redis/redis/v8"

	"github.com/cyder-hub/cyder-gateway/common/config"
	"github.com/cyder-hub/cyder-gateway/common/logger"
)

// Client is the process-wide redis connection. Nil unless config.CacheBackend
// is "redis".
var Client redis.Cmdable

// Init parses config.RedisConnString and opens Client. It is a no-op when
// the cache backend isn't redis.
func Init() error {
	if config.CacheBackend != "redis" {
		return nil
	}
	if config.RedisConnString == "" {
		return errors.New("CACHE_BACKEND=redis but REDIS_CONN_STRING is empty")
	}

	opt, err := redis.ParseURL(config.RedisConnString)
	if err != nil {
		return errors.Wrap(err, "parse redis connection string")
	}
	Client = redis.NewClient(opt)
	logger.Logger.Info("redis cache backend enabled", zap.String("addr", opt.Addr))
	return nil
}
