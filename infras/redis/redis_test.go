package redis_test

import (
	"slotwise/config"
	"slotwise/infras/redis"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptions(t *testing.T) {
	t.Run("from config", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Cache.Redis.Primary.Host = "cache.internal"
		cfg.Cache.Redis.Primary.Port = "6380"
		cfg.Cache.Redis.Primary.Password = "secret"
		cfg.Cache.Redis.Primary.DB = 2
		cfg.Cache.Redis.PoolSize = 25
		cfg.Cache.Redis.TimeoutSeconds = 1

		options := redis.Options(cfg)

		assert.Equal(t, "cache.internal:6380", options.Addr)
		assert.Equal(t, "secret", options.Password)
		assert.Equal(t, 2, options.DB)
		assert.Equal(t, 25, options.PoolSize)
		assert.Equal(t, time.Second, options.DialTimeout)
		assert.Equal(t, time.Second, options.ReadTimeout)
		assert.Equal(t, time.Second, options.WriteTimeout)
	})

	t.Run("defaults", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Cache.Redis.Primary.Host = "::1"
		cfg.Cache.Redis.Primary.Port = "6379"

		options := redis.Options(cfg)

		assert.Equal(t, "[::1]:6379", options.Addr)
		assert.Equal(t, 10, options.PoolSize)
		assert.Equal(t, 3*time.Second, options.ReadTimeout)
	})
}
