package redis

import (
	"context"
	"net"
	"slotwise/config"
	"time"

	goRedis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	defaultPoolSize = 10
	defaultTimeout  = 3 * time.Second
)

// Options maps the primary cache config onto client options. Dial, read and write share one timeout.
func Options(cfg *config.Config) *goRedis.Options {
	redisConfig := cfg.Cache.Redis

	timeout := time.Duration(redisConfig.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	poolSize := redisConfig.PoolSize
	if poolSize <= 0 {
		poolSize = defaultPoolSize
	}

	return &goRedis.Options{
		Addr:         net.JoinHostPort(redisConfig.Primary.Host, redisConfig.Primary.Port),
		Password:     redisConfig.Primary.Password,
		DB:           redisConfig.Primary.DB,
		PoolSize:     poolSize,
		DialTimeout:  timeout,
		ReadTimeout:  timeout,
		WriteTimeout: timeout,
	}
}

func New(cfg *config.Config) *goRedis.Client {
	options := Options(cfg)
	client := goRedis.NewClient(options)

	ctx, cancel := context.WithTimeout(context.Background(), options.DialTimeout)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Fatal().Err(err).Str("addr", options.Addr).Msg("Failed to connect to Redis")
	}

	log.Info().
		Int("db", options.DB).
		Str("addr", options.Addr).
		Int("pool_size", options.PoolSize).
		Msg("Connected to Redis")

	return client
}
