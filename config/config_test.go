package config_test

import (
	"os"
	"path/filepath"
	"slotwise/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "missing.env"))
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "UTC", cfg.App.Timezone)
	assert.Equal(t, int64(5), cfg.Server.Shutdown.GracePeriodSeconds)
	assert.Equal(t, 300, cfg.Cache.TTL)
	assert.Equal(t, 500, cfg.Cache.RevalidateMillis)
	assert.Equal(t, "/metrics", cfg.Metrics.Path)
	assert.InDelta(t, 1.0, cfg.External.Otel.SampleRatio, 0)
}

func TestLoad_EnvFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "test.env")
	require.NoError(t, os.WriteFile(file, []byte("SERVER_PORT=9090\nKAFKA_BROKERS=a:9092,b:9092\n"), 0o600))

	t.Setenv("SERVER_PORT", "7070")
	t.Cleanup(func() { os.Unsetenv("KAFKA_BROKERS") })

	cfg, err := config.Load(file)
	require.NoError(t, err)

	// the process environment wins over the file
	assert.Equal(t, "7070", cfg.Server.Port)
	assert.Equal(t, []string{"a:9092", "b:9092"}, cfg.Kafka.Brokers)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *config.Config)
		wantErr string
	}{
		{
			name:   "development defaults",
			mutate: func(*config.Config) {},
		},
		{
			name:    "unknown environment",
			mutate:  func(cfg *config.Config) { cfg.Server.Env = "local" },
			wantErr: "SERVER_ENV must be one of",
		},
		{
			name:    "production needs a token secret",
			mutate:  func(cfg *config.Config) { cfg.Server.Env = "production" },
			wantErr: "JWT_ACCESS_SECRET is required in production",
		},
		{
			name: "rate limiter needs a window",
			mutate: func(cfg *config.Config) {
				cfg.App.RateLimiter.Enable = true
				cfg.App.RateLimiter.MaxRequests = 10
			},
			wantErr: "APP_RATE_LIMITER_WINDOW_SECONDS",
		},
		{
			name:    "kafka needs brokers and topic",
			mutate:  func(cfg *config.Config) { cfg.Kafka.Enable = true },
			wantErr: "KAFKA_BROKERS and KAFKA_TOPIC",
		},
		{
			name:    "push needs a url",
			mutate:  func(cfg *config.Config) { cfg.External.Push.Enable = true },
			wantErr: "EXTERNAL_PUSH_URL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Server.Env = "development"
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
