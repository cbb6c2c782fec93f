package logger_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"slotwise/config"
	"slotwise/shared/logger"
	"testing"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func capture(t *testing.T, pretty bool) *bytes.Buffer {
	t.Helper()

	original := log.Logger
	level := zerolog.GlobalLevel()

	t.Cleanup(func() {
		log.Logger = original
		zerolog.SetGlobalLevel(level)
	})

	var buf bytes.Buffer

	logger.Output(&buf, pretty)
	zerolog.SetGlobalLevel(zerolog.TraceLevel)

	return &buf
}

func TestOutput(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		buf := capture(t, false)

		log.Info().Str("request_id", "r-1").Msg("request approved")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "info", line["level"])
		assert.Equal(t, "r-1", line["request_id"])
		assert.Equal(t, "request approved", line["message"])
		assert.Contains(t, line, "time")
	})

	t.Run("pretty", func(t *testing.T) {
		buf := capture(t, true)

		log.Info().Msg("request approved")

		assert.Contains(t, buf.String(), "request approved")
		assert.False(t, json.Valid(buf.Bytes()))
	})
}

func TestErrorWithStack(t *testing.T) {
	buf := capture(t, false)

	logger.ErrorWithStack(errors.New("connection reset"))

	assert.Contains(t, buf.String(), "connection reset")
	assert.Contains(t, buf.String(), `"level":"error"`)
}

func TestSetLogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"warn", zerolog.WarnLevel},
		{"ERROR", zerolog.ErrorLevel},
		{"", zerolog.InfoLevel},
		{"loud", zerolog.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			capture(t, false)

			cfg := &config.Config{}
			cfg.Server.LogLevel = tt.level

			logger.SetLogLevel(cfg)

			assert.Equal(t, tt.want, zerolog.GlobalLevel())
		})
	}
}
