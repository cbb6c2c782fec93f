package logger

import (
	"io"
	"os"
	"slotwise/config"
	"slotwise/shared/constant"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// InitLogger writes human-readable lines in development and JSON everywhere else.
func InitLogger(cfg *config.Config) {
	Output(os.Stdout, cfg.Server.Env == constant.ServerEnvDevelopment)

	log.Logger = log.Logger.With().Str("app", cfg.App.Name).Logger()

	SetLogLevel(cfg)
}

func Output(writer io.Writer, pretty bool) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	if pretty {
		writer = zerolog.ConsoleWriter{Out: writer, TimeFormat: time.RFC3339}
	}

	log.Logger = zerolog.New(writer).With().Timestamp().Logger()
}

func ErrorWithStack(err error) {
	log.Error().Msgf("%+v", errors.WithStack(err))
}

// SetLogLevel falls back to info when the configured level is missing or unknown.
func SetLogLevel(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.Server.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}

	zerolog.SetGlobalLevel(level)

	log.Debug().Str("level", level.String()).Msg("Log level set")
}
