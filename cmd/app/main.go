package main

import (
	"slotwise/config"
	"slotwise/di"
	"slotwise/helper"
	"slotwise/shared/logger"
	"slotwise/shared/timezone"

	"github.com/rs/zerolog/log"
)

func main() {
	cfg := config.Get()

	logger.InitLogger(cfg)

	if err := timezone.SetLocation(cfg.App.Timezone); err != nil {
		log.Fatal().Err(err).Msg("Invalid application timezone")
	}

	if cfg.DB.Postgres.AutoMigrate {
		if err := helper.Up(cfg); err != nil {
			log.Fatal().Err(err).Msg("Failed to run database migrations")
		}
	}

	http := di.InitializeService()
	http.Serve()
}
