package handler

import (
	"net/http"
	"slotwise/config"
	"slotwise/di"
	"slotwise/shared/logger"
	"slotwise/shared/timezone"
	transport "slotwise/transport/http"
	"sync"

	"github.com/rs/zerolog/log"
)

var (
	service *transport.HTTP
	once    sync.Once
)

// Handler is the serverless entrypoint. The service is built on the first invocation
// and reused while the instance stays warm.
func Handler(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		cfg := config.Get()

		logger.InitLogger(cfg)

		if err := timezone.SetLocation(cfg.App.Timezone); err != nil {
			log.Error().Err(err).Msg("Invalid application timezone, using UTC")
		}

		service = di.InitializeService()
	})

	r.RequestURI = r.URL.String()

	service.ServeHTTP(w, r)
}
