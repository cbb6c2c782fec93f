package http

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"slotwise/config"
	"slotwise/infras/metrics"
	"slotwise/infras/otel"
	"slotwise/internal/domains/changefeed"
	"slotwise/shared/constant"
	"slotwise/transport/http/response"
	"slotwise/transport/http/router"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	readHeaderTimeout = 10 * time.Second
	traceFlushTimeout = 5 * time.Second
)

type ServerState int32

const (
	ServerStateReady ServerState = iota + 1
	ServerStateInGracePeriod
	ServerStateInCleanupPeriod
)

type HTTP struct {
	Config  *config.Config
	Router  router.Router
	Metrics *metrics.Metrics
	Relay   *changefeed.Relay
	Otel    otel.Otel

	state   atomic.Int32
	handler http.Handler
	once    sync.Once
}

func New(cfg *config.Config, r router.Router, m *metrics.Metrics, relay *changefeed.Relay, otl otel.Otel) *HTTP {
	return &HTTP{
		Config:  cfg,
		Router:  r,
		Metrics: m,
		Relay:   relay,
		Otel:    otl,
	}
}

func (h *HTTP) State() ServerState {
	return ServerState(h.state.Load())
}

func (h *HTTP) setState(state ServerState) {
	h.state.Store(int32(state))
}

// Serve listens until SIGTERM, then drains: the health check fails for the grace period,
// and in-flight requests get the cleanup period to finish.
func (h *HTTP) Serve() {
	h.once.Do(h.setup)

	// request contexts derive from base, so cancelling it ends open event streams
	base, cancelBase := context.WithCancel(context.Background())
	defer cancelBase()

	relayCtx, stopRelay := context.WithCancel(base)
	defer stopRelay()

	go h.Relay.Run(relayCtx)

	server := &http.Server{
		Addr:              net.JoinHostPort("0.0.0.0", h.Config.Server.Port),
		Handler:           h.handler,
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return base },
	}

	go h.respondToSigterm(server, cancelBase)

	log.Info().Str("port", h.Config.Server.Port).Msg("Starting up HTTP server.")

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("Failed to start HTTP server")
	}

	<-base.Done()

	h.flushTraces()

	log.Info().Msg("Cleaning up completed. Shutting down now.")
}

// ServeHTTP serves a single request without owning a listener, as serverless runtimes require.
func (h *HTTP) ServeHTTP(writer http.ResponseWriter, request *http.Request) {
	h.once.Do(h.setup)

	h.handler.ServeHTTP(writer, request)
}

func (h *HTTP) setup() {
	mux := chi.NewRouter()

	h.Router.SetupRoutes(mux)

	mux.Get("/health", h.health)

	if h.Config.Metrics.Enable && h.Metrics != nil {
		mux.Handle(h.Config.Metrics.Path, h.Metrics.Handler())
	}

	h.handler = mux
	h.setState(ServerStateReady)
}

func (h *HTTP) health(writer http.ResponseWriter, _ *http.Request) {
	switch h.State() {
	case ServerStateReady:
		response.WithMessage(writer, http.StatusOK, "OK")
	case ServerStateInGracePeriod, ServerStateInCleanupPeriod:
		response.WithPreparingShutdown(writer)
	default:
		response.WithUnhealthy(writer)
	}
}

func (h *HTTP) flushTraces() {
	ctx, cancel := context.WithTimeout(context.Background(), traceFlushTimeout)
	defer cancel()

	if err := h.Otel.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to flush traces")
	}
}

func (h *HTTP) respondToSigterm(server *http.Server, cancelBase context.CancelFunc) {
	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	<-done

	defer cancelBase()

	if h.Config.Server.Env == constant.ServerEnvDevelopment {
		log.Warn().Msg("Received SIGTERM. Shutting down now.")

		if err := server.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close HTTP server")
		}

		return
	}

	shutdownConfig := h.Config.Server.Shutdown

	log.Info().Msg("Received SIGTERM.")
	log.Info().Int64("seconds", shutdownConfig.GracePeriodSeconds).Msg("Entering grace period.")

	h.setState(ServerStateInGracePeriod)

	time.Sleep(time.Duration(shutdownConfig.GracePeriodSeconds) * time.Second)

	log.Info().Int64("seconds", shutdownConfig.CleanupPeriodSeconds).Msg("Entering cleanup period.")

	h.setState(ServerStateInCleanupPeriod)

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(shutdownConfig.CleanupPeriodSeconds)*time.Second)
	defer cancel()

	// event streams never go idle, so whatever is still open when the period ends is closed
	if err := server.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("Cleanup period elapsed with open connections, closing them.")

		cancelBase()

		if closeErr := server.Close(); closeErr != nil {
			log.Error().Err(closeErr).Msg("Failed to close HTTP server")
		}
	}
}
