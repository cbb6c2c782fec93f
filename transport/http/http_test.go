package http_test

import (
	"net/http"
	"net/http/httptest"
	"slotwise/config"
	jwtMocks "slotwise/infras/jwt/mocks"
	"slotwise/infras/metrics"
	otelMocks "slotwise/infras/otel/mocks"
	"slotwise/internal/domains/changefeed"
	notificationMocks "slotwise/internal/domains/notification/mocks"
	requestMocks "slotwise/internal/domains/request/mocks"
	"slotwise/internal/handlers/event"
	"slotwise/internal/handlers/notification"
	"slotwise/internal/handlers/request"
	"slotwise/permissions"
	cacheMocks "slotwise/shared/cache/mocks"
	transport "slotwise/transport/http"
	"slotwise/transport/http/middleware"
	"slotwise/transport/http/router"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/mock/gomock"
)

func newServer(t *testing.T) *transport.HTTP {
	t.Helper()

	ctrl := gomock.NewController(t)

	cfg := &config.Config{}
	cfg.Metrics.Enable = true
	cfg.Metrics.Path = "/metrics"

	ot := otelMocks.NewOtel()
	m := metrics.New(cfg)
	feed := changefeed.New(metrics.NewRecorder(m))

	handlers := router.DomainHandlers{
		Request:      request.New(requestMocks.NewMockRequestService(ctrl), ot),
		Notification: notification.New(notificationMocks.NewMockNotificationService(ctrl), ot),
		Event:        event.New(feed, ot),
	}

	r := router.New(
		handlers,
		middleware.NewAppMiddleware(ot, cfg, cacheMocks.NewMockRedisCache(ctrl)),
		middleware.NewAuthRoleMiddleware(jwtMocks.NewMockJWT(ctrl), ot, permissions.Get(), cfg),
	)

	return transport.New(cfg, r, m, nil, ot)
}

func TestHTTP_Health(t *testing.T) {
	server := newServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, transport.ServerStateReady, server.State())
}

func TestHTTP_Metrics(t *testing.T) {
	server := newServer(t)

	rec := httptest.NewRecorder()
	server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "slotwise_")
}

func TestHTTP_VersionedRoutesRequireToken(t *testing.T) {
	server := newServer(t)

	for _, target := range []string{"/v1/requests/mine", "/v1/notifications", "/v1/events"} {
		rec := httptest.NewRecorder()
		server.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusUnauthorized, rec.Code, target)
	}
}
