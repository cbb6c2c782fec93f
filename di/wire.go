//go:build wireinject
// +build wireinject

package di

import (
	"slotwise/config"
	"slotwise/infras/jwt"
	"slotwise/infras/kafka"
	"slotwise/infras/metrics"
	"slotwise/infras/otel"
	"slotwise/infras/postgres"
	"slotwise/infras/push"
	"slotwise/infras/redis"
	"slotwise/internal/domains/changefeed"
	notificationRepository "slotwise/internal/domains/notification/repository"
	notificationService "slotwise/internal/domains/notification/service"
	requestRepository "slotwise/internal/domains/request/repository"
	requestService "slotwise/internal/domains/request/service"
	eventHandler "slotwise/internal/handlers/event"
	notificationHandler "slotwise/internal/handlers/notification"
	requestHandler "slotwise/internal/handlers/request"
	"slotwise/permissions"
	"slotwise/shared/cache"
	"slotwise/shared/txmanager"
	"slotwise/transport/http"
	"slotwise/transport/http/middleware"
	"slotwise/transport/http/router"

	"github.com/google/wire"
)

var configurations = wire.NewSet(
	config.Get,
	permissions.Get,
)

var infrastructures = wire.NewSet(
	postgres.New,
	otel.New,
	redis.New,
	jwt.New,
	kafka.New,
	push.New,
	metrics.New,
	metrics.NewRecorder,
)

var middlewares = wire.NewSet(
	middleware.NewAppMiddleware,
	middleware.NewAuthRoleMiddleware,
)

var sharedHelpers = wire.NewSet(
	cache.NewRedisCache,
	txmanager.New,
)

var changefeedDomain = wire.NewSet(
	changefeed.New,
	changefeed.NewRelay,
	wire.Bind(new(changefeed.Publisher), new(*changefeed.Relay)),
)

var notificationDomain = wire.NewSet(
	notificationRepository.New,
	notificationService.New,
)

var requestDomain = wire.NewSet(
	requestRepository.New,
	requestService.New,
)

var domains = wire.NewSet(
	changefeedDomain,
	notificationDomain,
	requestDomain,
)

var routing = wire.NewSet(
	wire.Struct(new(router.DomainHandlers), "*"),
	requestHandler.New,
	notificationHandler.New,
	eventHandler.New,
	router.New,
)

func InitializeService() *http.HTTP {
	wire.Build(
		configurations,
		infrastructures,
		middlewares,
		sharedHelpers,
		domains,
		routing,
		http.New,
	)

	return &http.HTTP{}
}
