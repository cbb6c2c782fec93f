package notification

import (
	"net/http"
	"slotwise/infras/otel"
	"slotwise/internal/domains/notification/service"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/failure"
	"slotwise/shared/validator"
	"slotwise/transport/http/response"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

type Handler struct {
	service service.Notification
	otel    otel.Otel
}

func New(service service.Notification, otel otel.Otel) Handler {
	return Handler{
		service: service,
		otel:    otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Route("/notifications", func(routerGroup chi.Router) {
		routerGroup.Get("/", handler.GetNotifications)
		routerGroup.Delete("/", handler.ClearNotifications)
		routerGroup.Get("/unread-count", handler.CountUnread)
		routerGroup.Patch("/read", handler.MarkAllRead)
		routerGroup.Patch("/{id}/read", handler.MarkRead)
	})
}

// GetNotifications lists the caller's notifications, newest first.
// @Summary Get my notifications
// @Tags Notification
// @Produce json
// @Param pagination query gDto.QueryParams false "Pagination parameters"
// @Param unread query bool false "Only unread (true) or only read (false)"
// @Success 200 {object} response.Data[dto.GetNotificationsResponse]
// @Failure 400 {object} response.Error
// @Failure 503 {object} response.Error
// @Router /v1/notifications [get]
// @Security BearerAuth
func (handler *Handler) GetNotifications(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".GetNotifications")
	defer scope.End()

	queryParams := gDto.QueryParams{}
	queryParams.FromRequest(request, true)

	var unread *bool

	if raw := request.URL.Query().Get(constant.RequestParamUnread); raw != "" {
		parsed, err := strconv.ParseBool(raw)
		if err != nil {
			err = failure.BadRequestFromString("unread must be true or false")
			scope.TraceError(err)
			response.WithError(writer, err)

			return
		}

		unread = &parsed
	}

	notifications, err := handler.service.GetAll(ctx, queryParams, unread)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to get notifications")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, notifications)
}

// CountUnread returns how many of the caller's notifications are unread.
// @Summary Count unread notifications
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Data[dto.UnreadCountResponse]
// @Failure 503 {object} response.Error
// @Router /v1/notifications/unread-count [get]
// @Security BearerAuth
func (handler *Handler) CountUnread(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".CountUnread")
	defer scope.End()

	res, err := handler.service.CountUnread(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to count unread notifications")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// MarkRead marks one of the caller's notifications as read.
// @Summary Mark a notification as read
// @Tags Notification
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} response.Message
// @Failure 404 {object} response.Error
// @Router /v1/notifications/{id}/read [patch]
// @Security BearerAuth
func (handler *Handler) MarkRead(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkRead")
	defer scope.End()

	id := chi.URLParam(request, constant.RequestParamID)

	if err := validator.ValidateVar(id, "required,uuid"); err != nil {
		scope.TraceError(err)
		response.WithError(writer, err)

		return
	}

	if err := handler.service.MarkRead(ctx, id); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Str("id", id).Msg("failed to mark notification as read")

		response.WithError(writer, err)

		return
	}

	response.WithMessage(writer, http.StatusOK, "Notification marked as read")
}

// MarkAllRead marks every unread notification of the caller as read.
// @Summary Mark all notifications as read
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Data[dto.BulkResponse]
// @Failure 503 {object} response.Error
// @Router /v1/notifications/read [patch]
// @Security BearerAuth
func (handler *Handler) MarkAllRead(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".MarkAllRead")
	defer scope.End()

	res, err := handler.service.MarkAllRead(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to mark all notifications as read")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}

// ClearNotifications deletes all of the caller's notifications.
// @Summary Clear my notifications
// @Tags Notification
// @Produce json
// @Success 200 {object} response.Data[dto.BulkResponse]
// @Failure 503 {object} response.Error
// @Router /v1/notifications [delete]
// @Security BearerAuth
func (handler *Handler) ClearNotifications(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".ClearNotifications")
	defer scope.End()

	res, err := handler.service.Clear(ctx)
	if err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("failed to clear notifications")

		response.WithError(writer, err)

		return
	}

	response.WithJSON(writer, http.StatusOK, res)
}
