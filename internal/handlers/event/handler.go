package event

import (
	"encoding/json"
	"fmt"
	"net/http"
	"slotwise/infras/otel"
	"slotwise/internal/domains/changefeed"
	notificationModel "slotwise/internal/domains/notification/model"
	requestModel "slotwise/internal/domains/request/model"
	"slotwise/shared/constant"
	"slotwise/shared/failure"
	"slotwise/shared/identity"
	"slotwise/transport/http/response"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"
)

const (
	bufferSize        = 64
	heartbeatInterval = 25 * time.Second
)

// Message is one server-sent event: the change plus the toast text for this session, if any.
type Message struct {
	changefeed.Event
	Toast string `json:"toast,omitempty"`
}

type Handler struct {
	feed changefeed.Feed
	otel otel.Otel
}

func New(feed changefeed.Feed, otel otel.Otel) Handler {
	return Handler{
		feed: feed,
		otel: otel,
	}
}

func (handler *Handler) Router(router chi.Router) {
	router.Get("/events", handler.Stream)
}

// Stream pushes changes of the caller's requests and notifications until the client disconnects.
// @Summary Stream changes
// @Description Server-sent events for requests the caller created or is assigned to, and for the caller's notifications.
// @Tags Event
// @Produce text/event-stream
// @Param access_token query string false "Access token, for clients that cannot set headers"
// @Success 200 {object} Message
// @Failure 401 {object} response.Error
// @Router /v1/events [get]
// @Security BearerAuth
func (handler *Handler) Stream(writer http.ResponseWriter, request *http.Request) {
	ctx, scope := handler.otel.NewScope(request.Context(), constant.OtelHandlerScopeName, constant.OtelHandlerScopeName+".Stream")
	defer scope.End()

	actor := identity.FromContext(ctx)
	if actor.ID == constant.Empty {
		response.WithError(writer, failure.Unauthorized("unauthorized"))

		return
	}

	controller := http.NewResponseController(writer)

	// the stream outlives any server write timeout
	if err := controller.SetWriteDeadline(time.Time{}); err != nil {
		log.Debug().Err(err).Msg("write deadline not supported")
	}

	events := make(chan changefeed.Event, bufferSize)
	enqueue := func(event changefeed.Event) {
		select {
		case events <- event:
		default:
			log.Warn().Str("user_id", actor.ID).Str("event", event.ID).Msg("event stream is full, dropping event")
		}
	}

	subscriptions := []changefeed.Subscription{
		handler.feed.Subscribe(requestModel.TableName, changefeed.Any(
			changefeed.MatchKey(requestModel.FieldConsultantID, actor.ID),
			changefeed.MatchKey(requestModel.FieldCreatedBy, actor.ID),
		), enqueue),
		handler.feed.Subscribe(notificationModel.TableName, changefeed.MatchKey(notificationModel.FieldRecipientID, actor.ID), enqueue),
	}

	defer func() {
		for _, subscription := range subscriptions {
			handler.feed.Unsubscribe(subscription)
		}
	}()

	writer.Header().Set(constant.RequestHeaderContentType, constant.ContentTypeEventStream)
	writer.Header().Set("Cache-Control", "no-cache")
	writer.Header().Set("Connection", "keep-alive")
	writer.WriteHeader(http.StatusOK)

	if err := controller.Flush(); err != nil {
		scope.TraceError(err)
		log.Error().Err(err).Msg("event stream cannot be flushed")

		return
	}

	log.Info().Str("user_id", actor.ID).Msg("event stream opened")

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("user_id", actor.ID).Msg("event stream closed")

			return
		case <-heartbeat.C:
			if _, err := fmt.Fprint(writer, ": ping\n\n"); err != nil {
				return
			}
		case event := <-events:
			if err := write(writer, Message{Event: event, Toast: Toast(event, actor.ID)}); err != nil {
				log.Warn().Err(err).Str("user_id", actor.ID).Msg("failed to write event")

				return
			}
		}

		if err := controller.Flush(); err != nil {
			return
		}
	}
}

func write(writer http.ResponseWriter, message Message) error {
	payload, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err = fmt.Fprintf(writer, "id: %s\nevent: %s\ndata: %s\n\n", message.ID, message.Table, payload); err != nil {
		return fmt.Errorf("failed to write event: %w", err)
	}

	return nil
}
