package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Notification=MockNotificationService

import (
	"context"
	"fmt"
	"slices"
	"slotwise/config"
	"slotwise/infras/metrics"
	"slotwise/infras/otel"
	"slotwise/infras/push"
	"slotwise/internal/domains/changefeed"
	"slotwise/internal/domains/notification/model"
	"slotwise/internal/domains/notification/model/dto"
	"slotwise/internal/domains/notification/repository"
	requestModel "slotwise/internal/domains/request/model"
	"slotwise/shared"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/failure"
	"slotwise/shared/identity"
	gModel "slotwise/shared/model"
	"slotwise/shared/timezone"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

var sortableFields = []string{constant.FieldCreatedAt, model.FieldIsRead, model.FieldType}

// Transition is one lifecycle change of a booking request, as seen by the dispatcher.
type Transition struct {
	Type    model.Type
	Request requestModel.Request
	Actor   identity.Actor
}

// Delivery is a notification written inside a transaction and announced once it commits.
type Delivery struct {
	Notification model.Notification
	Title        string
	Data         map[string]any
}

type Notification interface {
	// Dispatch writes the counterparty's notification inside tx. It returns nil when there is nobody to notify.
	Dispatch(ctx context.Context, tx *sqlx.Tx, transition Transition) (*Delivery, error)
	// Deliver publishes the committed notification and requests a push without waiting for it.
	Deliver(ctx context.Context, delivery *Delivery)
	GetAll(ctx context.Context, params gDto.QueryParams, unread *bool) (dto.GetNotificationsResponse, error)
	CountUnread(ctx context.Context) (dto.UnreadCountResponse, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context) (dto.BulkResponse, error)
	Clear(ctx context.Context) (dto.BulkResponse, error)
}

type serviceImpl struct {
	repo    repository.Notification
	push    push.Client
	feed    changefeed.Publisher
	metrics metrics.Recorder
	cfg     *config.Config
	otel    otel.Otel
}

func New(repo repository.Notification, push push.Client, feed changefeed.Publisher, recorder metrics.Recorder, cfg *config.Config, otel otel.Otel) Notification {
	return &serviceImpl{
		repo:    repo,
		push:    push,
		feed:    feed,
		metrics: recorder,
		cfg:     cfg,
		otel:    otel,
	}
}

func (s *serviceImpl) Dispatch(ctx context.Context, tx *sqlx.Tx, transition Transition) (res *Delivery, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.Dispatch")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	recipient := Recipient(transition)
	if recipient == constant.Empty || recipient == transition.Actor.ID {
		log.Warn().
			Str("request_id", transition.Request.ID).
			Str("type", string(transition.Type)).
			Msg("no counterparty to notify, skipping notification")

		return nil, nil
	}

	title, message := Render(transition)
	requestID := transition.Request.ID
	notification := model.Notification{
		ID:          uuid.NewString(),
		RecipientID: recipient,
		Type:        transition.Type,
		Message:     message,
		IsRead:      false,
		RequestID:   &requestID,
		Metadata:    gModel.NewMetadata(transition.Actor.ID, timezone.Now()),
	}

	if err = s.repo.InsertTx(ctx, tx, notification); err != nil {
		log.Error().Err(err).Str("request_id", requestID).Msg("failed to insert notification")

		return nil, fmt.Errorf("failed to insert notification: %w", err)
	}

	return &Delivery{
		Notification: notification,
		Title:        title,
		Data: map[string]any{
			"type":       string(transition.Type),
			"requestId":  requestID,
			"clientName": transition.Request.ClientName,
		},
	}, nil
}

func (s *serviceImpl) Deliver(ctx context.Context, delivery *Delivery) {
	if delivery == nil {
		return
	}

	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.Deliver")
	defer scope.End()

	notification := delivery.Notification

	s.metrics.IncNotification(string(notification.Type))
	s.publish(ctx, changefeed.EventInsert, notification.ChangeKeys(), nil, toResponse(notification))

	if !s.push.Enabled() {
		s.metrics.IncPush(metrics.PushResultSkipped)

		return
	}

	go func() {
		c := context.WithoutCancel(ctx)

		err := s.push.Deliver(c, notification.RecipientID, delivery.Title, notification.Message, delivery.Data)
		if err != nil {
			s.metrics.IncPush(metrics.PushResultFailed)
			log.Error().Err(err).
				Str("recipient_id", notification.RecipientID).
				Str("notification_id", notification.ID).
				Msg("failed to deliver push notification")

			return
		}

		s.metrics.IncPush(metrics.PushResultDelivered)
	}()
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, unread *bool) (res dto.GetNotificationsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	filter := s.recipientFilter(actor.ID)

	if unread != nil {
		filter = filter.With(gDto.Eq(model.FieldIsRead, !*unread))
	}

	if params.SortBy == constant.Empty || !slices.Contains(sortableFields, params.SortBy) {
		params.SortBy = constant.DefaultValueSortBy
		params.SortDir = constant.DefaultValueSortDir
	}

	if params.SortDir == constant.Empty {
		params.SortDir = constant.DefaultValueSortDir
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count notifications")

		return res, failure.ServiceUnavailable(fmt.Errorf("failed to count notifications: %w", err)) // nolint:wrapcheck
	}

	notifications, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get notifications")

		return res, failure.ServiceUnavailable(fmt.Errorf("failed to get notifications: %w", err)) // nolint:wrapcheck
	}

	res.FromModels(notifications, total, params.Limit)

	return res, nil
}

func (s *serviceImpl) CountUnread(ctx context.Context) (res dto.UnreadCountResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.CountUnread")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	filter := s.recipientFilter(actor.ID).With(gDto.Eq(model.FieldIsRead, false))

	res.Unread, err = s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count unread notifications")

		return res, failure.ServiceUnavailable(fmt.Errorf("failed to count unread notifications: %w", err)) // nolint:wrapcheck
	}

	return res, nil
}

func (s *serviceImpl) MarkRead(ctx context.Context, id string) (err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.MarkRead")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	filter := shared.FilterByID(id, model.FieldID, model.TableName)

	notification, err := s.repo.Get(ctx, filter)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to get notification")

		return failure.ServiceUnavailable(fmt.Errorf("failed to get notification: %w", err)) // nolint:wrapcheck
	}

	// someone else's notification is reported as missing
	if notification.ID == constant.Empty || notification.RecipientID != actor.ID {
		return failure.NotFound("notification not found") // nolint:wrapcheck
	}

	if notification.IsRead {
		return nil
	}

	previous := notification
	notification.IsRead = true

	changes := notification.Touch(actor.ID, timezone.Now())
	changes[model.FieldIsRead] = true

	err = s.repo.Update(ctx, changes, filter)
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to mark notification as read")

		return failure.ServiceUnavailable(fmt.Errorf("failed to mark notification as read: %w", err)) // nolint:wrapcheck
	}

	s.publish(ctx, changefeed.EventUpdate, notification.ChangeKeys(), toResponse(previous), toResponse(notification))

	return nil
}

func (s *serviceImpl) MarkAllRead(ctx context.Context) (res dto.BulkResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.MarkAllRead")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)

	ids, err := s.repo.MarkAllRead(ctx, actor.ID, actor.ID, timezone.Now())
	if err != nil {
		log.Error().Err(err).Msg("failed to mark all notifications as read")

		return res, failure.ServiceUnavailable(fmt.Errorf("failed to mark all notifications as read: %w", err)) // nolint:wrapcheck
	}

	for _, id := range ids {
		s.publish(ctx, changefeed.EventUpdate, map[string]string{
			model.FieldID:          id,
			model.FieldRecipientID: actor.ID,
		}, nil, nil)
	}

	res.Affected = len(ids)

	return res, nil
}

func (s *serviceImpl) Clear(ctx context.Context) (res dto.BulkResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".notification.Clear")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)

	ids, err := s.repo.DeleteByRecipient(ctx, actor.ID)
	if err != nil {
		log.Error().Err(err).Msg("failed to clear notifications")

		return res, failure.ServiceUnavailable(fmt.Errorf("failed to clear notifications: %w", err)) // nolint:wrapcheck
	}

	for _, id := range ids {
		s.publish(ctx, changefeed.EventDelete, map[string]string{
			model.FieldID:          id,
			model.FieldRecipientID: actor.ID,
		}, nil, nil)
	}

	res.Affected = len(ids)

	return res, nil
}

func (s *serviceImpl) recipientFilter(recipientID string) gDto.FilterGroup {
	return gDto.And(gDto.Eq(model.FieldRecipientID, recipientID))
}

func (s *serviceImpl) publish(ctx context.Context, eventType changefeed.EventType, keys map[string]string, previous, current any) {
	event, err := changefeed.NewEvent(model.TableName, eventType, keys, previous, current)
	if err != nil {
		log.Error().Err(err).Str("event", string(eventType)).Msg("failed to build notification change event")

		return
	}

	s.feed.Publish(ctx, event)
}

func toResponse(notification model.Notification) dto.NotificationResponse {
	res := dto.NotificationResponse{}
	res.FromModel(notification)

	return res
}
