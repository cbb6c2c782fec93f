package service

//go:generate go run go.uber.org/mock/mockgen -source=./service.go -destination=../mocks/service_mock.go -package=mocks -mock_names=Request=MockRequestService

import (
	"context"
	"maps"
	"slices"
	"slotwise/config"
	"slotwise/infras/metrics"
	"slotwise/infras/otel"
	"slotwise/internal/domains/changefeed"
	notificationModel "slotwise/internal/domains/notification/model"
	notificationService "slotwise/internal/domains/notification/service"
	"slotwise/internal/domains/request/model"
	"slotwise/internal/domains/request/model/dto"
	"slotwise/internal/domains/request/repository"
	"slotwise/internal/domains/slot"
	"slotwise/shared"
	"slotwise/shared/cache"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/identity"
	"slotwise/shared/timezone"
	"slotwise/shared/txmanager"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"
)

const (
	cacheGetRequest    = "booking_request:get"
	cacheGetAllRequest = "booking_request:get_all"

	operationCreate     = "create"
	operationReschedule = "reschedule"

	rescheduleNotePrefix = "\n\nReschedule message: "
)

var sortableFields = []string{
	constant.FieldCreatedAt,
	constant.FieldModifiedAt,
	model.FieldRequestedDate,
	model.FieldFromTime,
	model.FieldClientName,
	model.FieldStatus,
}

type Request interface {
	Create(ctx context.Context, req dto.CreateRequest) (dto.RequestResponse, error)
	Approve(ctx context.Context, id string) (dto.RequestResponse, error)
	Reject(ctx context.Context, id string) (dto.RequestResponse, error)
	Reschedule(ctx context.Context, id string, req dto.RescheduleRequest) (dto.RequestResponse, error)
	CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (dto.AvailabilityResponse, error)
	Get(ctx context.Context, id string) (dto.RequestResponse, error)
	GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRequestsResponse, error)
	GetMine(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (dto.GetRequestsResponse, error)
}

type serviceImpl struct {
	repo         repository.Request
	notification notificationService.Notification
	tx           txmanager.TxManager
	feed         changefeed.Publisher
	cache        cache.RedisCache
	metrics      metrics.Recorder
	cfg          *config.Config
	otel         otel.Otel
}

func New(
	repo repository.Request,
	notification notificationService.Notification,
	tx txmanager.TxManager,
	feed changefeed.Publisher,
	cache cache.RedisCache,
	recorder metrics.Recorder,
	cfg *config.Config,
	otel otel.Otel,
) Request {
	return &serviceImpl{
		repo:         repo,
		notification: notification,
		tx:           tx,
		feed:         feed,
		cache:        cache,
		metrics:      recorder,
		cfg:          cfg,
		otel:         otel,
	}
}

// LockKey serialises every write that can occupy a consultant's day.
func LockKey(consultantID string, date time.Time) string {
	return consultantID + "|" + date.Format(constant.DateOnlyFormat)
}

// AppendRescheduleMessage keeps prior notes and adds message after a blank line.
func AppendRescheduleMessage(notes, message string) string {
	message = strings.TrimSpace(message)
	if message == constant.Empty {
		return notes
	}

	return strings.TrimSpace(notes + rescheduleNotePrefix + message)
}

func (s *serviceImpl) Create(ctx context.Context, req dto.CreateRequest) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Create")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	if actor.ID == constant.Empty {
		return res, notAuthorized("missing acting user")
	}

	if strings.TrimSpace(req.ClientName) == constant.Empty || strings.TrimSpace(req.ConsultantID) == constant.Empty {
		return res, validationError("client_name and consultant_id are required")
	}

	date, window, err := req.Schedule.Parse()
	if err != nil {
		return res, validationError(err.Error())
	}

	created := req.ToModel(actor.ID, date, window)

	var delivery *notificationService.Delivery

	err = s.tx.DoLocked(ctx, LockKey(created.ConsultantID, date), func(ctx context.Context, tx *sqlx.Tx) error {
		if err := s.ensureAvailable(ctx, tx, operationCreate, slot.Proposal{
			ConsultantID: created.ConsultantID,
			Date:         date,
			Window:       window,
		}); err != nil {
			return err
		}

		if err := s.repo.InsertTx(ctx, tx, created); err != nil {
			return storageError("failed to create request", err)
		}

		dispatched, err := s.notification.Dispatch(ctx, tx, notificationService.Transition{
			Type:    notificationModel.TypeCreated,
			Request: created,
			Actor:   actor,
		})
		if err != nil {
			return storageError("failed to notify consultant", err)
		}

		delivery = dispatched

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("consultant_id", created.ConsultantID).Msg("failed to create request")

		return res, storageError("failed to create request", err)
	}

	s.metrics.IncRequestCreated()
	s.afterCommit(ctx, changefeed.EventInsert, model.Request{}, created, delivery)

	res.FromModel(created)

	return res, nil
}

func (s *serviceImpl) Approve(ctx context.Context, id string) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Approve")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.decide(ctx, id, model.StatusApproved)
}

func (s *serviceImpl) Reject(ctx context.Context, id string) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reject")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.decide(ctx, id, model.StatusRejected)
}

// decide moves a pending request to approved or rejected under a row lock.
func (s *serviceImpl) decide(ctx context.Context, id string, status model.Status) (res dto.RequestResponse, err error) {
	actor := identity.FromContext(ctx)

	var (
		before, after model.Request
		delivery      *notificationService.Delivery
	)

	err = s.tx.Do(ctx, func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.lockForTransition(ctx, tx, id, actor)
		if err != nil {
			return err
		}

		before = current
		after = current
		after.Status = status

		changes := after.Touch(actor.ID, timezone.Now())
		changes[model.FieldStatus] = after.Status

		if err := s.repo.UpdateTx(ctx, tx, changes, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			return storageError("failed to update request", err)
		}

		delivery, err = s.notification.Dispatch(ctx, tx, notificationService.Transition{
			Type:    notificationModel.Type(status),
			Request: after,
			Actor:   actor,
		})
		if err != nil {
			return storageError("failed to notify requester", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Str("status", status.String()).Msg("failed to change request status")

		return res, storageError("failed to change request status", err)
	}

	s.metrics.IncTransition(status.String())
	s.afterCommit(ctx, changefeed.EventUpdate, before, after, delivery)

	res.FromModel(after)

	return res, nil
}

func (s *serviceImpl) Reschedule(ctx context.Context, id string, req dto.RescheduleRequest) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Reschedule")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)

	date, window, err := req.Schedule.Parse()
	if err != nil {
		return res, validationError(err.Error())
	}

	// consultant_id never changes, so the lock key can be taken from an unlocked read
	existing, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to get request")

		return res, storageError("failed to get request", err)
	}

	if existing.ID == constant.Empty {
		return res, notFound()
	}

	if existing.ConsultantID != actor.ID {
		return res, notAuthorized("only the assigned consultant can reschedule this request")
	}

	var (
		before, after model.Request
		delivery      *notificationService.Delivery
	)

	err = s.tx.DoLocked(ctx, LockKey(existing.ConsultantID, date), func(ctx context.Context, tx *sqlx.Tx) error {
		current, err := s.lockForTransition(ctx, tx, id, actor)
		if err != nil {
			return err
		}

		// the request is pending here, so it is skipped and may move within its own old slot
		if err := s.ensureAvailable(ctx, tx, operationReschedule, slot.Proposal{
			ConsultantID: current.ConsultantID,
			Date:         date,
			Window:       window,
			ExcludeID:    current.ID,
		}); err != nil {
			return err
		}

		before = current
		after = current
		after.RequestedDate = date
		after.FromTime = window.From
		after.ToTime = window.To
		after.Notes = AppendRescheduleMessage(current.Notes, req.Message)
		after.Status = model.StatusRescheduled

		changes := after.Touch(actor.ID, timezone.Now())
		maps.Copy(changes, map[string]any{
			model.FieldRequestedDate: after.RequestedDate,
			model.FieldFromTime:      after.FromTime,
			model.FieldToTime:        after.ToTime,
			model.FieldNotes:         after.Notes,
			model.FieldStatus:        after.Status,
		})

		if err := s.repo.UpdateTx(ctx, tx, changes, shared.FilterByID(id, model.FieldID, model.TableName)); err != nil {
			return storageError("failed to update request", err)
		}

		delivery, err = s.notification.Dispatch(ctx, tx, notificationService.Transition{
			Type:    notificationModel.TypeRescheduled,
			Request: after,
			Actor:   actor,
		})
		if err != nil {
			return storageError("failed to notify requester", err)
		}

		return nil
	})
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to reschedule request")

		return res, storageError("failed to reschedule request", err)
	}

	s.metrics.IncTransition(model.StatusRescheduled.String())
	s.afterCommit(ctx, changefeed.EventUpdate, before, after, delivery)

	res.FromModel(after)

	return res, nil
}

func (s *serviceImpl) CheckAvailability(ctx context.Context, req dto.AvailabilityRequest) (res dto.AvailabilityResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".CheckAvailability")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	date, window, err := req.Schedule.Parse()
	if err != nil {
		return res, validationError(err.Error())
	}

	existing, err := s.repo.ActiveOnDate(ctx, nil, req.ConsultantID, date)
	if err != nil {
		log.Error().Err(err).Str("consultant_id", req.ConsultantID).Msg("failed to get active requests")

		return res, storageError("failed to get active requests", err)
	}

	result, err := slot.Check(slot.Proposal{
		ConsultantID: req.ConsultantID,
		Date:         date,
		Window:       window,
		ExcludeID:    req.ExcludeID,
	}, model.Bookings(existing))
	if err != nil {
		return res, validationError(err.Error())
	}

	res.FromResult(result)

	return res, nil
}

func (s *serviceImpl) Get(ctx context.Context, id string) (res dto.RequestResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".Get")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	cacheKey := shared.BuildCacheKey(cacheGetRequest, id)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for request")

		if err = canRead(actor, res.ConsultantID, res.CreatedBy); err != nil {
			return dto.RequestResponse{}, err
		}

		return res, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("cache unavailable, reading from database")
	}

	request, err := s.repo.Get(ctx, shared.FilterByID(id, model.FieldID, model.TableName))
	if err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to get request")

		return res, storageError("failed to get request", err)
	}

	if request.ID == constant.Empty {
		return res, notFound()
	}

	if err = canRead(actor, request.ConsultantID, request.CreatedBy); err != nil {
		return res, err
	}

	res.FromModel(request)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save request to cache")
		}
	}()

	return res, nil
}

func (s *serviceImpl) GetAll(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRequestsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetAll")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	return s.list(ctx, normalizeSort(params), filter)
}

// GetMine narrows the listing to requests the caller created (sales) or is assigned to (consultant).
func (s *serviceImpl) GetMine(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRequestsResponse, err error) {
	ctx, scope := s.otel.NewScope(ctx, constant.OtelServiceScopeName, constant.OtelServiceScopeName+".GetMine")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	actor := identity.FromContext(ctx)
	if actor.ID == constant.Empty {
		return res, notAuthorized("missing acting user")
	}

	field := constant.FieldCreatedBy
	if actor.Is(constant.RoleConsultant) {
		field = model.FieldConsultantID
	}

	mine := gDto.And(gDto.Filter{
		ArgName:  "mine",
		Field:    field,
		Operator: gDto.FilterOperatorEq,
		Value:    actor.ID,
		Table:    model.TableName,
	})

	if len(filter.Filters) > 0 {
		mine = mine.With(filter)
	}

	return s.list(ctx, normalizeSort(params), mine)
}

func (s *serviceImpl) list(ctx context.Context, params gDto.QueryParams, filter gDto.FilterGroup) (res dto.GetRequestsResponse, err error) {
	cacheKey := shared.BuildCacheKeyWithQuery(cacheGetAllRequest, params, filter)

	if err = s.cache.Get(ctx, cacheKey, &res); err == nil {
		log.Info().Str("cacheKey", cacheKey).Msg("cache hit for requests")

		return res, nil
	} else if !cache.IsMiss(err) {
		log.Warn().Err(err).Str("cacheKey", cacheKey).Msg("cache unavailable, reading from database")
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to count requests")

		return res, storageError("failed to count requests", err)
	}

	requests, err := s.repo.GetAll(ctx, params, filter)
	if err != nil {
		log.Error().Err(err).Msg("failed to get requests")

		return res, storageError("failed to get requests", err)
	}

	res.FromModels(requests, total, params.Limit)

	go func() {
		c := context.WithoutCancel(ctx)

		if err := s.cache.Save(c, cacheKey, res, s.cfg.Cache.TTL); err != nil {
			log.Error().Err(err).Msg("failed to save requests to cache")
		}
	}()

	return res, nil
}

// lockForTransition loads the request under FOR UPDATE and applies the consultant and pending guards.
func (s *serviceImpl) lockForTransition(ctx context.Context, tx *sqlx.Tx, id string, actor identity.Actor) (model.Request, error) {
	current, err := s.repo.GetForUpdate(ctx, tx, id)
	if err != nil {
		return current, storageError("failed to get request", err)
	}

	if current.ID == constant.Empty {
		return current, notFound()
	}

	if current.ConsultantID != actor.ID {
		return current, notAuthorized("only the assigned consultant can change this request")
	}

	if current.Status != model.StatusPending {
		return current, invalidTransition(current.Status)
	}

	return current, nil
}

func (s *serviceImpl) ensureAvailable(ctx context.Context, tx *sqlx.Tx, operation string, proposal slot.Proposal) error {
	existing, err := s.repo.ActiveOnDate(ctx, tx, proposal.ConsultantID, proposal.Date)
	if err != nil {
		return storageError("failed to get active requests", err)
	}

	result, err := slot.Check(proposal, model.Bookings(existing))
	if err != nil {
		return validationError(err.Error())
	}

	if !result.Available {
		s.metrics.IncSlotConflict(operation)

		return newSlotConflict(result)
	}

	return nil
}

// afterCommit runs the side effects that must not happen unless the transaction committed.
func (s *serviceImpl) afterCommit(ctx context.Context, eventType changefeed.EventType, before, after model.Request, delivery *notificationService.Delivery) {
	current := dto.RequestResponse{}
	current.FromModel(after)

	var previous any

	if eventType != changefeed.EventInsert {
		prior := dto.RequestResponse{}
		prior.FromModel(before)
		previous = prior
	}

	event, err := changefeed.NewEvent(model.TableName, eventType, after.ChangeKeys(), previous, current)
	if err != nil {
		log.Error().Err(err).Str("id", after.ID).Msg("failed to build request change event")
	} else {
		s.feed.Publish(ctx, event)
	}

	s.notification.Deliver(ctx, delivery)

	go func() {
		c := context.WithoutCancel(ctx)

		s.invalidate(c, after.ID)

		// a read that loaded the row before the commit may save it after the first pass
		if delay := time.Duration(s.cfg.Cache.RevalidateMillis) * time.Millisecond; delay > 0 {
			time.Sleep(delay)
			s.invalidate(c, after.ID)
		}
	}()
}

func (s *serviceImpl) invalidate(ctx context.Context, id string) {
	if err := s.cache.Delete(ctx, shared.BuildCacheKey(cacheGetRequest, id)); err != nil {
		log.Error().Err(err).Str("id", id).Msg("failed to delete request cache")
	}

	shared.InvalidateCaches(ctx, s.cache, cacheGetAllRequest)
}

func canRead(actor identity.Actor, consultantID, createdBy string) error {
	if actor.Is(constant.RoleAdmin) {
		return nil
	}

	if model.IsParty(actor.ID, consultantID, createdBy) {
		return nil
	}

	return notAuthorized("you are not a party to this request")
}

func normalizeSort(params gDto.QueryParams) gDto.QueryParams {
	if !slices.Contains(sortableFields, params.SortBy) {
		params.SortBy = constant.DefaultValueSortBy
		params.SortDir = constant.DefaultValueSortDir
	}

	if params.SortDir == constant.Empty {
		params.SortDir = constant.DefaultValueSortDir
	}

	return params
}
