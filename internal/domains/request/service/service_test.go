package service_test

import (
	"context"
	"errors"
	"net/http"
	"slotwise/config"
	"slotwise/infras/metrics"
	otelMocks "slotwise/infras/otel/mocks"
	pushMocks "slotwise/infras/push/mocks"
	"slotwise/internal/domains/changefeed"
	notificationMocks "slotwise/internal/domains/notification/mocks"
	notificationModel "slotwise/internal/domains/notification/model"
	notificationService "slotwise/internal/domains/notification/service"
	requestMocks "slotwise/internal/domains/request/mocks"
	"slotwise/internal/domains/request/model"
	"slotwise/internal/domains/request/model/dto"
	"slotwise/internal/domains/request/service"
	"slotwise/shared/cache"
	cacheMocks "slotwise/shared/cache/mocks"
	"slotwise/shared/clock"
	"slotwise/shared/constant"
	gDto "slotwise/shared/dto"
	"slotwise/shared/failure"
	"slotwise/shared/identity"
	gModel "slotwise/shared/model"
	"slotwise/shared/timezone"
	txMocks "slotwise/shared/txmanager/mocks"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jmoiron/sqlx"
	goRedis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const (
	salesID      = "sales-1"
	consultantID = "consultant-1"
	otherID      = "consultant-2"
	requestID    = "5b3f8f0e-8c4e-4a55-9d55-0f8f8b7f2a10"
)

type fixture struct {
	repo      *requestMocks.MockRequest
	notifRepo *notificationMocks.MockNotification
	tx        *txMocks.TxManager
	feed      changefeed.Feed
	svc       service.Request
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	cfg := &config.Config{}
	cfg.Cache.TTL = 60

	mockCache := cacheMocks.NewMockRedisCache(gomock.NewController(t))
	mockCache.EXPECT().Get(gomock.Any(), gomock.Any(), gomock.Any()).Return(cache.Nil).AnyTimes()
	mockCache.EXPECT().Save(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Delete(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	mockCache.EXPECT().Clear(gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	return newFixtureWith(t, cfg, mockCache)
}

func newFixtureWith(t *testing.T, cfg *config.Config, redisCache cache.RedisCache) *fixture {
	t.Helper()

	ctrl := gomock.NewController(t)

	mockPush := pushMocks.NewMockClient(ctrl)
	mockPush.EXPECT().Enabled().Return(false).AnyTimes()

	recorder := metrics.NewRecorder(metrics.New(cfg))

	f := &fixture{
		repo:      requestMocks.NewMockRequest(ctrl),
		notifRepo: notificationMocks.NewMockNotification(ctrl),
		tx:        txMocks.NewTxManager(),
		feed:      changefeed.New(recorder),
	}

	notification := notificationService.New(f.notifRepo, mockPush, f.feed, recorder, cfg, otelMocks.NewOtel())
	f.svc = service.New(f.repo, notification, f.tx, f.feed, redisCache, recorder, cfg, otelMocks.NewOtel())

	return f
}

// captureNotifications records every notification written inside a transaction.
func (f *fixture) captureNotifications() *[]notificationModel.Notification {
	written := []notificationModel.Notification{}

	f.notifRepo.EXPECT().
		InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, n notificationModel.Notification) error {
			written = append(written, n)

			return nil
		}).
		AnyTimes()

	return &written
}

func (f *fixture) captureEvents(table string) *[]changefeed.Event {
	events := []changefeed.Event{}

	f.feed.Subscribe(table, nil, func(e changefeed.Event) {
		events = append(events, e)
	})

	return &events
}

func actorCtx(id, name, role string) context.Context {
	return identity.WithActor(context.Background(), identity.Actor{ID: id, Name: name, Role: role})
}

func date(t *testing.T, value string) time.Time {
	t.Helper()

	parsed, err := timezone.Parse(constant.DateOnlyFormat, value)
	require.NoError(t, err)

	return parsed
}

func booking(t *testing.T, id, day, from, to string, status model.Status) model.Request {
	t.Helper()

	return model.Request{
		ID:            id,
		ConsultantID:  consultantID,
		ClientName:    "Acme",
		RequestedDate: date(t, day),
		FromTime:      clock.MustParse(from),
		ToTime:        clock.MustParse(to),
		Notes:         "Bring slides",
		Status:        status,
		Metadata: gModel.Metadata{
			CreatedBy:  salesID,
			ModifiedBy: salesID,
		},
	}
}

func createRequest(day, from, to string) dto.CreateRequest {
	return dto.CreateRequest{
		ConsultantID: consultantID,
		ClientName:   "Globex",
		Notes:        "First meeting",
		Schedule: dto.Schedule{
			RequestedDate: day,
			FromTime:      from,
			ToTime:        to,
		},
	}
}

func TestRequestService_Create_SlotConflict(t *testing.T) {
	f := newFixture(t)
	events := f.captureEvents(model.TableName)

	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
		Return([]model.Request{booking(t, "existing", "2024-01-10", "09:00", "10:00", model.StatusApproved)}, nil)

	_, err := f.svc.Create(actorCtx(salesID, "Sam", constant.RoleSales), createRequest("2024-01-10", "10:15", "11:00"))
	require.Error(t, err)

	assert.ErrorIs(t, err, service.ErrSlotConflict)
	assert.Equal(t, http.StatusConflict, failure.GetCode(err))
	assert.Equal(t, "This consultant is already booked from 09:00 to 10:00. Please choose a time after 10:20 (with 20-minute buffer).", err.Error())

	var conflict *service.SlotConflictError
	require.ErrorAs(t, err, &conflict)
	assert.Equal(t, "10:20", conflict.NextAvailable.Format(clock.Layout))
	assert.Equal(t, "09:00 - 10:00", conflict.Conflict.String())

	assert.Empty(t, *events)
	assert.Equal(t, []string{consultantID + "|2024-01-10"}, f.tx.Keys)
}

func TestRequestService_Create_Available(t *testing.T) {
	f := newFixture(t)
	written := f.captureNotifications()
	events := f.captureEvents(model.TableName)

	var inserted model.Request

	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
		Return([]model.Request{booking(t, "existing", "2024-01-10", "09:00", "10:00", model.StatusApproved)}, nil)
	f.repo.EXPECT().
		InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req model.Request) error {
			inserted = req

			return nil
		})

	res, err := f.svc.Create(actorCtx(salesID, "Sam", constant.RoleSales), createRequest("2024-01-10", "10:20", "11:00"))
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusPending), res.Status)
	assert.Equal(t, "2024-01-10", res.RequestedDate)
	assert.Equal(t, "10:20", res.FromTime)
	assert.Equal(t, "11:00", res.ToTime)
	assert.Equal(t, salesID, inserted.CreatedBy)
	assert.Equal(t, inserted.ID, res.ID)

	require.Len(t, *written, 1)
	assert.Equal(t, consultantID, (*written)[0].RecipientID)
	assert.Equal(t, notificationModel.TypeCreated, (*written)[0].Type)
	assert.Equal(t, "New request received for Globex", (*written)[0].Message)
	assert.Equal(t, res.ID, *(*written)[0].RequestID)

	require.Len(t, *events, 1)
	assert.Equal(t, changefeed.EventInsert, (*events)[0].Type)
	assert.Equal(t, consultantID, (*events)[0].Keys[model.FieldConsultantID])
}

func TestRequestService_Create_Validation(t *testing.T) {
	tests := []struct {
		name string
		ctx  context.Context
		req  dto.CreateRequest
		want error
	}{
		{
			name: "window ends before it starts",
			ctx:  actorCtx(salesID, "", constant.RoleSales),
			req:  createRequest("2024-01-10", "11:00", "10:00"),
			want: service.ErrValidation,
		},
		{
			name: "empty window",
			ctx:  actorCtx(salesID, "", constant.RoleSales),
			req:  createRequest("2024-01-10", "10:00", "10:00"),
			want: service.ErrValidation,
		},
		{
			name: "blank client name",
			ctx:  actorCtx(salesID, "", constant.RoleSales),
			req: func() dto.CreateRequest {
				req := createRequest("2024-01-10", "09:00", "10:00")
				req.ClientName = "   "

				return req
			}(),
			want: service.ErrValidation,
		},
		{
			name: "no acting user",
			ctx:  context.Background(),
			req:  createRequest("2024-01-10", "09:00", "10:00"),
			want: service.ErrNotAuthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			_, err := f.svc.Create(tt.ctx, tt.req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, f.tx.Keys)
		})
	}
}

func TestRequestService_Create_StorageError(t *testing.T) {
	f := newFixture(t)
	events := f.captureEvents(model.TableName)

	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
		Return(nil, errors.New("connection refused"))

	_, err := f.svc.Create(actorCtx(salesID, "", constant.RoleSales), createRequest("2024-01-10", "09:00", "10:00"))
	require.Error(t, err)

	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Equal(t, http.StatusServiceUnavailable, failure.GetCode(err))
	assert.Empty(t, *events)
}

func TestRequestService_Create_NotificationWriteFails(t *testing.T) {
	f := newFixture(t)
	events := f.captureEvents(model.TableName)

	f.repo.EXPECT().ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).Return(nil, nil)
	f.repo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	f.notifRepo.EXPECT().InsertTx(gomock.Any(), gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

	_, err := f.svc.Create(actorCtx(salesID, "", constant.RoleSales), createRequest("2024-01-10", "09:00", "10:00"))
	require.Error(t, err)

	assert.ErrorIs(t, err, service.ErrStorage)
	assert.Empty(t, *events)
}

func TestRequestService_Approve(t *testing.T) {
	f := newFixture(t)
	written := f.captureNotifications()
	requestEvents := f.captureEvents(model.TableName)
	notificationEvents := f.captureEvents(notificationModel.TableName)

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

	var updated map[string]any

	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().
		UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req map[string]any, _ gDto.FilterGroup) error {
			updated = req

			return nil
		})

	res, err := f.svc.Approve(actorCtx(consultantID, "Dr. Chen", constant.RoleConsultant), requestID)
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusApproved), res.Status)
	assert.Equal(t, model.StatusApproved, updated[model.FieldStatus])
	assert.Equal(t, consultantID, updated[constant.FieldModifiedBy])

	require.Len(t, *written, 1)
	assert.Equal(t, salesID, (*written)[0].RecipientID)
	assert.Equal(t, notificationModel.TypeApproved, (*written)[0].Type)
	assert.Contains(t, (*written)[0].Message, "approved")
	assert.Equal(t, "Your request for Acme on January 10, 2024, 09:00 - 10:00 has been approved by Dr. Chen", (*written)[0].Message)

	require.Len(t, *requestEvents, 1)
	assert.Equal(t, changefeed.EventUpdate, (*requestEvents)[0].Type)

	var previous, current dto.RequestResponse
	require.NoError(t, (*requestEvents)[0].Decode(&previous, &current))
	assert.Equal(t, string(model.StatusPending), previous.Status)
	assert.Equal(t, string(model.StatusApproved), current.Status)

	require.Len(t, *notificationEvents, 1)
	assert.Equal(t, salesID, (*notificationEvents)[0].Keys[notificationModel.FieldRecipientID])
}

func TestRequestService_Reject(t *testing.T) {
	f := newFixture(t)
	written := f.captureNotifications()

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	// no display name on the token falls back to the generic label
	res, err := f.svc.Reject(actorCtx(consultantID, "", constant.RoleConsultant), requestID)
	require.NoError(t, err)

	assert.Equal(t, string(model.StatusRejected), res.Status)
	require.Len(t, *written, 1)
	assert.Equal(t, "Your request for Acme has been rejected by Consultant", (*written)[0].Message)
}

func TestRequestService_Reschedule(t *testing.T) {
	f := newFixture(t)
	written := f.captureNotifications()

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

	var updated map[string]any

	f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending, nil)
	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, date(t, "2024-02-01")).
		Return([]model.Request{}, nil)
	f.repo.EXPECT().
		UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ *sqlx.Tx, req map[string]any, _ gDto.FilterGroup) error {
			updated = req

			return nil
		})

	res, err := f.svc.Reschedule(actorCtx(consultantID, "Dr. Chen", constant.RoleConsultant), requestID, dto.RescheduleRequest{
		Message: "conflict resolved",
		Schedule: dto.Schedule{
			RequestedDate: "2024-02-01",
			FromTime:      "14:00",
			ToTime:        "15:00",
		},
	})
	require.NoError(t, err)

	assert.Equal(t, "2024-02-01", res.RequestedDate)
	assert.Equal(t, "14:00", res.FromTime)
	assert.Equal(t, "15:00", res.ToTime)
	assert.Equal(t, string(model.StatusRescheduled), res.Status)
	assert.Equal(t, "Bring slides\n\nReschedule message: conflict resolved", res.Notes)

	assert.Equal(t, model.StatusRescheduled, updated[model.FieldStatus])
	assert.Equal(t, clock.MustParse("14:00"), updated[model.FieldFromTime])
	assert.Equal(t, clock.MustParse("15:00"), updated[model.FieldToTime])
	assert.Equal(t, res.Notes, updated[model.FieldNotes])

	require.Len(t, *written, 1)
	assert.Equal(t, salesID, (*written)[0].RecipientID)
	assert.Equal(t, "Your request for Acme on February 1, 2024, 14:00 - 15:00 has been rescheduled by Dr. Chen", (*written)[0].Message)

	assert.Equal(t, []string{consultantID + "|2024-02-01"}, f.tx.Keys)
}

func TestRequestService_Reschedule_IntoOwnSlot(t *testing.T) {
	f := newFixture(t)
	f.captureNotifications()

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

	f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending, nil)
	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
		Return([]model.Request{pending}, nil)
	f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	res, err := f.svc.Reschedule(actorCtx(consultantID, "", constant.RoleConsultant), requestID, dto.RescheduleRequest{
		Schedule: dto.Schedule{RequestedDate: "2024-01-10", FromTime: "09:30", ToTime: "10:30"},
	})
	require.NoError(t, err)

	// notes are untouched without a message
	assert.Equal(t, "Bring slides", res.Notes)
}

func TestRequestService_Reschedule_SlotConflict(t *testing.T) {
	f := newFixture(t)

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)
	other := booking(t, "other", "2024-01-11", "13:00", "14:00", model.StatusApproved)

	f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending, nil)
	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().
		ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
		Return([]model.Request{other}, nil)

	_, err := f.svc.Reschedule(actorCtx(consultantID, "", constant.RoleConsultant), requestID, dto.RescheduleRequest{
		Schedule: dto.Schedule{RequestedDate: "2024-01-11", FromTime: "14:10", ToTime: "15:00"},
	})
	require.Error(t, err)

	assert.ErrorIs(t, err, service.ErrSlotConflict)
	assert.Contains(t, err.Error(), "Please choose a time after 14:20")
}

func TestRequestService_TransitionGuards(t *testing.T) {
	rescheduleTo := dto.RescheduleRequest{
		Schedule: dto.Schedule{RequestedDate: "2024-01-12", FromTime: "09:00", ToTime: "10:00"},
	}

	operations := map[string]func(svc service.Request, ctx context.Context) error{
		"approve": func(svc service.Request, ctx context.Context) error {
			_, err := svc.Approve(ctx, requestID)

			return err
		},
		"reject": func(svc service.Request, ctx context.Context) error {
			_, err := svc.Reject(ctx, requestID)

			return err
		},
		"reschedule": func(svc service.Request, ctx context.Context) error {
			_, err := svc.Reschedule(ctx, requestID, rescheduleTo)

			return err
		},
	}

	for name, operation := range operations {
		for _, status := range []model.Status{model.StatusApproved, model.StatusRejected, model.StatusRescheduled} {
			t.Run(name+" from "+status.String(), func(t *testing.T) {
				f := newFixture(t)
				current := booking(t, requestID, "2024-01-10", "09:00", "10:00", status)

				f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil).AnyTimes()
				f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(current, nil)

				err := operation(f.svc, actorCtx(consultantID, "", constant.RoleConsultant))
				require.Error(t, err)
				assert.ErrorIs(t, err, service.ErrInvalidTransition)
				assert.Equal(t, http.StatusConflict, failure.GetCode(err))
			})
		}

		t.Run(name+" by another consultant", func(t *testing.T) {
			f := newFixture(t)
			current := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(current, nil).AnyTimes()
			f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(current, nil).AnyTimes()

			err := operation(f.svc, actorCtx(otherID, "", constant.RoleConsultant))
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrNotAuthorized)
			assert.Equal(t, http.StatusForbidden, failure.GetCode(err))
		})

		t.Run(name+" missing request", func(t *testing.T) {
			f := newFixture(t)

			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(model.Request{}, nil).AnyTimes()
			f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(model.Request{}, nil).AnyTimes()

			err := operation(f.svc, actorCtx(consultantID, "", constant.RoleConsultant))
			require.Error(t, err)
			assert.ErrorIs(t, err, service.ErrNotFound)
			assert.Equal(t, http.StatusNotFound, failure.GetCode(err))
		})
	}
}

func TestRequestService_TransitionUpdateFails(t *testing.T) {
	operations := []struct {
		name string
		run  func(f *fixture, ctx context.Context) error
	}{
		{
			name: "approve",
			run: func(f *fixture, ctx context.Context) error {
				_, err := f.svc.Approve(ctx, requestID)

				return err
			},
		},
		{
			name: "reject",
			run: func(f *fixture, ctx context.Context) error {
				_, err := f.svc.Reject(ctx, requestID)

				return err
			},
		},
		{
			name: "reschedule",
			run: func(f *fixture, ctx context.Context) error {
				f.repo.EXPECT().
					ActiveOnDate(gomock.Any(), gomock.Any(), consultantID, gomock.Any()).
					Return([]model.Request{}, nil)

				_, err := f.svc.Reschedule(ctx, requestID, dto.RescheduleRequest{
					Message:  "moved",
					Schedule: dto.Schedule{RequestedDate: "2024-02-01", FromTime: "14:00", ToTime: "15:00"},
				})

				return err
			},
		},
	}

	for _, tt := range operations {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			written := f.captureNotifications()
			requestEvents := f.captureEvents(model.TableName)
			notificationEvents := f.captureEvents(notificationModel.TableName)

			pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(pending, nil).AnyTimes()
			f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
			f.repo.EXPECT().
				UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
				Return(errors.New("connection reset"))

			err := tt.run(f, actorCtx(consultantID, "Dr. Chen", constant.RoleConsultant))
			require.Error(t, err)

			assert.ErrorIs(t, err, service.ErrStorage)
			assert.Equal(t, http.StatusServiceUnavailable, failure.GetCode(err))
			assert.Empty(t, *written)
			assert.Empty(t, *requestEvents)
			assert.Empty(t, *notificationEvents)
		})
	}
}

func TestRequestService_Approve_DropsCacheWrittenDuringCommit(t *testing.T) {
	server := miniredis.RunT(t)
	client := goRedis.NewClient(&goRedis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	cfg := &config.Config{}
	cfg.Cache.TTL = 60
	cfg.Cache.RevalidateMillis = 200

	f := newFixtureWith(t, cfg, cache.NewRedisCache(client, otelMocks.NewOtel()))
	f.captureNotifications()

	pending := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)
	key := "booking_request:get:" + requestID

	require.NoError(t, server.Set(key, `{"status":"pending"}`))

	f.repo.EXPECT().GetForUpdate(gomock.Any(), gomock.Any(), requestID).Return(pending, nil)
	f.repo.EXPECT().UpdateTx(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)

	_, err := f.svc.Approve(actorCtx(consultantID, "", constant.RoleConsultant), requestID)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return !server.Exists(key) }, time.Second, time.Millisecond)

	// a read that loaded the row before the commit saves the old status late
	require.NoError(t, server.Set(key, `{"status":"pending"}`))

	assert.Eventually(t, func() bool { return !server.Exists(key) }, 2*time.Second, 5*time.Millisecond)
}

func TestRequestService_CheckAvailability(t *testing.T) {
	tests := []struct {
		name      string
		from      string
		to        string
		available bool
		next      string
	}{
		{name: "inside buffer", from: "10:15", to: "11:00", available: false, next: "10:20"},
		{name: "at buffer end", from: "10:20", to: "11:00", available: true},
		{name: "one minute early", from: "10:19", to: "11:00", available: false, next: "10:20"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			f.repo.EXPECT().
				ActiveOnDate(gomock.Any(), nil, consultantID, gomock.Any()).
				Return([]model.Request{
					booking(t, "existing", "2024-01-10", "09:00", "10:00", model.StatusApproved),
					booking(t, "gone", "2024-01-10", "10:30", "11:30", model.StatusRejected),
				}, nil)

			res, err := f.svc.CheckAvailability(actorCtx(salesID, "", constant.RoleSales), dto.AvailabilityRequest{
				ConsultantID: consultantID,
				Schedule:     dto.Schedule{RequestedDate: "2024-01-10", FromTime: tt.from, ToTime: tt.to},
			})
			require.NoError(t, err)

			assert.Equal(t, tt.available, res.Available)
			assert.Equal(t, tt.next, res.NextAvailable)

			if !tt.available {
				require.NotNil(t, res.Conflict)
				assert.Equal(t, "existing", res.Conflict.ID)
			}
		})
	}
}

func TestRequestService_Get(t *testing.T) {
	stored := booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)

	tests := []struct {
		name    string
		ctx     context.Context
		wantErr error
	}{
		{name: "creator", ctx: actorCtx(salesID, "", constant.RoleSales)},
		{name: "consultant", ctx: actorCtx(consultantID, "", constant.RoleConsultant)},
		{name: "admin", ctx: actorCtx("admin-1", "", constant.RoleAdmin)},
		{name: "stranger", ctx: actorCtx(otherID, "", constant.RoleConsultant), wantErr: service.ErrNotAuthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.repo.EXPECT().Get(gomock.Any(), gomock.Any()).Return(stored, nil)

			res, err := f.svc.Get(tt.ctx, requestID)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			assert.Equal(t, requestID, res.ID)
			assert.Equal(t, salesID, res.CreatedBy)
		})
	}
}

func TestRequestService_GetMine(t *testing.T) {
	tests := []struct {
		name  string
		ctx   context.Context
		field string
	}{
		{name: "sales sees what they created", ctx: actorCtx(salesID, "", constant.RoleSales), field: constant.FieldCreatedBy},
		{name: "consultant sees what is assigned", ctx: actorCtx(consultantID, "", constant.RoleConsultant), field: model.FieldConsultantID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			var seen gDto.FilterGroup

			f.repo.EXPECT().
				Count(gomock.Any(), gomock.Any()).
				DoAndReturn(func(_ context.Context, filter gDto.FilterGroup) (int, error) {
					seen = filter

					return 1, nil
				})
			f.repo.EXPECT().
				GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
				Return([]model.Request{booking(t, requestID, "2024-01-10", "09:00", "10:00", model.StatusPending)}, nil)

			res, err := f.svc.GetMine(tt.ctx, gDto.QueryParams{Page: 1, Limit: 10, SortBy: "1; DROP TABLE x"}, gDto.FilterGroup{})
			require.NoError(t, err)

			assert.Equal(t, 1, res.TotalData)
			require.Len(t, res.Requests, 1)

			require.Len(t, seen.Filters, 1)
			filter, ok := seen.Filters[0].(gDto.Filter)
			require.True(t, ok)
			assert.Equal(t, tt.field, filter.Field)
		})
	}
}

func TestAppendRescheduleMessage(t *testing.T) {
	assert.Equal(t, "Bring slides\n\nReschedule message: moved", service.AppendRescheduleMessage("Bring slides", "moved"))
	assert.Equal(t, "Reschedule message: moved", service.AppendRescheduleMessage("", "moved"))
	assert.Equal(t, "Bring slides", service.AppendRescheduleMessage("Bring slides", "  "))
}

func TestLockKey(t *testing.T) {
	assert.Equal(t, "consultant-1|2024-01-10", service.LockKey(consultantID, date(t, "2024-01-10")))
}
