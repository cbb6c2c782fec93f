package notification_test

import (
	"net/http"
	"net/http/httptest"
	otelMocks "slotwise/infras/otel/mocks"
	"slotwise/internal/domains/notification/mocks"
	"slotwise/internal/domains/notification/model/dto"
	"slotwise/internal/handlers/notification"
	gDto "slotwise/shared/dto"
	"slotwise/shared/failure"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func setup(t *testing.T) (*mocks.MockNotificationService, http.Handler) {
	t.Helper()

	svc := mocks.NewMockNotificationService(gomock.NewController(t))
	handler := notification.New(svc, otelMocks.NewOtel())

	router := chi.NewRouter()
	handler.Router(router)

	return svc, router
}

func serve(router http.Handler, method, target string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(method, target, nil))

	return rec
}

func TestHandler_GetNotifications(t *testing.T) {
	t.Run("unread only", func(t *testing.T) {
		svc, router := setup(t)

		svc.EXPECT().GetAll(gomock.Any(), gomock.Any(), gomock.Any()).
			DoAndReturn(func(_ any, _ gDto.QueryParams, unread *bool) (dto.GetNotificationsResponse, error) {
				require.NotNil(t, unread)
				assert.True(t, *unread)

				return dto.GetNotificationsResponse{Notifications: []dto.NotificationResponse{{ID: "n-1"}}, TotalData: 1, TotalPage: 1}, nil
			})

		rec := serve(router, http.MethodGet, "/notifications?unread=true")

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"id":"n-1"`)
	})

	t.Run("no unread filter", func(t *testing.T) {
		svc, router := setup(t)

		svc.EXPECT().GetAll(gomock.Any(), gomock.Any(), (*bool)(nil)).Return(dto.GetNotificationsResponse{}, nil)

		rec := serve(router, http.MethodGet, "/notifications")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("bad unread value", func(t *testing.T) {
		_, router := setup(t)

		rec := serve(router, http.MethodGet, "/notifications?unread=maybe")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_CountUnread(t *testing.T) {
	svc, router := setup(t)

	svc.EXPECT().CountUnread(gomock.Any()).Return(dto.UnreadCountResponse{Unread: 3}, nil)

	rec := serve(router, http.MethodGet, "/notifications/unread-count")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"unread":3}}`, rec.Body.String())
}

func TestHandler_MarkRead(t *testing.T) {
	const id = "6a1f0c3e-2b7d-4e0a-9c55-1f3b8d2e4a70"

	t.Run("marked", func(t *testing.T) {
		svc, router := setup(t)

		svc.EXPECT().MarkRead(gomock.Any(), id).Return(nil)

		rec := serve(router, http.MethodPatch, "/notifications/"+id+"/read")

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not the caller's", func(t *testing.T) {
		svc, router := setup(t)

		svc.EXPECT().MarkRead(gomock.Any(), id).Return(failure.NotFound("notification"))

		rec := serve(router, http.MethodPatch, "/notifications/"+id+"/read")

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("malformed id", func(t *testing.T) {
		_, router := setup(t)

		rec := serve(router, http.MethodPatch, "/notifications/nope/read")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestHandler_BulkOperations(t *testing.T) {
	svc, router := setup(t)

	svc.EXPECT().MarkAllRead(gomock.Any()).Return(dto.BulkResponse{Affected: 4}, nil)
	svc.EXPECT().Clear(gomock.Any()).Return(dto.BulkResponse{}, failure.ServiceUnavailable(assert.AnError))

	rec := serve(router, http.MethodPatch, "/notifications/read")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":{"affected":4}}`, rec.Body.String())

	rec = serve(router, http.MethodDelete, "/notifications")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
