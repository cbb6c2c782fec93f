package response_test

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slotwise/shared/failure"
	"slotwise/transport/http/response"
	"testing"

	"github.com/stretchr/testify/assert"
)

type detailed struct{}

func (detailed) Error() string { return "slot taken" }

func (detailed) Details() any { return map[string]string{"next_available": "10:20"} }

func TestWithJSON(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithJSON(rec, http.StatusCreated, map[string]string{"id": "r-1"})

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"data":{"id":"r-1"}}`, rec.Body.String())
}

func TestWithError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{
			name:     "failure code",
			err:      failure.NotFound("request not found"),
			wantCode: http.StatusNotFound,
			wantBody: `{"error":"request not found"}`,
		},
		{
			name:     "plain error is internal",
			err:      errors.New("boom"),
			wantCode: http.StatusInternalServerError,
			wantBody: `{"error":"boom"}`,
		},
		{
			name:     "details found through the chain",
			err:      failure.Wrap(http.StatusConflict, "slot taken", fmt.Errorf("check: %w", detailed{})),
			wantCode: http.StatusConflict,
			wantBody: `{"error":"slot taken","details":{"next_available":"10:20"}}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()

			response.WithError(rec, tt.err)

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.JSONEq(t, tt.wantBody, rec.Body.String())
		})
	}
}

func TestWithMessage(t *testing.T) {
	rec := httptest.NewRecorder()

	response.WithRequestLimitExceeded(rec)

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), `"message"`)
}
