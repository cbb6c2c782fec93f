package push_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slotwise/config"
	"slotwise/infras/otel/mocks"
	"slotwise/infras/push"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newConfig(url string, enable bool) *config.Config {
	cfg := &config.Config{}
	cfg.External.Push.Enable = enable
	cfg.External.Push.URL = url
	cfg.External.Push.APIKey = "secret"
	cfg.External.Push.TimeoutSeconds = 2

	return cfg
}

func TestClient_Deliver(t *testing.T) {
	var received push.Payload

	var auth string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")

		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	client := push.New(newConfig(server.URL, true), mocks.NewOtel())
	require.True(t, client.Enabled())

	err := client.Deliver(context.Background(), "sales-1", "Request Approved", "body text", map[string]any{
		"type":      "approved",
		"requestId": "req-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", auth)
	assert.Equal(t, "sales-1", received.RecipientID)
	assert.Equal(t, "Request Approved", received.Title)
	assert.Equal(t, "body text", received.Body)
	assert.Equal(t, "approved", received.Data["type"])
	assert.Equal(t, "req-1", received.Data["requestId"])
}

func TestClient_Deliver_Rejected(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"User not subscribed to push notifications"}`))
	}))
	defer server.Close()

	client := push.New(newConfig(server.URL, true), mocks.NewOtel())

	err := client.Deliver(context.Background(), "sales-1", "Request Rejected", "body", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, push.ErrDeliveryRejected)
	assert.Contains(t, err.Error(), "404")
}

func TestClient_Deliver_Disabled(t *testing.T) {
	called := false

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true

		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	tests := []struct {
		name string
		cfg  *config.Config
	}{
		{name: "disabled by flag", cfg: newConfig(server.URL, false)},
		{name: "enabled without url", cfg: newConfig("", true)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := push.New(tt.cfg, mocks.NewOtel())

			assert.False(t, client.Enabled())
			assert.NoError(t, client.Deliver(context.Background(), "sales-1", "t", "b", nil))
		})
	}

	assert.False(t, called)
}
