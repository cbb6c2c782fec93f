package push

//go:generate go run go.uber.org/mock/mockgen -source=./push.go -destination=./mocks/push_mock.go -package=mocks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slotwise/config"
	"slotwise/infras/otel"
	"slotwise/shared/constant"
	"time"

	"github.com/rs/zerolog/log"
)

const defaultTimeout = 10 * time.Second

var ErrDeliveryRejected = errors.New("push delivery rejected")

// Payload is the body accepted by the push function.
type Payload struct {
	RecipientID string         `json:"recipient_id"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	Data        map[string]any `json:"data,omitempty"`
}

type Client interface {
	// Deliver sends one push message. The caller decides what a failure means.
	Deliver(ctx context.Context, recipientID, title, body string, data map[string]any) error
	Enabled() bool
}

type clientImpl struct {
	enabled bool
	url     string
	apiKey  string
	http    *http.Client
	otel    otel.Otel
}

func New(cfg *config.Config, otel otel.Otel) Client {
	timeout := time.Duration(cfg.External.Push.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &clientImpl{
		enabled: cfg.External.Push.Enable && cfg.External.Push.URL != constant.Empty,
		url:     cfg.External.Push.URL,
		apiKey:  cfg.External.Push.APIKey,
		http:    &http.Client{Timeout: timeout},
		otel:    otel,
	}
}

func (c *clientImpl) Enabled() bool {
	return c.enabled
}

func (c *clientImpl) Deliver(ctx context.Context, recipientID, title, body string, data map[string]any) (err error) {
	ctx, scope := c.otel.NewScope(ctx, constant.OtelExternalScopeName, constant.OtelExternalScopeName+".push.Deliver")
	defer scope.End()
	defer func() { scope.TraceIfError(err) }()

	if !c.enabled {
		log.Debug().Str("recipient_id", recipientID).Str("title", title).Msg("push delivery disabled, skipping")

		return nil
	}

	raw, err := json.Marshal(Payload{
		RecipientID: recipientID,
		Title:       title,
		Body:        body,
		Data:        data,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(raw))
	if err != nil {
		return fmt.Errorf("failed to build push request: %w", err)
	}

	req.Header.Set(constant.RequestHeaderContentType, constant.ContentTypeJSON)

	if c.apiKey != constant.Empty {
		req.Header.Set(constant.RequestHeaderAuthorization, "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))

		return fmt.Errorf("%w: status %d: %s", ErrDeliveryRejected, resp.StatusCode, bytes.TrimSpace(msg))
	}

	scope.AddEvent("push delivered to " + recipientID)

	return nil
}
