package mocks

import (
	"context"
	"slotwise/infras/otel"
)

// otelImpl opens scopes that record nothing.
type otelImpl struct{}

func (o *otelImpl) NewScope(ctx context.Context, _, _ string) (context.Context, otel.Scope) {
	return ctx, NewScope()
}

func (o *otelImpl) Shutdown(context.Context) error {
	return nil
}

func NewOtel() otel.Otel {
	return &otelImpl{}
}
