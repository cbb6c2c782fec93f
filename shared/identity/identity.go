// Package identity reads the acting user that the auth middleware stored on the request context.
package identity

import (
	"context"
	"slotwise/shared/constant"
)

type Actor struct {
	ID    string
	Email string
	Name  string
	Role  string
}

func FromContext(ctx context.Context) Actor {
	id, _ := ctx.Value(constant.ContextKeyUserID).(string)
	email, _ := ctx.Value(constant.ContextKeyUserEmail).(string)
	name, _ := ctx.Value(constant.ContextKeyUserName).(string)
	role, _ := ctx.Value(constant.ContextKeyUserRole).(string)

	return Actor{
		ID:    id,
		Email: email,
		Name:  name,
		Role:  role,
	}
}

func WithActor(ctx context.Context, actor Actor) context.Context {
	ctx = context.WithValue(ctx, constant.ContextKeyUserID, actor.ID)
	ctx = context.WithValue(ctx, constant.ContextKeyUserEmail, actor.Email)
	ctx = context.WithValue(ctx, constant.ContextKeyUserName, actor.Name)
	ctx = context.WithValue(ctx, constant.ContextKeyUserRole, actor.Role)

	return ctx
}

// DisplayName falls back from name to email to fallback.
func (a Actor) DisplayName(fallback string) string {
	switch {
	case a.Name != "":
		return a.Name
	case a.Email != "":
		return a.Email
	default:
		return fallback
	}
}

func (a Actor) Is(role string) bool {
	return a.Role == role
}
