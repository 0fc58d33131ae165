package middleware

import (
	"context"

	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

type contextKey string

const ctxRole contextKey = "actor_role"

// WithRole injects the operator role into the context.
func WithRole(ctx context.Context, role enums.ActorRole) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxRole, role)
}

func RoleFromContext(ctx context.Context) enums.ActorRole {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxRole).(enums.ActorRole); ok {
		return v
	}
	return ""
}

// UserIDFromContext returns the authenticated operator as a string, or "".
func UserIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if actor := tenant.ActorFromContext(ctx); actor != nil {
		return actor.String()
	}
	return ""
}

// TenantIDFromContext returns the request tenant as a string, or "".
func TenantIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if id, ok := tenant.FromContext(ctx); ok {
		return id.String()
	}
	return ""
}
