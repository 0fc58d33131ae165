package tenant

import (
	"context"

	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/google/uuid"
)

type ctxKey struct{}

type actorKey struct{}

// WithTenant stores the tenant id on the context.
func WithTenant(ctx context.Context, tenantID uuid.UUID) context.Context {
	return context.WithValue(ctx, ctxKey{}, tenantID)
}

// FromContext returns the tenant id, if present.
func FromContext(ctx context.Context) (uuid.UUID, bool) {
	if ctx == nil {
		return uuid.Nil, false
	}
	id, ok := ctx.Value(ctxKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// WithActor stores the acting user id on the context.
func WithActor(ctx context.Context, userID uuid.UUID) context.Context {
	return context.WithValue(ctx, actorKey{}, userID)
}

// ActorFromContext returns the acting user id, or nil when the caller is a
// system process.
func ActorFromContext(ctx context.Context) *uuid.UUID {
	if ctx == nil {
		return nil
	}
	id, ok := ctx.Value(actorKey{}).(uuid.UUID)
	if !ok || id == uuid.Nil {
		return nil
	}
	return &id
}

// Scope is required by every repository read. A zero TenantID is refused.
type Scope struct {
	TenantID       uuid.UUID
	IncludeDeleted bool
}

// Validate rejects scopes without a tenant.
func (s Scope) Validate() error {
	if s.TenantID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeForbidden, "tenant scope is required")
	}
	return nil
}

// ScopeFromContext builds a scope from the tenant on ctx.
func ScopeFromContext(ctx context.Context, includeDeleted bool) (Scope, error) {
	id, ok := FromContext(ctx)
	if !ok {
		return Scope{}, pkgerrors.New(pkgerrors.CodeForbidden, "tenant context is required")
	}
	return Scope{TenantID: id, IncludeDeleted: includeDeleted}, nil
}
