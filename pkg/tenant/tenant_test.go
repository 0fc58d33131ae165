package tenant

import (
	"context"
	"testing"

	pkgerrors "github.com/etchbroker/makelar-backend/pkg/errors"
	"github.com/google/uuid"
)

func TestScopeFromContext(t *testing.T) {
	if _, err := ScopeFromContext(context.Background(), false); !pkgerrors.IsCode(err, pkgerrors.CodeForbidden) {
		t.Fatalf("expected forbidden without tenant, got %v", err)
	}

	id := uuid.New()
	scope, err := ScopeFromContext(WithTenant(context.Background(), id), true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scope.TenantID != id || !scope.IncludeDeleted {
		t.Fatalf("unexpected scope %+v", scope)
	}
}

func TestNilTenantIsNotAScope(t *testing.T) {
	ctx := WithTenant(context.Background(), uuid.Nil)
	if _, ok := FromContext(ctx); ok {
		t.Fatal("expected nil tenant to be treated as missing")
	}
	if err := (Scope{}).Validate(); err == nil {
		t.Fatal("expected zero scope to fail validation")
	}
}

func TestActorFromContext(t *testing.T) {
	if ActorFromContext(context.Background()) != nil {
		t.Fatal("expected nil actor")
	}
	id := uuid.New()
	got := ActorFromContext(WithActor(context.Background(), id))
	if got == nil || *got != id {
		t.Fatalf("unexpected actor %v", got)
	}
}
