package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/etchbroker/makelar-backend/pkg/auth"
	"github.com/etchbroker/makelar-backend/pkg/config"
	"github.com/etchbroker/makelar-backend/pkg/enums"
	"github.com/etchbroker/makelar-backend/pkg/tenant"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidToken(t *testing.T) {
	handler := Auth(testJWT, nil)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer invalid")
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthSeedsTenantActorAndRole(t *testing.T) {
	tenantID := uuid.New()
	userID := uuid.New()
	token := mintTestToken(t, userID, tenantID, enums.ActorRoleFinance)

	var (
		gotTenant uuid.UUID
		gotActor  *uuid.UUID
		gotRole   enums.ActorRole
	)
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotTenant, _ = tenant.FromContext(r.Context())
		gotActor = tenant.ActorFromContext(r.Context())
		gotRole = RoleFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if gotTenant != tenantID {
		t.Fatalf("expected tenant %s got %s", tenantID, gotTenant)
	}
	if gotActor == nil || *gotActor != userID {
		t.Fatalf("expected actor %s got %v", userID, gotActor)
	}
	if gotRole != enums.ActorRoleFinance {
		t.Fatalf("expected finance role got %s", gotRole)
	}
}

func TestAuthRejectsForeignIssuer(t *testing.T) {
	token := mintTestToken(t, uuid.New(), uuid.New(), enums.ActorRoleAdmin)
	other := testJWT
	other.Issuer = "someone-else"

	resp := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	Auth(other, nil)(okHandler()).ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestRequireRoles(t *testing.T) {
	handler := RequireRoles(nil, enums.ActorRoleAdmin, enums.ActorRoleFinance)(okHandler())

	cases := []struct {
		role enums.ActorRole
		want int
	}{
		{role: enums.ActorRoleFinance, want: http.StatusOK},
		{role: enums.ActorRoleAdmin, want: http.StatusOK},
		{role: enums.ActorRoleStaff, want: http.StatusForbidden},
		{role: "", want: http.StatusForbidden},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req = req.WithContext(WithRole(req.Context(), tc.role))
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != tc.want {
			t.Fatalf("role %q: expected %d got %d", tc.role, tc.want, resp.Code)
		}
	}
}

func mintTestToken(t *testing.T, userID, tenantID uuid.UUID, role enums.ActorRole) string {
	t.Helper()
	token, err := auth.MintAccessToken(testJWT, time.Now(), auth.AccessTokenPayload{
		UserID:   userID,
		TenantID: tenantID,
		Role:     role,
		JTI:      uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}
