package controllers

import (
	"net/http"

	"github.com/etchbroker/makelar-backend/api/middleware"
	"github.com/etchbroker/makelar-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

// PrivatePing echoes the caller's tenant and role so operators can check a token.
func PrivatePing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{
			"scope":     "private",
			"status":    "ok",
			"tenant_id": middleware.TenantIDFromContext(r.Context()),
			"user_id":   middleware.UserIDFromContext(r.Context()),
			"role":      string(middleware.RoleFromContext(r.Context())),
		})
	}
}
