package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/barberbook/barberbook/libs/auth"
	"github.com/barberbook/barberbook/libs/httpx"
)

type contextKey string

const barberIDKey contextKey = "barber_id"

// RequirePanelAuth rejects requests without a valid panel bearer token and
// stores the authenticated barber id on the request context.
func RequirePanelAuth(secret string) httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}
			claims, err := auth.ParseAndVerifyHS256(token, secret)
			if err != nil || claims.Scope != auth.ScopePanel || claims.BarberID == 0 {
				writeError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), barberIDKey, claims.BarberID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func barberIDFrom(ctx context.Context) int64 {
	id, _ := ctx.Value(barberIDKey).(int64)
	return id
}
