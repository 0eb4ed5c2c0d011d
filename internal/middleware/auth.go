package middleware

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/loggerapp/logger-api/internal/auth"
	"github.com/loggerapp/logger-api/internal/domain"
)

// TokenVerifier turns a bearer token into the identity it asserts.
// *auth.Verifier satisfies it.
type TokenVerifier interface {
	Verify(ctx context.Context, raw string) (domain.Identity, error)
}

// NewAuthHandler returns a middleware that requires a valid bearer token.
// The verified identity is stored in the request context (see
// auth.IdentityFromContext). Missing or invalid tokens get 401.
func NewAuthHandler(v TokenVerifier, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			raw, ok := bearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}
			id, err := v.Verify(r.Context(), raw)
			if err != nil {
				log.DebugContext(r.Context(), "rejected bearer token", "error", err)
				unauthorized(w)
				return
			}
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	h := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(h, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": "Invalid or missing token"})
}
