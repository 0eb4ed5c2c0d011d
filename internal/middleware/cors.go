// Package middleware provides HTTP middleware for the Logger API server.
package middleware

import (
	"context"
	"net/http"

	"github.com/rs/cors"

	"github.com/loggerapp/logger-api/internal/origin"
)

// OriginAuthorizer decides whether a request Origin may read responses.
// *origin.Authorizer satisfies it.
type OriginAuthorizer interface {
	Authorize(ctx context.Context, origin string) origin.Decision
}

// NewCORSHandler returns a middleware that answers CORS for every route
// using authz. Allowed origins are echoed back with credentials permitted;
// denied origins get no Access-Control-Allow-Origin header and the request
// still reaches the handler. Preflights are answered here with 204.
//
// rs/cors consults the callback even when the Origin header is absent; the
// authorizer answers ModeNotCORS for that and no headers are written.
func NewCORSHandler(authz OriginAuthorizer) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowOriginVaryRequestFunc: func(r *http.Request, o string) (bool, []string) {
			return authz.Authorize(r.Context(), o).Mode == origin.ModeAllow, nil
		},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	})
	return c.Handler
}
