// Package api implements the Quorum REST API using chi.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/starford/quorum/internal/apperr"
	"github.com/starford/quorum/internal/auth"
	"github.com/starford/quorum/internal/ratelimit"
)

// UserIDHeader carries the upstream-asserted user id.
const UserIDHeader = "X-User-ID"

// PrincipalResolver turns a user id into a principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, userID string) (*auth.Principal, error)
}

// AuthMiddleware returns middleware that validates a Bearer token.
// If enabled is false, all requests pass through (disabled mode).
// If enabled is true, requests must carry a valid "Authorization: Bearer <token>" header.
func AuthMiddleware(enabled bool, token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !enabled {
				next.ServeHTTP(w, r)
				return
			}
			h := r.Header.Get("Authorization")
			if !strings.HasPrefix(h, "Bearer ") || strings.TrimPrefix(h, "Bearer ") != token {
				writeError(w, r, apperr.Unauthorized("invalid or missing bearer token"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalMiddleware resolves the X-User-ID header into a principal on the
// request context. Requests without the header, or naming an unknown user,
// proceed anonymously.
func PrincipalMiddleware(res PrincipalResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := strings.TrimSpace(r.Header.Get(UserIDHeader))
			if userID == "" {
				next.ServeHTTP(w, r)
				return
			}
			p, err := res.Resolve(r.Context(), userID)
			switch {
			case err == nil:
				r = r.WithContext(auth.WithPrincipal(r.Context(), p))
			case errors.Is(err, apperr.ErrNotFound):
				slog.Debug("unknown user header", slog.String("user_id", userID))
			default:
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per principal, falling back to the remote
// address for anonymous callers.
func RateLimit(l *ratelimit.KeyedRateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if l == nil {
				next.ServeHTTP(w, r)
				return
			}
			key := r.RemoteAddr
			if p := auth.FromContext(r.Context()); p != nil {
				key = "user:" + p.UserID
			}
			if !l.Allow(key) {
				writeError(w, r, apperr.ErrRateLimited)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
