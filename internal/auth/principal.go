// Package auth resolves the acting principal for a request and carries it
// through the context.
package auth

import (
	"context"

	"github.com/starford/quorum/internal/apperr"
)

// Principal is the authenticated caller. A nil *Principal is an
// unauthenticated caller.
type Principal struct {
	UserID  string `json:"user_id"`
	IsAdmin bool   `json:"is_admin"`
	Banned  bool   `json:"banned"`
}

type ctxKey struct{}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, ctxKey{}, p)
}

// FromContext returns the principal stored in ctx, or nil.
func FromContext(ctx context.Context) *Principal {
	p, _ := ctx.Value(ctxKey{}).(*Principal)
	return p
}

// RequireUser fails with UNAUTHORIZED for an unauthenticated caller.
func RequireUser(p *Principal) error {
	if p == nil || p.UserID == "" {
		return apperr.Unauthorized("sign in to continue")
	}
	return nil
}

// RequireActive is RequireUser plus a FORBIDDEN for banned callers. Every
// mutating operation goes through it.
func RequireActive(p *Principal) error {
	if err := RequireUser(p); err != nil {
		return err
	}
	if p.Banned {
		return apperr.Forbidden("your account is banned")
	}
	return nil
}

// RequireAdmin fails unless p is an active admin.
func RequireAdmin(p *Principal) error {
	if err := RequireActive(p); err != nil {
		return err
	}
	if !p.IsAdmin {
		return apperr.Forbidden("admin access required")
	}
	return nil
}
