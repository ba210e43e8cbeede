package rbac

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/odyssey-erp/odyssey-office/internal/platform/httpx"
	"github.com/odyssey-erp/odyssey-office/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p *PermissionContext) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal attached by Middleware.Attach.
func PrincipalFromContext(ctx context.Context) *PermissionContext {
	p, _ := ctx.Value(principalContextKey{}).(*PermissionContext)
	return p
}

// PrincipalLoader resolves a PermissionContext for an account ID.
type PrincipalLoader interface {
	LoadPrincipal(ctx context.Context, accountID int64) (*PermissionContext, error)
}

// Middleware wires RBAC authorization helpers for HTTP handlers.
type Middleware struct {
	Loader PrincipalLoader
	Logger *slog.Logger
}

// Attach loads the principal of the session's account, when there is one.
func (m Middleware) Attach(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		accountID, ok := shared.ActorIDFromContext(r.Context())
		if !ok || m.Loader == nil {
			next.ServeHTTP(w, r)
			return
		}
		principal, err := m.Loader.LoadPrincipal(r.Context(), accountID)
		switch {
		case err == nil:
			next.ServeHTTP(w, r.WithContext(ContextWithPrincipal(r.Context(), principal)))
		case errors.Is(err, ErrNotFound), errors.Is(err, ErrInactiveAccount):
			next.ServeHTTP(w, r)
		default:
			m.logError("rbac load principal", err)
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
	})
}

// RequireAuth rejects requests without an authenticated principal.
func (m Middleware) RequireAuth() func(http.Handler) http.Handler {
	return m.require(func(*PermissionContext) bool { return true })
}

// RequireAny ensures the current user has at least one of the required permissions.
func (m Middleware) RequireAny(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(p *PermissionContext) bool {
		return len(normalized) == 0 || p.HasAny(normalized...)
	})
}

// RequireAll ensures the current user has all required permissions.
func (m Middleware) RequireAll(perms ...string) func(http.Handler) http.Handler {
	normalized := normalizePermissions(perms)
	return m.require(func(p *PermissionContext) bool {
		return p.HasAll(normalized...)
	})
}

func (m Middleware) require(allowed func(*PermissionContext) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "login required")
				return
			}
			if !allowed(principal) {
				httpx.Problem(w, http.StatusForbidden, "Forbidden", "missing capability")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m Middleware) logError(msg string, err error) {
	if m.Logger != nil {
		m.Logger.Error(msg, slog.Any("error", err))
	}
}
