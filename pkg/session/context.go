package session

import (
	"context"
	"net/http"

	"github.com/wavsocial/wavscan/core"
	"github.com/wavsocial/wavscan/svc/user"
)

type contextKey struct{}

// WithUser stores u in the context.
func WithUser(ctx context.Context, u *user.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user placed by RequireUser.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*user.User)
	return u, ok
}

// RequireUser rejects unauthenticated requests with a 401 and injects the
// resolved user into the request context for downstream handlers.
func (m *Manager) RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, err := m.CurrentUser(r.Context(), r)
		if err != nil {
			core.RespondError(w, core.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), u)))
	})
}
