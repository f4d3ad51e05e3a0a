// Package session manages the browser session cookie. The cookie value is a
// signed token from pkg/token; nothing is stored server-side, so a session
// is valid until the token expires, the cookie is cleared, or the account is
// deleted (the user lookup is the only early-invalidation point).
package session

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/wavsocial/wavscan/pkg/token"
	"github.com/wavsocial/wavscan/svc/user"
)

// ErrUnauthenticated covers every failure mode of CurrentUser: missing
// cookie, malformed/forged/expired token, or a vanished account. Handlers
// map it to a generic 401.
var ErrUnauthenticated = errors.New("session: unauthenticated")

// Config is populated from the environment via config.Load. Secure defaults
// to true; it exists only so local plain-HTTP runs can opt out.
type Config struct {
	CookieName string        `env:"SESSION_COOKIE_NAME" envDefault:"wavscan_session"`
	TTL        time.Duration `env:"SESSION_TTL" envDefault:"360h"`
	Secure     bool          `env:"SESSION_COOKIE_SECURE" envDefault:"true"`
}

// UserLookup resolves the token subject to a live account.
type UserLookup interface {
	ByID(ctx context.Context, id uuid.UUID) (*user.User, error)
}

// Manager issues, clears and reads session cookies.
type Manager struct {
	codec *token.Codec
	users UserLookup
	cfg   Config
}

// New creates a Manager.
func New(codec *token.Codec, users UserLookup, cfg Config) *Manager {
	return &Manager{codec: codec, users: users, cfg: cfg}
}

// Issue signs a token for u and sets the session cookie. SameSite=Lax keeps
// the cookie on top-level navigations, which the checkout redirect flow
// relies on.
func (m *Manager) Issue(w http.ResponseWriter, u *user.User) error {
	tok, err := m.codec.Sign(token.Claims{
		Subject: u.ID.String(),
		Email:   u.Email,
		Plan:    string(u.Plan),
	}, m.cfg.TTL)
	if err != nil {
		return err
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    tok,
		Path:     "/",
		MaxAge:   int(m.cfg.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// Clear expires the cookie at epoch zero.
func (m *Manager) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     m.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.cfg.Secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// CurrentUser derives the authenticated user from the request cookie. All
// token and lookup failures collapse into ErrUnauthenticated so callers
// cannot distinguish a forged token from an expired one.
func (m *Manager) CurrentUser(ctx context.Context, r *http.Request) (*user.User, error) {
	cookie, err := r.Cookie(m.cfg.CookieName)
	if err != nil || cookie.Value == "" {
		return nil, ErrUnauthenticated
	}

	claims, err := m.codec.Parse(cookie.Value)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	id, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	u, err := m.users.ByID(ctx, id)
	if err != nil {
		return nil, ErrUnauthenticated
	}

	return u, nil
}
