// Package account exposes the authentication HTTP surface: signup, login,
// logout, email verification, password change and the forgot/reset cycle.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/wavsocial/wavscan/core"
	"github.com/wavsocial/wavscan/pkg/clientip"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/ratelimiter"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/svc/auth"
	"github.com/wavsocial/wavscan/svc/user"
)

// Auth is the slice of the auth service the module needs.
type Auth interface {
	Register(ctx context.Context, email, username, password string) (*user.User, error)
	Authenticate(ctx context.Context, email, password string) (*user.User, error)
	ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, next string) error
	VerifyEmail(ctx context.Context, token string) (*user.User, error)
}

// Service wires auth flows to HTTP.
type Service struct {
	auth     Auth
	sessions *session.Manager
	limiter  *ratelimiter.Limiter
	log      *slog.Logger
}

// New creates the account module. limiter guards login and forgot-password;
// nil disables throttling (tests).
func New(authSvc Auth, sessions *session.Manager, limiter *ratelimiter.Limiter, log *slog.Logger) *Service {
	if log == nil {
		log = logger.NewDiscard()
	}
	return &Service{auth: authSvc, sessions: sessions, limiter: limiter, log: log}
}

// Handle returns the module router, mounted by the caller under /account.
func (s *Service) Handle() http.Handler {
	r := chi.NewRouter()

	r.With(s.throttle("signup")).Post("/signup", s.signup)
	r.With(s.throttle("login")).Post("/login", s.login)
	r.Post("/logout", s.logout)
	r.With(s.throttle("forgot")).Post("/forgot-password", s.forgotPassword)
	r.Post("/reset-password", s.resetPassword)
	r.Get("/verify-email", s.verifyEmail)

	r.Group(func(r chi.Router) {
		r.Use(s.sessions.RequireUser)
		r.Get("/me", s.me)
		r.Post("/change-password", s.changePassword)
	})

	return r
}

// throttle rate limits per client IP. Store failures fail open: an
// unavailable Redis must not lock everyone out of login.
func (s *Service) throttle(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if s.limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			key := fmt.Sprintf("rl:%s:%s", route, clientip.FromRequest(r))
			res, err := s.limiter.Allow(r.Context(), key)
			if err != nil {
				s.log.Error("rate limiter unavailable", logger.Error(err), logger.Component("account"))
				next.ServeHTTP(w, r)
				return
			}
			if !res.Allowed {
				w.Header().Set("Retry-After", strconv.Itoa(int(res.RetryIn.Seconds())))
				core.RespondError(w, core.ErrTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// mapAuthError shapes domain errors into the HTTP taxonomy.
func mapAuthError(err error) error {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return core.NewHTTPError(http.StatusUnauthorized, "invalid_credentials", "invalid email or password")
	case errors.Is(err, auth.ErrInvalidCurrentPassword):
		return core.ErrBadRequest.WithMessage("current password is incorrect")
	case errors.Is(err, auth.ErrInvalidOrExpiredToken):
		return core.ErrBadRequest.WithMessage("invalid or expired token")
	case errors.Is(err, user.ErrDuplicateEmail):
		return core.ErrConflict.WithMessage("email is already registered")
	case errors.Is(err, user.ErrDuplicateUsername):
		return core.ErrConflict.WithMessage("username is already taken")
	default:
		return err
	}
}
