package account

import (
	"net/http"
	"time"

	"github.com/wavsocial/wavscan/core"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/svc/user"
)

type signupRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

type userPayload struct {
	ID                 string    `json:"id"`
	Email              string    `json:"email"`
	Username           string    `json:"username"`
	Plan               string    `json:"plan"`
	SubscriptionStatus string    `json:"subscription_status"`
	EmailVerified      bool      `json:"email_verified"`
	CreatedAt          time.Time `json:"created_at"`
}

func toUserPayload(u *user.User) userPayload {
	return userPayload{
		ID:                 u.ID.String(),
		Email:              u.Email,
		Username:           u.Username,
		Plan:               string(u.Plan),
		SubscriptionStatus: string(u.SubscriptionStatus),
		EmailVerified:      u.EmailVerified,
		CreatedAt:          u.CreatedAt,
	}
}

func (s *Service) signup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	u, err := s.auth.Register(r.Context(), req.Email, req.Username, req.Password)
	if err != nil {
		core.RespondError(w, mapAuthError(err))
		return
	}

	if err := s.sessions.Issue(w, u); err != nil {
		s.log.Error("failed to issue session", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondCreated(w, toUserPayload(u))
}

func (s *Service) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	u, err := s.auth.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		core.RespondError(w, mapAuthError(err))
		return
	}

	if err := s.sessions.Issue(w, u); err != nil {
		s.log.Error("failed to issue session", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, toUserPayload(u))
}

func (s *Service) logout(w http.ResponseWriter, r *http.Request) {
	s.sessions.Clear(w)
	core.RespondOK(w, map[string]bool{"ok": true})
}

func (s *Service) me(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}
	core.RespondOK(w, toUserPayload(u))
}

func (s *Service) changePassword(w http.ResponseWriter, r *http.Request) {
	u, ok := session.UserFromContext(r.Context())
	if !ok {
		core.RespondError(w, core.ErrUnauthorized)
		return
	}

	var req changePasswordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	if err := s.auth.ChangePassword(r.Context(), u.ID, req.CurrentPassword, req.NewPassword); err != nil {
		core.RespondError(w, mapAuthError(err))
		return
	}

	core.RespondOK(w, map[string]bool{"ok": true})
}

// forgotPassword always answers with the same body; whether the account
// exists must not be observable.
func (s *Service) forgotPassword(w http.ResponseWriter, r *http.Request) {
	var req forgotPasswordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	if err := s.auth.ForgotPassword(r.Context(), req.Email); err != nil {
		s.log.Error("forgot password failed", logger.Error(err), logger.Component("account"))
	}

	core.RespondOK(w, map[string]string{
		"message": "if that email is registered, a reset link is on its way",
	})
}

func (s *Service) resetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetPasswordRequest
	if err := core.DecodeJSON(r, &req); err != nil {
		core.RespondError(w, err)
		return
	}

	if err := s.auth.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		core.RespondError(w, mapAuthError(err))
		return
	}

	core.RespondOK(w, map[string]bool{"ok": true})
}

// verifyEmail is the email link target; a session is issued on success so
// the verified user lands signed in.
func (s *Service) verifyEmail(w http.ResponseWriter, r *http.Request) {
	u, err := s.auth.VerifyEmail(r.Context(), r.URL.Query().Get("token"))
	if err != nil {
		core.RespondError(w, mapAuthError(err))
		return
	}

	if err := s.sessions.Issue(w, u); err != nil {
		s.log.Error("failed to issue session", logger.Error(err), logger.UserID(u.ID.String()))
		core.RespondError(w, err)
		return
	}

	core.RespondOK(w, toUserPayload(u))
}
