// Package auth implements the credential flows: signup, login, email
// verification, password change and the forgot/reset cycle. It owns no HTTP
// concerns; modules/account maps its errors onto responses.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/wavsocial/wavscan/pkg/email"
	"github.com/wavsocial/wavscan/pkg/logger"
	"github.com/wavsocial/wavscan/pkg/password"
	"github.com/wavsocial/wavscan/pkg/sanitizer"
	"github.com/wavsocial/wavscan/pkg/validator"
	"github.com/wavsocial/wavscan/svc/user"
)

// Service drives the account credential state machine.
type Service struct {
	storage        user.Storage
	mailer         email.Sender
	log            *slog.Logger
	baseURL        string
	resetTokenTTL  time.Duration
	verifyTokenTTL time.Duration
	mailTimeout    time.Duration
}

// Option adjusts Service construction.
type Option func(*Service)

// WithLogger sets a custom logger.
func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

// WithResetTokenTTL overrides the password reset token lifetime.
func WithResetTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.resetTokenTTL = ttl }
}

// WithVerifyTokenTTL overrides the email verification token lifetime.
func WithVerifyTokenTTL(ttl time.Duration) Option {
	return func(s *Service) { s.verifyTokenTTL = ttl }
}

// New creates the auth service. baseURL is the public origin used in email
// links, e.g. "https://wavscan.app".
func New(storage user.Storage, mailer email.Sender, baseURL string, opts ...Option) *Service {
	s := &Service{
		storage:        storage,
		mailer:         mailer,
		log:            logger.NewDiscard(),
		baseURL:        baseURL,
		resetTokenTTL:  1 * time.Hour,
		verifyTokenTTL: 24 * time.Hour,
		mailTimeout:    10 * time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an account on the free plan with a pending verification
// token and dispatches the verification email best-effort. The caller gets
// a session immediately; verification only flips the flag.
func (s *Service) Register(ctx context.Context, rawEmail, rawUsername, plaintext string) (*user.User, error) {
	addr := sanitizer.NormalizeEmail(rawEmail)
	username := sanitizer.NormalizeUsername(rawUsername)

	if err := validator.Apply(
		validator.ValidEmail("email", addr),
		validator.ValidUsername("username", username),
		validator.MinLen("password", plaintext, password.MinLength),
		validator.MaxLen("password", plaintext, password.MaxLength),
	); err != nil {
		return nil, err
	}

	hash, err := password.Hash(plaintext)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	verifyToken, err := randomToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}
	verifyExpires := time.Now().Add(s.verifyTokenTTL)

	u := &user.User{
		ID:                  uuid.New(),
		Email:               addr,
		Username:            username,
		PasswordHash:        hash,
		Plan:                user.PlanFree,
		SubscriptionStatus:  user.StatusNone,
		EmailVerified:       false,
		VerificationToken:   verifyToken,
		VerificationExpires: &verifyExpires,
		CreatedAt:           time.Now(),
	}

	if err := s.storage.Create(ctx, u); err != nil {
		return nil, err
	}

	s.sendAsync("verification", u.ID, email.SendParams{
		To:       u.Email,
		Subject:  "Verify your Wav Social Scan email",
		BodyHTML: verificationBody(s.baseURL, verifyToken),
		Tag:      "email-verification",
	})

	return u, nil
}

// Authenticate verifies email and password. Every failure is
// ErrInvalidCredentials; callers must not be able to probe which half
// failed.
func (s *Service) Authenticate(ctx context.Context, rawEmail, plaintext string) (*user.User, error) {
	addr := sanitizer.NormalizeEmail(rawEmail)

	u, err := s.storage.ByEmail(ctx, addr)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if !password.Verify(plaintext, u.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u, nil
}

// ChangePassword rewrites the hash after checking the current password.
func (s *Service) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	if err := validator.Apply(
		validator.MinLen("new_password", next, password.MinLength),
		validator.MaxLen("new_password", next, password.MaxLength),
	); err != nil {
		return err
	}

	u, err := s.storage.ByID(ctx, userID)
	if err != nil {
		return err
	}

	if !password.Verify(current, u.PasswordHash) {
		return ErrInvalidCurrentPassword
	}

	hash, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	return s.storage.UpdatePasswordHash(ctx, userID, hash)
}

// ForgotPassword issues a single-use reset token and emails it. The caller
// must answer with the same generic success body whether or not the account
// exists; to that end, an unknown email is not an error here.
func (s *Service) ForgotPassword(ctx context.Context, rawEmail string) error {
	addr := sanitizer.NormalizeEmail(rawEmail)

	u, err := s.storage.ByEmail(ctx, addr)
	if err != nil {
		if errors.Is(err, user.ErrNotFound) {
			return nil
		}
		return err
	}

	raw, err := randomToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}

	expiresAt := time.Now().Add(s.resetTokenTTL)
	if err := s.storage.ReplaceResetToken(ctx, u.ID, hashToken(raw), expiresAt); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	s.sendAsync("password reset", u.ID, email.SendParams{
		To:       u.Email,
		Subject:  "Reset your Wav Social Scan password",
		BodyHTML: resetBody(s.baseURL, raw),
		Tag:      "password-reset",
	})

	return nil
}

// ResetPassword consumes a reset token and rewrites the password hash.
func (s *Service) ResetPassword(ctx context.Context, rawToken, next string) error {
	if err := validator.Apply(
		validator.MinLen("new_password", next, password.MinLength),
		validator.MaxLen("new_password", next, password.MaxLength),
	); err != nil {
		return err
	}

	t, err := s.storage.ResetTokenByHash(ctx, hashToken(rawToken))
	if err != nil {
		return ErrInvalidOrExpiredToken
	}
	if t.Expired() {
		// Leave the row for the cleanup on next issuance; it can never
		// be used again anyway.
		return ErrInvalidOrExpiredToken
	}

	hash, err := password.Hash(next)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	if err := s.storage.UpdatePasswordHash(ctx, t.UserID, hash); err != nil {
		return err
	}

	return s.storage.DeleteResetToken(ctx, t.TokenHash)
}

// VerifyEmail consumes a verification token and returns the now-verified
// user so the handler can issue a session.
func (s *Service) VerifyEmail(ctx context.Context, rawToken string) (*user.User, error) {
	if rawToken == "" {
		return nil, ErrInvalidOrExpiredToken
	}

	u, err := s.storage.VerifyEmail(ctx, rawToken)
	if err != nil {
		if errors.Is(err, user.ErrTokenNotFound) {
			return nil, ErrInvalidOrExpiredToken
		}
		return nil, err
	}

	return u, nil
}

// sendAsync dispatches mail off the request path. Failures are logged, not
// surfaced: mail transport problems must not fail signup or forgot-password.
func (s *Service) sendAsync(kind string, userID uuid.UUID, params email.SendParams) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				s.log.Error("mail dispatch panicked",
					logger.UserID(userID.String()),
					slog.Any("panic", r),
					logger.Component("auth"),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.mailTimeout)
		defer cancel()

		if err := s.mailer.Send(ctx, params); err != nil {
			s.log.Error("failed to send "+kind+" email",
				logger.UserID(userID.String()),
				logger.Error(err),
				logger.Component("auth"),
			)
		}
	}()
}

// randomToken returns 32 bytes of cryptographic randomness, hex-encoded.
func randomToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// hashToken is the storage form of reset tokens: a leaked table must not
// yield usable tokens.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}
