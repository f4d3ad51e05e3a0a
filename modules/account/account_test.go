package account_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/modules/account"
	"github.com/wavsocial/wavscan/pkg/email"
	"github.com/wavsocial/wavscan/pkg/ratelimiter"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/pkg/token"
	"github.com/wavsocial/wavscan/svc/auth"
	"github.com/wavsocial/wavscan/svc/user"
)

type nullMailer struct{}

func (nullMailer) Send(context.Context, email.SendParams) error { return nil }

type fixture struct {
	handler http.Handler
	storage *user.MemStorage
}

func newFixture(t *testing.T, limiter *ratelimiter.Limiter) *fixture {
	t.Helper()

	storage := user.NewMemStorage()
	codec, err := token.NewFromString("test-signing-secret")
	require.NoError(t, err)

	sessions := session.New(codec, storage, session.Config{
		CookieName: "wavscan_session",
		TTL:        time.Hour,
	})

	authSvc := auth.New(storage, nullMailer{}, "https://wavscan.test")
	svc := account.New(authSvc, sessions, limiter, nil)

	return &fixture{handler: svc.Handle(), storage: storage}
}

func (f *fixture) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	r.RemoteAddr = "203.0.113.10:1234"
	for _, c := range cookies {
		r.AddCookie(c)
	}

	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func sessionCookie(t *testing.T, w *httptest.ResponseRecorder) *http.Cookie {
	t.Helper()
	for _, c := range w.Result().Cookies() {
		if c.Name == "wavscan_session" && c.Value != "" {
			return c
		}
	}
	t.Fatal("no session cookie set")
	return nil
}

func (f *fixture) signup(t *testing.T, addr, username, pass string) *http.Cookie {
	t.Helper()
	w := f.do(t, http.MethodPost, "/signup", map[string]string{
		"email": addr, "username": username, "password": pass,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	return sessionCookie(t, w)
}

func TestSignup(t *testing.T) {
	t.Parallel()

	t.Run("creates an account and a session", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		w := f.do(t, http.MethodPost, "/signup", map[string]string{
			"email": "alice@example.com", "username": "alice", "password": "s3cretpass",
		})
		require.Equal(t, http.StatusCreated, w.Code)

		var resp struct {
			Data struct {
				Email         string `json:"email"`
				Plan          string `json:"plan"`
				EmailVerified bool   `json:"email_verified"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "alice@example.com", resp.Data.Email)
		require.Equal(t, "free", resp.Data.Plan)
		require.False(t, resp.Data.EmailVerified)

		c := sessionCookie(t, w)
		require.True(t, c.HttpOnly)
		require.Equal(t, "/", c.Path)
		require.Equal(t, http.SameSiteLaxMode, c.SameSite)
	})

	t.Run("duplicate email conflicts", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)
		f.signup(t, "alice@example.com", "alice", "s3cretpass")

		w := f.do(t, http.MethodPost, "/signup", map[string]string{
			"email": "alice@example.com", "username": "bob", "password": "s3cretpass",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "already registered")
	})

	t.Run("validation errors carry field detail", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t, nil)

		w := f.do(t, http.MethodPost, "/signup", map[string]string{
			"email": "nope", "username": "x", "password": "short",
		})
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp struct {
			Error struct {
				Code    string              `json:"code"`
				Details map[string][]string `json:"details"`
			} `json:"error"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Equal(t, "validation_error", resp.Error.Code)
		require.Contains(t, resp.Error.Details, "email")
		require.Contains(t, resp.Error.Details, "password")
	})
}

func TestLoginLogout(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.signup(t, "alice@example.com", "alice", "s3cretpass")

	t.Run("wrong password and unknown email both 401", func(t *testing.T) {
		for _, body := range []map[string]string{
			{"email": "alice@example.com", "password": "wrongpass"},
			{"email": "nobody@example.com", "password": "s3cretpass"},
		} {
			w := f.do(t, http.MethodPost, "/login", body)
			require.Equal(t, http.StatusUnauthorized, w.Code)
			require.Contains(t, w.Body.String(), "invalid email or password")
		}
	})

	t.Run("login sets a usable session", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/login", map[string]string{
			"email": "alice@example.com", "password": "s3cretpass",
		})
		require.Equal(t, http.StatusOK, w.Code)

		me := f.do(t, http.MethodGet, "/me", nil, sessionCookie(t, w))
		require.Equal(t, http.StatusOK, me.Code)
		require.Contains(t, me.Body.String(), "alice@example.com")
	})

	t.Run("logout expires the cookie", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/logout", nil)
		require.Equal(t, http.StatusOK, w.Code)

		var cleared *http.Cookie
		for _, c := range w.Result().Cookies() {
			if c.Name == "wavscan_session" {
				cleared = c
			}
		}
		require.NotNil(t, cleared)
		require.Empty(t, cleared.Value)
		require.Equal(t, time.Unix(0, 0).UTC(), cleared.Expires.UTC())
	})

	t.Run("me without session is 401", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/me", nil)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("me with a forged cookie is 401", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/me", nil, &http.Cookie{
			Name: "wavscan_session", Value: "aaa.bbb.ccc",
		})
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestChangePassword(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	cookie := f.signup(t, "alice@example.com", "alice", "s3cretpass")

	w := f.do(t, http.MethodPost, "/change-password", map[string]string{
		"current_password": "wrongpass", "new_password": "newsecret1",
	}, cookie)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "current password is incorrect")

	w = f.do(t, http.MethodPost, "/change-password", map[string]string{
		"current_password": "s3cretpass", "new_password": "newsecret1",
	}, cookie)
	require.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodPost, "/login", map[string]string{
		"email": "alice@example.com", "password": "newsecret1",
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestForgotPassword_UniformResponse(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.signup(t, "alice@example.com", "alice", "s3cretpass")

	known := f.do(t, http.MethodPost, "/forgot-password", map[string]string{"email": "alice@example.com"})
	unknown := f.do(t, http.MethodPost, "/forgot-password", map[string]string{"email": "nobody@example.com"})

	require.Equal(t, http.StatusOK, known.Code)
	require.Equal(t, http.StatusOK, unknown.Code)
	require.Equal(t, known.Body.String(), unknown.Body.String())
}

func TestResetPassword_BadToken(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	w := f.do(t, http.MethodPost, "/reset-password", map[string]string{
		"token": "deadbeef", "new_password": "newsecret1",
	})
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid or expired token")
}

func TestVerifyEmail(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.signup(t, "alice@example.com", "alice", "s3cretpass")

	u, err := f.storage.ByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	require.NotEmpty(t, u.VerificationToken)

	w := f.do(t, http.MethodGet, "/verify-email?token="+u.VerificationToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"email_verified":true`)
	sessionCookie(t, w)

	// Token is single use.
	w = f.do(t, http.MethodGet, "/verify-email?token="+u.VerificationToken, nil)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginThrottled(t *testing.T) {
	t.Parallel()

	limiter, err := ratelimiter.New(ratelimiter.NewMemoryStore(), 3, time.Minute)
	require.NoError(t, err)
	f := newFixture(t, limiter)
	f.signup(t, "alice@example.com", "alice", "s3cretpass")

	body := map[string]string{"email": "alice@example.com", "password": "wrongpass"}
	for i := 0; i < 3; i++ {
		w := f.do(t, http.MethodPost, "/login", body)
		require.Equal(t, http.StatusUnauthorized, w.Code, "attempt %d", i)
	}

	w := f.do(t, http.MethodPost, "/login", body)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	require.NotEmpty(t, w.Header().Get("Retry-After"))
}

func TestUnknownFieldRejected(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	r := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"email":"a@b.co","password":"x","extra":1}`))
	r.RemoteAddr = "203.0.113.10:1234"
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Contains(t, w.Body.String(), "invalid request body")
}
