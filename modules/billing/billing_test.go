package billing_test

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	modbilling "github.com/wavsocial/wavscan/modules/billing"
	"github.com/wavsocial/wavscan/pkg/session"
	"github.com/wavsocial/wavscan/pkg/token"
	"github.com/wavsocial/wavscan/svc/billing"
	"github.com/wavsocial/wavscan/svc/user"
)

const webhookSecret = "whsec_test_secret"

type fixture struct {
	handler  http.Handler
	storage  *user.MemStorage
	sessions *session.Manager
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	storage := user.NewMemStorage()
	codec, err := token.NewFromString("test-signing-secret")
	require.NoError(t, err)
	sessions := session.New(codec, storage, session.Config{CookieName: "wavscan_session", TTL: time.Hour})

	provider, err := billing.NewStripeProvider(billing.StripeConfig{
		WebhookSecret:   webhookSecret,
		CheckoutBaseURL: "https://buy.stripe.test/wavscan",
		PortalBaseURL:   "https://billing.stripe.test/portal",
	})
	require.NoError(t, err)

	catalog, err := billing.DefaultCatalog()
	require.NoError(t, err)

	reconciler := billing.NewReconciler(provider, storage, catalog, nil)
	svc := modbilling.New(provider, reconciler, catalog, sessions, nil)

	return &fixture{handler: svc.Handle(), storage: storage, sessions: sessions}
}

func (f *fixture) seedUser(t *testing.T) (*user.User, *http.Cookie) {
	t.Helper()

	u := &user.User{
		ID:           uuid.New(),
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "$2a$12$notarealhash",
		Plan:         user.PlanFree,
		CreatedAt:    time.Now(),
	}
	require.NoError(t, f.storage.Create(context.Background(), u))

	w := httptest.NewRecorder()
	require.NoError(t, f.sessions.Issue(w, u))
	cookies := w.Result().Cookies()
	require.NotEmpty(t, cookies)
	return u, cookies[0]
}

func signHeader(payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(webhookSecret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hex.EncodeToString(mac.Sum(nil)))
}

func (f *fixture) postWebhook(t *testing.T, payload, sig string) *httptest.ResponseRecorder {
	t.Helper()
	r := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewReader([]byte(payload)))
	if sig != "" {
		r.Header.Set("Stripe-Signature", sig)
	}
	w := httptest.NewRecorder()
	f.handler.ServeHTTP(w, r)
	return w
}

func TestCheckout(t *testing.T) {
	t.Parallel()

	t.Run("requires auth", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		r := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte(`{"plan":"plus"}`)))
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("returns a checkout url carrying the user id", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u, cookie := f.seedUser(t)

		r := httptest.NewRequest(http.MethodPost, "/checkout", bytes.NewReader([]byte(`{"plan":"plus"}`)))
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)

		var resp struct {
			Data struct {
				URL string `json:"url"`
			} `json:"data"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.Contains(t, resp.Data.URL, u.ID.String())
		require.Contains(t, resp.Data.URL, "price_wavscan_plus_monthly")
	})

	t.Run("rejects non-paid plans", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, cookie := f.seedUser(t)

		for _, plan := range []string{"free", "enterprise", ""} {
			r := httptest.NewRequest(http.MethodPost, "/checkout",
				bytes.NewReader([]byte(fmt.Sprintf(`{"plan":%q}`, plan))))
			r.AddCookie(cookie)
			w := httptest.NewRecorder()
			f.handler.ServeHTTP(w, r)
			require.Equal(t, http.StatusBadRequest, w.Code, "plan %q", plan)
		}
	})
}

func TestPortal(t *testing.T) {
	t.Parallel()

	t.Run("without a billing account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		_, cookie := f.seedUser(t)

		r := httptest.NewRequest(http.MethodGet, "/portal", nil)
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "no billing account")
	})

	t.Run("with a billing account", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u, cookie := f.seedUser(t)
		require.NoError(t, f.storage.SetCheckoutCompleted(context.Background(), u.ID, user.PlanPlus, "cus_1", "sub_1"))

		r := httptest.NewRequest(http.MethodGet, "/portal", nil)
		r.AddCookie(cookie)
		w := httptest.NewRecorder()
		f.handler.ServeHTTP(w, r)
		require.Equal(t, http.StatusOK, w.Code)
		require.Contains(t, w.Body.String(), "customer=cus_1")
	})
}

func TestWebhook(t *testing.T) {
	t.Parallel()

	t.Run("bad signature is a 400", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		payload := `{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`
		w := f.postWebhook(t, payload, "t=1,v1=deadbeef")
		require.Equal(t, http.StatusBadRequest, w.Code)

		w = f.postWebhook(t, payload, "")
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("valid event mutates billing state", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)
		u, _ := f.seedUser(t)
		require.NoError(t, f.storage.SetCheckoutCompleted(context.Background(), u.ID, user.PlanPlus, "cus_1", "sub_1"))

		payload := `{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1","customer":"cus_1","status":"canceled"}}}`
		w := f.postWebhook(t, payload, signHeader([]byte(payload), time.Now()))
		require.Equal(t, http.StatusOK, w.Code)

		got, err := f.storage.ByID(context.Background(), u.ID)
		require.NoError(t, err)
		require.Equal(t, user.PlanFree, got.Plan)
		require.Equal(t, user.StatusCanceled, got.SubscriptionStatus)
	})

	t.Run("processing errors are still acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		// Unknown price behind a valid signature: logged, ack'd.
		payload := fmt.Sprintf(`{"id":"evt_1","type":"checkout.session.completed","data":{"object":{"subscription":"sub_1","customer":"cus_1","client_reference_id":%q,"metadata":{"price_id":"price_unknown"}}}}`, uuid.NewString())
		w := f.postWebhook(t, payload, signHeader([]byte(payload), time.Now()))
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("unknown event type is acknowledged", func(t *testing.T) {
		t.Parallel()
		f := newFixture(t)

		payload := `{"id":"evt_1","type":"charge.refunded","data":{"object":{}}}`
		w := f.postWebhook(t, payload, signHeader([]byte(payload), time.Now()))
		require.Equal(t, http.StatusOK, w.Code)
	})
}
