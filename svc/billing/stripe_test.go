package billing_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/wavsocial/wavscan/svc/billing"
)

const testWebhookSecret = "whsec_test_secret"

func hmacHex(secret string, payload []byte, ts time.Time) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts.Unix(), payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func signPayload(t *testing.T, secret string, payload []byte, ts time.Time) string {
	t.Helper()
	return fmt.Sprintf("t=%d,v1=%s", ts.Unix(), hmacHex(secret, payload, ts))
}

func newTestProvider(t *testing.T) *billing.StripeProvider {
	t.Helper()
	p, err := billing.NewStripeProvider(billing.StripeConfig{
		WebhookSecret:   testWebhookSecret,
		CheckoutBaseURL: "https://buy.stripe.test/wavscan",
		PortalBaseURL:   "https://billing.stripe.test/portal",
	})
	require.NoError(t, err)
	return p
}

func TestStripeProvider_VerifyAndParse(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"id":"evt_1","type":"customer.subscription.deleted","data":{"object":{"id":"sub_1"}}}`)

	t.Run("valid signature", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		event, err := p.VerifyAndParse(payload, signPayload(t, testWebhookSecret, payload, time.Now()))
		require.NoError(t, err)
		require.Equal(t, "evt_1", event.ID)
		require.Equal(t, billing.EventSubscriptionDeleted, event.Type)
	})

	t.Run("wrong secret", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		_, err := p.VerifyAndParse(payload, signPayload(t, "whsec_other", payload, time.Now()))
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("tampered payload", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		sig := signPayload(t, testWebhookSecret, payload, time.Now())
		tampered := append([]byte(nil), payload...)
		tampered[len(tampered)-2] ^= 0x01

		_, err := p.VerifyAndParse(tampered, sig)
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("stale timestamp", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		_, err := p.VerifyAndParse(payload, signPayload(t, testWebhookSecret, payload, time.Now().Add(-10*time.Minute)))
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("future timestamp", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		_, err := p.VerifyAndParse(payload, signPayload(t, testWebhookSecret, payload, time.Now().Add(10*time.Minute)))
		require.ErrorIs(t, err, billing.ErrInvalidSignature)
	})

	t.Run("malformed headers", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		for _, header := range []string{
			"",
			"t=,v1=abc",
			"v1=abc",
			fmt.Sprintf("t=%d", time.Now().Unix()),
			"garbage",
		} {
			_, err := p.VerifyAndParse(payload, header)
			require.ErrorIs(t, err, billing.ErrInvalidSignature, "header %q", header)
		}
	})

	t.Run("second v1 entry accepted during secret roll", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		now := time.Now()
		header := fmt.Sprintf("t=%d,v1=%s,v1=%s", now.Unix(),
			hmacHex("whsec_old", payload, now),
			hmacHex(testWebhookSecret, payload, now))

		_, err := p.VerifyAndParse(payload, header)
		require.NoError(t, err)
	})

	t.Run("bad json behind a valid signature", func(t *testing.T) {
		t.Parallel()
		p := newTestProvider(t)

		broken := []byte(`{"type":`)
		_, err := p.VerifyAndParse(broken, signPayload(t, testWebhookSecret, broken, time.Now()))
		require.ErrorIs(t, err, billing.ErrInvalidPayload)
	})
}

func TestStripeProvider_URLs(t *testing.T) {
	t.Parallel()

	p := newTestProvider(t)
	userID := uuid.New()

	checkout := p.CheckoutURL(userID, "price_wavscan_plus_monthly")
	require.Contains(t, checkout, "https://buy.stripe.test/wavscan?")
	require.Contains(t, checkout, "client_reference_id="+userID.String())
	require.Contains(t, checkout, "price_id=price_wavscan_plus_monthly")

	portal := p.PortalURL("cus_123")
	require.Equal(t, "https://billing.stripe.test/portal?customer=cus_123", portal)
}
