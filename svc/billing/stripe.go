package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Provider abstracts the payment provider: webhook authenticity plus the
// redirect URLs the HTTP layer hands to browsers.
type Provider interface {
	VerifyAndParse(payload []byte, sigHeader string) (*Event, error)
	CheckoutURL(userID uuid.UUID, priceID string) string
	PortalURL(customerID string) string
}

// StripeConfig holds the provider credentials and hosted page URLs.
type StripeConfig struct {
	WebhookSecret   string        `env:"STRIPE_WEBHOOK_SECRET,required"`
	CheckoutBaseURL string        `env:"STRIPE_CHECKOUT_URL,required"`
	PortalBaseURL   string        `env:"STRIPE_PORTAL_URL,required"`
	SignatureMaxAge time.Duration `env:"STRIPE_SIGNATURE_MAX_AGE" envDefault:"5m"`
}

// StripeProvider verifies Stripe-Signature headers and builds hosted
// checkout/portal URLs. Signatures are HMAC-SHA256 over
// "<timestamp>.<payload>", hex-encoded, carried as "t=<ts>,v1=<hex>".
type StripeProvider struct {
	secret   []byte
	checkout string
	portal   string
	maxAge   time.Duration
	now      func() time.Time
}

// NewStripeProvider builds a provider from config.
func NewStripeProvider(cfg StripeConfig) (*StripeProvider, error) {
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("billing: webhook secret is required")
	}
	maxAge := cfg.SignatureMaxAge
	if maxAge <= 0 {
		maxAge = 5 * time.Minute
	}
	return &StripeProvider{
		secret:   []byte(cfg.WebhookSecret),
		checkout: cfg.CheckoutBaseURL,
		portal:   cfg.PortalBaseURL,
		maxAge:   maxAge,
		now:      time.Now,
	}, nil
}

// VerifyAndParse checks the signature header against the raw payload and
// decodes the event envelope. Every authenticity failure is
// ErrInvalidSignature; the caller must not learn which check failed.
func (p *StripeProvider) VerifyAndParse(payload []byte, sigHeader string) (*Event, error) {
	ts, sigs, err := parseSignatureHeader(sigHeader)
	if err != nil {
		return nil, err
	}

	age := p.now().Sub(time.Unix(ts, 0))
	if age > p.maxAge || age < -1*time.Minute {
		return nil, fmt.Errorf("%w: timestamp outside tolerance", ErrInvalidSignature)
	}

	mac := hmac.New(sha256.New, p.secret)
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	ok := false
	for _, sig := range sigs {
		if hmac.Equal([]byte(expected), []byte(sig)) {
			ok = true
		}
	}
	if !ok {
		return nil, fmt.Errorf("%w: signature mismatch", ErrInvalidSignature)
	}

	return parseEvent(payload)
}

// CheckoutURL returns the hosted checkout page for a price, tagged with the
// buyer's user id so checkout.session.completed can find the local row.
func (p *StripeProvider) CheckoutURL(userID uuid.UUID, priceID string) string {
	q := url.Values{}
	q.Set("client_reference_id", userID.String())
	q.Set("price_id", priceID)
	return p.checkout + "?" + q.Encode()
}

// PortalURL returns the hosted billing portal page for a customer.
func (p *StripeProvider) PortalURL(customerID string) string {
	q := url.Values{}
	q.Set("customer", customerID)
	return p.portal + "?" + q.Encode()
}

// parseSignatureHeader splits "t=<ts>,v1=<hex>[,v1=<hex>...]". Multiple v1
// entries appear while a webhook secret is being rolled; any match accepts.
func parseSignatureHeader(header string) (int64, []string, error) {
	if header == "" {
		return 0, nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}

	var (
		ts   int64
		sigs []string
	)
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			parsed, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return 0, nil, fmt.Errorf("%w: bad timestamp", ErrInvalidSignature)
			}
			ts = parsed
		case "v1":
			sigs = append(sigs, value)
		}
	}

	if ts == 0 || len(sigs) == 0 {
		return 0, nil, fmt.Errorf("%w: incomplete signature header", ErrInvalidSignature)
	}
	return ts, sigs, nil
}
