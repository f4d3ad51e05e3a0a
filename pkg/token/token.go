package token

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Header constants. The algorithm is fixed to HMAC-SHA256; tokens declaring
// anything else are rejected to prevent algorithm confusion attacks.
const (
	HeaderType      = "WSS"
	HeaderAlgorithm = "HS256"
)

// DefaultTTL is the lifetime applied when Sign is called with a zero TTL.
// It matches the session cookie lifetime.
const DefaultTTL = 15 * 24 * time.Hour

// Header is the first token segment, declaring the signing algorithm.
type Header struct {
	Type      string `json:"typ"`
	Algorithm string `json:"alg"`
}

// Claims is the signed claim set carried by a session token. Validity is
// fully determined by the signature and ExpiresAt; nothing is persisted
// server-side.
type Claims struct {
	Subject   string `json:"sub"`
	Email     string `json:"email,omitempty"`
	Plan      string `json:"plan,omitempty"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Codec signs and verifies compact bearer tokens using a single
// process-wide secret. Rotating the secret invalidates every outstanding
// token; there is no multi-key rollover.
type Codec struct {
	secret []byte
}

// New creates a Codec from the given secret. The secret should be at least
// 32 bytes for adequate security with HMAC-SHA256.
func New(secret []byte) (*Codec, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSecret
	}
	return &Codec{secret: secret}, nil
}

// NewFromString is a convenience wrapper around New for string-based config.
func NewFromString(secret string) (*Codec, error) {
	return New([]byte(secret))
}

// Sign produces a three-segment token: base64url(header).base64url(claims)
// .base64url(signature). IssuedAt and ExpiresAt are stamped on the claims;
// ttl == 0 falls back to DefaultTTL. A negative ttl yields an already
// expired token, which is only useful in tests.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	if ttl == 0 {
		ttl = DefaultTTL
	}

	now := time.Now()
	claims.IssuedAt = now.Unix()
	claims.ExpiresAt = now.Add(ttl).Unix()

	headerJSON, err := json.Marshal(Header{Type: HeaderType, Algorithm: HeaderAlgorithm})
	if err != nil {
		return "", fmt.Errorf("marshal header: %w", err)
	}

	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("marshal claims: %w", err)
	}

	payload := base64.RawURLEncoding.EncodeToString(headerJSON) + "." + base64.RawURLEncoding.EncodeToString(claimsJSON)
	return payload + "." + c.sign(payload), nil
}

// Parse verifies the token signature and expiry and returns the decoded
// claims. Signature verification happens before any payload decoding so a
// forged token never reaches the JSON parser.
func (c *Codec) Parse(tokenString string) (Claims, error) {
	parts := strings.Split(tokenString, ".")
	if len(parts) != 3 || parts[0] == "" || parts[1] == "" || parts[2] == "" {
		return Claims{}, ErrMalformedToken
	}

	payload := parts[0] + "." + parts[1]
	expected := c.sign(payload)
	if subtle.ConstantTimeCompare([]byte(parts[2]), []byte(expected)) != 1 {
		return Claims{}, ErrBadSignature
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	var header Header
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return Claims{}, ErrMalformedToken
	}
	if header.Algorithm != HeaderAlgorithm {
		return Claims{}, ErrBadSignature
	}

	claimsJSON, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return Claims{}, ErrMalformedToken
	}
	var claims Claims
	if err := json.Unmarshal(claimsJSON, &claims); err != nil {
		return Claims{}, ErrMalformedToken
	}

	if claims.ExpiresAt > 0 && time.Now().Unix() > claims.ExpiresAt {
		return Claims{}, ErrExpiredToken
	}

	return claims, nil
}

// sign computes the base64url-encoded HMAC-SHA256 signature of payload.
func (c *Codec) sign(payload string) string {
	h := hmac.New(sha256.New, c.secret)
	h.Write([]byte(payload))
	return base64.RawURLEncoding.EncodeToString(h.Sum(nil))
}
