package token

import "errors"

var (
	ErrMissingSecret  = errors.New("token: missing signing secret")
	ErrMalformedToken = errors.New("token: malformed token")
	ErrBadSignature   = errors.New("token: signature mismatch")
	ErrExpiredToken   = errors.New("token: token is expired")
)
