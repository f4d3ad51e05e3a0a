package auth

import "errors"

var (
	// ErrInvalidCredentials covers both unknown email and wrong password so
	// login responses cannot be used for account enumeration.
	ErrInvalidCredentials = errors.New("auth: invalid credentials")

	ErrInvalidCurrentPassword = errors.New("auth: current password does not match")
	ErrInvalidOrExpiredToken  = errors.New("auth: invalid or expired token")
)
