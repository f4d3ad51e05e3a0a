// Package password wraps bcrypt for credential hashing. The work factor is
// a fixed constant rather than per-call configuration: tightening it later
// means rehashing on login, not silently changing behavior.
package password

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor applied to every new hash.
const Cost = 12

// MinLength is the minimum accepted password length.
const MinLength = 8

// MaxLength is the longest input bcrypt hashes without truncation.
const MaxLength = 72

var (
	ErrPasswordRequired = errors.New("password: password is required")
	ErrPasswordTooShort = errors.New("password: password is too short")
	ErrPasswordTooLong  = errors.New("password: password exceeds 72 bytes")
)

// Validate checks the password against the length policy without hashing it.
func Validate(plaintext string) error {
	switch {
	case plaintext == "":
		return ErrPasswordRequired
	case len(plaintext) < MinLength:
		return ErrPasswordTooShort
	case len(plaintext) > MaxLength:
		// bcrypt truncates input beyond 72 bytes
		return ErrPasswordTooLong
	}
	return nil
}

// Hash derives a salted digest from the plaintext. The per-hash random salt
// is embedded in the returned digest, so two calls on the same password
// yield different values.
func Hash(plaintext string) (string, error) {
	if err := Validate(plaintext); err != nil {
		return "", err
	}
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), Cost)
	if err != nil {
		return "", err
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches the stored digest. bcrypt's
// comparison is constant-time with respect to the digest contents.
func Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
