package user

import "errors"

var (
	ErrNotFound          = errors.New("user: not found")
	ErrDuplicateEmail    = errors.New("user: email already registered")
	ErrDuplicateUsername = errors.New("user: username already taken")
	ErrTokenNotFound     = errors.New("user: token not found")
)
