package auth

import "errors"

var (
	// ErrInvalidToken covers malformed, forged and expired tokens alike;
	// callers never learn which, everything resolves to "not logged in".
	ErrInvalidToken = errors.New("auth: invalid token")

	ErrInvalidCredentials = errors.New("auth: invalid credentials")
	ErrRateLimited        = errors.New("auth: too many failed login attempts")
	ErrNotAllowed         = errors.New("auth: not allowed")
	ErrNotFound           = errors.New("auth: not found")
	ErrInvalidInput       = errors.New("auth: invalid input")
)
