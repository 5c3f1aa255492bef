// Package common defines shared constants and sentinel errors used across
// the minimart services. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")

	// Registration errors.
	ErrEmailTaken = errors.New("email already registered")

	// Auth errors. ErrInvalidCredentials is returned for both an unknown
	// email and a wrong password so the caller cannot tell which part was
	// wrong.
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrInvalidToken        = errors.New("invalid token")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrUserNotFound        = errors.New("user not found")
	ErrForbidden           = errors.New("forbidden")
)
