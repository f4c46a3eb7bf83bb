// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across repo/service layers.
var (
	// ErrNotFound indicates the requested entity (listing, admin) does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthorized indicates failed authentication/authorization.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., admin e-mail taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrUnavailable indicates an optional backend (e.g. image storage) is not configured.
	ErrUnavailable = errors.New("unavailable")
)

// Verification flow sentinels.
var (
	// ErrNoSession indicates there is no pending verification code for the e-mail.
	ErrNoSession = errors.New("no verification session")

	// ErrCodeExpired indicates the verification code outlived its validity window.
	ErrCodeExpired = errors.New("verification code expired")

	// ErrCodeMismatch indicates a wrong verification code. Returned wrapped in *MismatchError.
	ErrCodeMismatch = errors.New("verification code mismatch")
)
