// Package common defines shared constants and sentinel errors used across
// authkeeper components. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorValidation   = errors.New("validation error")

	// Password errors. Policy violations are user-correctable, hashing
	// failures are internal.
	ErrPolicyViolation = errors.New("password policy violation")
	ErrHashingFailure  = errors.New("password hashing failure")

	// Authentication gate rejections. All of them surface to clients as one
	// generic "authentication failed" signal.
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrInvalidToken    = errors.New("invalid token")
	ErrUnknownSubject  = errors.New("unknown subject")

	// Field encryption errors.
	ErrDecryptionIntegrity = errors.New("decryption integrity failure")

	// Startup errors.
	ErrConfigurationMissing = errors.New("configuration missing")
)
