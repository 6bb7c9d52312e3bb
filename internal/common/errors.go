// Package common defines shared constants and sentinel errors used across
// the service layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")
	ErrorConflict = errors.New("already exists")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrorForbidden    = errors.New("access denied")

	// Token verification errors, one per failure reason so callers can
	// report which check failed.
	ErrTokenExpired   = errors.New("token expired")
	ErrBadSignature   = errors.New("token signature invalid")
	ErrMalformedToken = errors.New("token malformed")
)
