// Package common defines shared constants and sentinel errors used across
// the LivePaste server layers. Callers should use errors.Is to match these
// values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal   = errors.New("internal error")
	ErrorValidation = errors.New("validation error")

	// Auth errors.
	ErrorPasswordRequired = errors.New("password required")
	ErrInvalidToken       = errors.New("invalid token")

	// Operation-log errors.
	ErrOpConflict = errors.New("operation conflict")

	// Chunked-sync errors.
	ErrSessionExpired = errors.New("sync session expired or unknown")
)
