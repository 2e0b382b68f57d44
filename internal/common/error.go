// Package common defines shared constants and sentinel errors used across
// the TIL pipeline. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// Quota / generation errors.
	ErrInsufficientQuota   = errors.New("insufficient quota")
	ErrSecurityViolation   = errors.New("content failed security filter")
	ErrProviderUnavailable = errors.New("generation provider unavailable")

	// Hosting errors.
	ErrUnauthorized     = errors.New("hosting credentials rejected")
	ErrRequiresReauth   = errors.New("hosting credentials missing or expired")
	ErrForbidden        = errors.New("insufficient hosting permissions")
	ErrNotFoundUpstream = errors.New("repository or branch not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrAlreadyPublished = errors.New("entry already published")
	ErrConflict         = errors.New("version conflict")

	// Validation / internal flow control.
	ErrValidation = errors.New("validation error")
	ErrInternal   = errors.New("internal error")
)

// RateLimitedError carries the computed backoff for a rate-limited hosting
// call. It matches ErrRateLimited under errors.Is so callers can branch on
// the kind without inspecting the concrete type.
type RateLimitedError struct {
	WaitSeconds int64
}

func (e *RateLimitedError) Error() string {
	return fmt.Sprintf("rate limited, retry in %ds", e.WaitSeconds)
}

func (e *RateLimitedError) Is(target error) bool {
	return target == ErrRateLimited
}

// RateLimited builds a RateLimitedError with the given wait.
func RateLimited(waitSeconds int64) error {
	return &RateLimitedError{WaitSeconds: waitSeconds}
}

// WaitSecondsFrom extracts the backoff from a rate-limited error chain,
// returning 0 when the error is not a RateLimitedError.
func WaitSecondsFrom(err error) int64 {
	var rl *RateLimitedError
	if errors.As(err, &rl) {
		return rl.WaitSeconds
	}
	return 0
}
