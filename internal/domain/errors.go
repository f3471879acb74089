package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for the failure taxonomy. Callers classify failures with
// errors.Is; wrapping with fmt.Errorf("%w: ...") preserves the class.
var (
	// ErrUnauthenticated means no valid subject was presented.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrNotFound means the entity is absent or not owned by the caller.
	ErrNotFound = errors.New("not found")

	// ErrValidation means the input is malformed and nothing was written.
	ErrValidation = errors.New("invalid input")

	// ErrRateLimited means the caller's token bucket is exhausted. Distinct
	// from ErrValidation so callers can react with backoff.
	ErrRateLimited = errors.New("rate limited")

	// ErrConflict means a concurrent write invalidated an atomic unit.
	ErrConflict = errors.New("conflict")

	// ErrUpstream means an external collaborator failed or timed out.
	ErrUpstream = errors.New("upstream failure")
)

// RateLimitError carries the retry hint from the rate-limit collaborator.
// errors.Is(err, ErrRateLimited) matches it.
type RateLimitError struct {
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited, retry after %s", e.RetryAfter.Round(time.Second))
}

func (e *RateLimitError) Is(target error) bool {
	return target == ErrRateLimited
}
