// Package retry holds the single retry policy shared by the components that
// talk to external APIs.
package retry

import (
	"context"
	"errors"
	"time"
)

// Policy retries an operation with exponentially doubling delays. The zero
// value performs exactly one attempt.
type Policy struct {
	MaxAttempts  int
	InitialDelay time.Duration
}

// Permanent wraps an error that must not be retried, such as a well-formed
// "not found" response.
type Permanent struct {
	Err error
}

func (p Permanent) Error() string { return p.Err.Error() }

func (p Permanent) Unwrap() error { return p.Err }

// Do runs op until it succeeds, returns a Permanent error, the attempt budget
// is exhausted, or ctx is cancelled. The delay before attempt n+1 is
// InitialDelay * 2^(n-1); there is no delay after the final attempt.
func (p Policy) Do(ctx context.Context, op func() error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}
	delay := p.InitialDelay
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if err = op(); err == nil {
			return nil
		}
		var perm Permanent
		if errors.As(err, &perm) {
			return perm.Err
		}
		if attempt == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return err
}
