// Package limiter throttles admin password attempts per (e-mail, client IP).
package limiter

import (
	"context"
	"time"
)

// Limiter controls login attempts and temporary lockouts.
type Limiter interface {
	// Allow reports whether a login attempt may proceed, with retry-after when blocked.
	Allow(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
	// Success clears the counters.
	Success(ctx context.Context, email string, ipHash []byte) error
	// Failure records a failed attempt and reports whether the pair is now blocked.
	Failure(ctx context.Context, email string, ipHash []byte) (bool, time.Duration, error)
}

// Nop never blocks. Used when no database is configured.
type Nop struct{}

func (Nop) Allow(context.Context, string, []byte) (bool, time.Duration, error) { return true, 0, nil }
func (Nop) Success(context.Context, string, []byte) error                        { return nil }
func (Nop) Failure(context.Context, string, []byte) (bool, time.Duration, error) {
	return false, 0, nil
}
