// Package ratelimit gates calls to the external reasoning service. The
// limiter is consulted around, not inside, the reasoning call: callers
// CheckAndWait before dialing and RecordUsage with the actual token count
// afterwards.
package ratelimit

import (
	"context"
	"errors"
)

// ErrDailyCapExceeded is the hard stop: the request-per-day budget is spent
// and callers must not retry until the window rolls over.
var ErrDailyCapExceeded = errors.New("daily reasoning-service request cap exceeded")

// Limits is the reasoning-service budget.
type Limits struct {
	RequestsPerMinute int
	TokensPerMinute   int
	RequestsPerDay    int
}

func DefaultLimits() Limits {
	return Limits{
		RequestsPerMinute: 20,
		TokensPerMinute:   30000,
		RequestsPerDay:    500,
	}
}

// Limiter is the collaborator contract the engine depends on.
type Limiter interface {
	// CheckAndWait blocks until the request fits inside the per-minute
	// windows, or returns ErrDailyCapExceeded (or ctx.Err) when it cannot.
	CheckAndWait(ctx context.Context, estimatedTokens int, requestID string) error

	// RecordUsage books the actual token spend of a completed call.
	RecordUsage(ctx context.Context, actualTokens int)
}
