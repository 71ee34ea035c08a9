package review

import (
	"context"
	"time"
)

// Entry is one claim waiting for a human reviewer. Entries mirror the
// MANUAL_REVIEW decisions in the store; the inbox exists so connected
// reviewers hear about new work without polling.
type Entry struct {
	ID              string    `json:"id"`
	ClaimID         string    `json:"claim_id"`
	Decision        string    `json:"decision"`
	OriginalAmount  float64   `json:"original_amount"`
	FraudIndicators []string  `json:"fraud_indicators"`
	Reasons         []string  `json:"reasons"`
	EnqueuedAt      time.Time `json:"enqueued_at"`
}

type Inbox interface {
	Add(ctx context.Context, e Entry) error
	Pending(ctx context.Context) ([]Entry, error)
	Resolve(ctx context.Context, claimID string) error
	NotifyChannel() <-chan struct{}
	Close() error
}
