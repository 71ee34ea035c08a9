// Package decisions persists adjudication outcomes. The store enforces the
// one-decision-per-claim invariant with upsert semantics keyed by claim_id,
// and keeps the manual-review override as the only post-creation mutation
// path distinguishable from automated re-adjudication.
package decisions

import (
	"context"
	"errors"

	"github.com/opdclaims/adjudicator/internal/claims"
)

var (
	// ErrNotFound means no decision exists for the claim.
	ErrNotFound = errors.New("decision not found")

	// ErrAnnualLimitExhausted means the ledger refused an increment that
	// would overspend the holder's annual limit.
	ErrAnnualLimitExhausted = errors.New("annual limit exhausted")
)

// Override is a human reviewer's correction of an automated decision.
type Override struct {
	ReviewerID     string              `json:"reviewer_id"`
	NewDecision    claims.DecisionType `json:"new_decision"`
	ApprovedAmount *float64            `json:"approved_amount,omitempty"`
	ReviewNotes    string              `json:"review_notes"`
}

// Stats summarizes the decision table for dashboards.
type Stats struct {
	Total             int     `json:"total_decisions"`
	Approved          int     `json:"approved"`
	Rejected          int     `json:"rejected"`
	ManualReview      int     `json:"manual_review"`
	PendingReview     int     `json:"pending_review"`
	AverageConfidence float64 `json:"average_confidence"`
	ApprovalRate      float64 `json:"approval_rate"`
}

// Store is the decision persistence contract.
type Store interface {
	Upsert(ctx context.Context, d claims.Decision) error
	Get(ctx context.Context, claimID string) (claims.Decision, error)
	PendingReview(ctx context.Context, limit int) ([]claims.Decision, error)
	ApplyOverride(ctx context.Context, claimID string, ov Override) (claims.Decision, error)
	Stats(ctx context.Context) (Stats, error)
	Close() error
}
