// Package reasoning is the boundary to the external natural-language
// service that turns a hard-rule decision into a human-readable rationale.
// The engine treats everything here as advisory: the guardrail in the
// engine package clamps any outcome that contradicts a hard failure.
package reasoning

import (
	"context"
	"encoding/json"
)

// Request carries the full adjudication context to the reasoning service.
// All payloads are pre-marshaled JSON so the transport stays schema-agnostic.
type Request struct {
	PolicyTerms         json.RawMessage `json:"policy_terms"`
	ClaimEvidence       json.RawMessage `json:"claim_evidence"`
	ValidationResults   json.RawMessage `json:"validation_results"`
	PreliminaryDecision string          `json:"preliminary_decision"`
	PreliminaryErrors   []string        `json:"preliminary_errors"`
}

// Outcome is the strict response schema. Responses that do not parse into
// this shape are rejected and the caller falls back to the hard-rule
// decision.
type Outcome struct {
	FinalDecision   string   `json:"final_decision"`
	Reasoning       string   `json:"reasoning"`
	Citations       []string `json:"citations"`
	NextSteps       string   `json:"next_steps"`
	ConfidenceScore *float64 `json:"confidence_score,omitempty"`

	// TokensUsed is reported for rate-limiter accounting; zero when the
	// service does not return usage data.
	TokensUsed int `json:"-"`
}

// Narrator produces the narrative enrichment for a preliminary decision.
// One production implementation calls an external LLM; the deterministic
// stub serves tests and degraded deployments.
type Narrator interface {
	Narrate(ctx context.Context, req Request) (Outcome, error)
}
