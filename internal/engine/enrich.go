package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/reasoning"
	"github.com/rs/zerolog/log"
)

// enrich asks the reasoning service for a narrative and applies its outcome
// under the guardrail. Any failure along the way leaves the hard-rule
// decision intact with an annotated note; enrichment is never allowed to
// break the pipeline.
func (e *Engine) enrich(ctx context.Context, claimID string, d *claims.Decision, in Input, set validationSet) {
	if e.narrator == nil {
		d.Notes = "Processed by hard rules; no reasoning service configured."
		return
	}

	req, err := buildNarrationRequest(d, in, set)
	if err != nil {
		// Marshaling our own structs should not fail; treat it like any
		// other dependency failure and keep the hard-rule decision.
		e.fallback(d, err)
		return
	}

	estimated := estimateTokens(req)
	if err := e.limiter.CheckAndWait(ctx, estimated, claimID); err != nil {
		e.fallback(d, fmt.Errorf("rate limiter: %w", err))
		return
	}

	narrateCtx, cancel := context.WithTimeout(ctx, e.narrateTimeout)
	defer cancel()

	outcome, err := e.narrator.Narrate(narrateCtx, req)
	if err != nil {
		e.fallback(d, err)
		return
	}
	if outcome.TokensUsed > 0 {
		e.limiter.RecordUsage(ctx, outcome.TokensUsed)
	}

	e.applyOutcome(claimID, d, set, outcome)
}

func (e *Engine) fallback(d *claims.Decision, cause error) {
	log.Warn().Err(cause).Str("claim_id", d.ClaimID).Msg("reasoning enrichment failed, keeping hard-rule decision")
	d.Notes = fmt.Sprintf("Processed by hard rules (reasoning service unavailable: %v)", cause)
}

// applyOutcome merges the narrator's outcome into the decision. The
// guardrail runs first: a failed limits or documents check can never end in
// APPROVED, whatever the reasoning service said. Eligibility, coverage and
// fraud do not need a clamp here because the aggregator already rejected or
// escalated before this point.
func (e *Engine) applyOutcome(claimID string, d *claims.Decision, set validationSet, outcome reasoning.Outcome) {
	final := claims.DecisionType(outcome.FinalDecision)

	if final == claims.DecisionApproved && (!set.Limits.Passed || !set.Documents.Passed) {
		log.Warn().
			Str("claim_id", claimID).
			Bool("limits_passed", set.Limits.Passed).
			Bool("documents_passed", set.Documents.Passed).
			Msg("guardrail override: reasoning service approved a claim with hard failures")
		final = claims.DecisionRejected
	}

	d.Decision = final
	if final == claims.DecisionRejected {
		d.ApprovedAmount = 0
	}

	if outcome.Reasoning != "" {
		d.Notes = outcome.Reasoning
	}
	if outcome.NextSteps != "" {
		d.NextSteps = outcome.NextSteps
	}
	if outcome.ConfidenceScore != nil {
		d.ConfidenceScore = clamp01(*outcome.ConfidenceScore)
	}

	if len(outcome.Citations) > 0 {
		d.Notes += "\n\nPolicy Citations:\n- " + strings.Join(outcome.Citations, "\n- ")

		// A rejection driven by the reasoning stage itself has no coded
		// reasons yet; the citations are the best record of why.
		if d.Decision == claims.DecisionRejected && len(d.RejectionReasons) == 0 {
			d.RejectionReasons = outcome.Citations
		}
	}
}

func buildNarrationRequest(d *claims.Decision, in Input, set validationSet) (reasoning.Request, error) {
	terms, err := json.Marshal(in.Terms)
	if err != nil {
		return reasoning.Request{}, fmt.Errorf("marshal policy terms: %w", err)
	}
	evidence, err := json.Marshal(in.Evidence)
	if err != nil {
		return reasoning.Request{}, fmt.Errorf("marshal evidence: %w", err)
	}
	results, err := json.Marshal(set)
	if err != nil {
		return reasoning.Request{}, fmt.Errorf("marshal validation results: %w", err)
	}

	return reasoning.Request{
		PolicyTerms:         terms,
		ClaimEvidence:       evidence,
		ValidationResults:   results,
		PreliminaryDecision: string(d.Decision),
		PreliminaryErrors:   d.RejectionReasons,
	}, nil
}

// estimateTokens approximates the prompt size for rate-limiter accounting.
// Four bytes per token is the usual rough cut for English JSON; the
// response allowance is a flat add.
func estimateTokens(req reasoning.Request) int {
	payload := len(req.PolicyTerms) + len(req.ClaimEvidence) + len(req.ValidationResults)
	return payload/4 + 500
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
