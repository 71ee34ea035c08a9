// Package engine runs the adjudication pipeline: deterministic validators
// in parallel, a hard-rule aggregation step, then a guardrail-constrained
// narrative enrichment. The engine never fails for business reasons; every
// path ends in a populated claims.Decision.
package engine

import (
	"context"
	"sync"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/ratelimit"
	"github.com/opdclaims/adjudicator/internal/reasoning"
	"github.com/opdclaims/adjudicator/internal/validators"
	"github.com/rs/zerolog/log"
)

const defaultNarrateTimeout = 60 * time.Second

// Input is everything one adjudication call needs. All three parts are
// supplied by collaborators and treated as immutable for the duration of
// the call.
type Input struct {
	Policy   claims.PolicyContext
	Evidence claims.Evidence
	Terms    claims.PolicyTerms
}

// Options configures an Engine. Zero-value fields fall back to the
// passthrough necessity check, the threshold fraud detector, a permissive
// in-memory limiter and the default narration timeout. Narrator may be nil,
// in which case enrichment is skipped and the hard-rule decision stands.
type Options struct {
	Narrator       reasoning.Narrator
	Limiter        ratelimit.Limiter
	Necessity      validators.NecessityChecker
	Fraud          validators.FraudDetector
	NarrateTimeout time.Duration
}

type Engine struct {
	eligibility validators.Eligibility
	document    validators.Document
	coverage    validators.Coverage
	limit       validators.Limit
	necessity   validators.NecessityChecker
	fraud       validators.FraudDetector

	narrator       reasoning.Narrator
	limiter        ratelimit.Limiter
	narrateTimeout time.Duration

	now func() time.Time
}

func New(opts Options) *Engine {
	if opts.Necessity == nil {
		opts.Necessity = validators.PassthroughNecessity{}
	}
	if opts.Fraud == nil {
		opts.Fraud = validators.NewThresholdFraud(0)
	}
	if opts.Limiter == nil {
		opts.Limiter = ratelimit.NewMemoryLimiter(ratelimit.DefaultLimits())
	}
	if opts.NarrateTimeout <= 0 {
		opts.NarrateTimeout = defaultNarrateTimeout
	}

	return &Engine{
		necessity:      opts.Necessity,
		fraud:          opts.Fraud,
		narrator:       opts.Narrator,
		limiter:        opts.Limiter,
		narrateTimeout: opts.NarrateTimeout,
		now:            time.Now,
	}
}

// Adjudicate runs the full pipeline for one claim. The returned decision is
// always valid: dependency failures annotate the record instead of aborting.
func (e *Engine) Adjudicate(ctx context.Context, claimID string, in Input) claims.Decision {
	log.Info().Str("claim_id", claimID).Msg("starting adjudication")

	amount := in.Evidence.TotalAmount()

	decision := claims.Decision{
		ClaimID:          claimID,
		OriginalAmount:   amount,
		RejectionReasons: []string{},
		FraudIndicators:  []string{},
		AdjudicatedAt:    e.now().UTC(),
		AdjudicatedBy:    claims.AdjudicatedBySystem,
	}

	set := e.runValidators(amount, in)
	aggregate(&decision, set)

	log.Info().
		Str("claim_id", claimID).
		Str("preliminary", string(decision.Decision)).
		Strs("errors", decision.RejectionReasons).
		Msg("hard-rule decision")

	e.enrich(ctx, claimID, &decision, in, set)

	return decision
}

// runValidators executes all checks concurrently. Each goroutine writes a
// distinct field of the set, so no locking is needed; the WaitGroup is the
// single synchronization point.
func (e *Engine) runValidators(amount float64, in Input) validationSet {
	var set validationSet
	var wg sync.WaitGroup

	wg.Add(6)
	go func() {
		defer wg.Done()
		set.Eligibility = e.eligibility.Validate(in.Policy, in.Evidence, in.Terms)
	}()
	go func() {
		defer wg.Done()
		set.Documents = e.document.Validate(in.Evidence)
	}()
	go func() {
		defer wg.Done()
		set.Coverage = e.coverage.Validate(in.Evidence, in.Terms)
	}()
	go func() {
		defer wg.Done()
		set.Limits = e.limit.Validate(amount, in.Policy, in.Evidence, in.Terms)
	}()
	go func() {
		defer wg.Done()
		set.Medical = e.necessity.Validate(in.Evidence)
	}()
	go func() {
		defer wg.Done()
		set.Fraud = e.fraud.Detect(in.Evidence, in.Policy)
	}()
	wg.Wait()

	return set
}
