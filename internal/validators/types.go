// Package validators holds the deterministic rule checks a claim runs
// through before any narrative enrichment. Every validator is a pure
// function of its inputs: no I/O, no mutation, and malformed evidence
// degrades to a coded error instead of a panic.
package validators

import "github.com/opdclaims/adjudicator/internal/claims"

// Result is the common validator outcome: pass/fail plus coded errors.
type Result struct {
	Passed bool     `json:"passed"`
	Errors []string `json:"errors"`
}

func pass() Result {
	return Result{Passed: true, Errors: []string{}}
}

func resultFor(errs []string) Result {
	if len(errs) == 0 {
		return pass()
	}
	return Result{Passed: false, Errors: errs}
}

// LimitResult extends Result with the financial computation the limit
// check performs regardless of pass/fail.
type LimitResult struct {
	Result
	ApprovedAmount  float64 `json:"approved_amount"`
	CopayAmount     float64 `json:"copay_amount"`
	CopayPercentage float64 `json:"copay_percentage"`
}

// FraudResult is the fraud detector's outcome. Suspicion escalates a claim
// to manual review rather than rejecting it.
type FraudResult struct {
	Suspicious bool     `json:"suspicious"`
	Indicators []string `json:"indicators"`
}

// NecessityChecker decides whether the claimed treatment is medically
// justified by the diagnosis. The rule strength here is expected to change,
// so the engine depends on this interface rather than a concrete check.
type NecessityChecker interface {
	Validate(ev claims.Evidence) Result
}

// FraudDetector flags suspicious claim patterns. Implementations may add
// heuristics (duplicate claims, provider anomalies) without changing the
// contract.
type FraudDetector interface {
	Detect(ev claims.Evidence, pc claims.PolicyContext) FraudResult
}
