package engine

import (
	"reflect"
	"testing"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/validators"
)

func failed(codes ...string) validators.Result {
	return validators.Result{Passed: false, Errors: codes}
}

func passed() validators.Result {
	return validators.Result{Passed: true, Errors: []string{}}
}

func TestRejectionReasonOrdering(t *testing.T) {
	set := validationSet{
		Eligibility: failed("POLICY_INACTIVE"),
		Documents:   failed("MISSING_FIELD_DATE", "MISSING_FIELD_TOTAL_AMOUNT"),
		Coverage:    failed("SERVICE_EXCLUDED"),
		Limits:      validators.LimitResult{Result: failed("PER_CLAIM_LIMIT_EXCEEDED")},
		Medical:     passed(),
	}

	var d claims.Decision
	aggregate(&d, set)

	want := []string{
		"POLICY_INACTIVE",
		"MISSING_FIELD_DATE", "MISSING_FIELD_TOTAL_AMOUNT",
		"SERVICE_EXCLUDED",
		"PER_CLAIM_LIMIT_EXCEEDED",
	}
	if !reflect.DeepEqual(d.RejectionReasons, want) {
		t.Errorf("reasons must follow eligibility, document, coverage, limit, medical order:\ngot  %v\nwant %v", d.RejectionReasons, want)
	}
	if d.Decision != claims.DecisionRejected {
		t.Errorf("expected REJECTED, got %s", d.Decision)
	}
}

func TestFraudLosesToHardFailures(t *testing.T) {
	// A failed validator rejects even when fraud is also suspicious.
	set := validationSet{
		Eligibility: failed("POLICY_SUSPENDED"),
		Documents:   passed(),
		Coverage:    passed(),
		Limits:      validators.LimitResult{Result: passed()},
		Medical:     passed(),
		Fraud:       validators.FraudResult{Suspicious: true, Indicators: []string{"HIGH_VALUE_CLAIM"}},
	}

	var d claims.Decision
	aggregate(&d, set)

	if d.Decision != claims.DecisionRejected {
		t.Errorf("hard failure outranks fraud escalation, got %s", d.Decision)
	}
	if len(d.FraudIndicators) != 1 {
		t.Errorf("indicators should still be recorded, got %v", d.FraudIndicators)
	}
}

func TestConfidenceDeductions(t *testing.T) {
	set := validationSet{
		Eligibility: failed("X"),
		Documents:   failed("Y"),
		Coverage:    passed(),
		Limits:      validators.LimitResult{Result: passed()},
		Medical:     passed(),
	}

	var d claims.Decision
	aggregate(&d, set)

	if d.ConfidenceScore < 0.79 || d.ConfidenceScore > 0.81 {
		t.Errorf("two failures should score ~0.8, got %v", d.ConfidenceScore)
	}
}
