package engine

import (
	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/validators"
)

// validationSet is the combined output of one validator run, in the shape
// the reasoning service also receives.
type validationSet struct {
	Eligibility validators.Result      `json:"eligibility"`
	Documents   validators.Result      `json:"documents"`
	Coverage    validators.Result      `json:"coverage"`
	Limits      validators.LimitResult `json:"limits"`
	Medical     validators.Result      `json:"medical"`
	Fraud       validators.FraudResult `json:"fraud"`
}

// hardFailureCodes concatenates failing validators' error codes in the
// fixed eligibility, document, coverage, limit, medical order.
func (s validationSet) hardFailureCodes() []string {
	var codes []string
	for _, r := range []validators.Result{s.Eligibility, s.Documents, s.Coverage, s.Limits.Result, s.Medical} {
		if !r.Passed {
			codes = append(codes, r.Errors...)
		}
	}
	return codes
}

// aggregate derives the hard-rule decision. Evaluation order is strict:
// validator failures reject, then fraud suspicion escalates, then the claim
// approves with the limit validator's provisional amount. PARTIAL is never
// produced here; only the narrative stage or a human override can emit it.
func aggregate(d *claims.Decision, set validationSet) {
	d.EligibilityPassed = set.Eligibility.Passed
	d.DocumentsValid = set.Documents.Passed
	d.CoverageVerified = set.Coverage.Passed
	d.LimitsOK = set.Limits.Passed
	d.MedicallyNecessary = set.Medical.Passed
	if set.Fraud.Indicators != nil {
		d.FraudIndicators = set.Fraud.Indicators
	}

	d.ConfidenceScore = confidence(set)

	switch {
	case len(set.hardFailureCodes()) > 0:
		d.Decision = claims.DecisionRejected
		d.RejectionReasons = set.hardFailureCodes()
		d.ApprovedAmount = 0

	case set.Fraud.Suspicious:
		d.Decision = claims.DecisionManualReview
		d.RejectionReasons = []string{"Fraud Suspected"}

	default:
		d.Decision = claims.DecisionApproved
		d.ApprovedAmount = set.Limits.ApprovedAmount
		d.CopayAmount = set.Limits.CopayAmount
		d.CopayPercentage = set.Limits.CopayPercentage
	}
}

// confidence starts at 1.0 and loses 0.1 per failed check, clamped to
// [0, 1]. The narrative stage may overwrite it with its own score.
func confidence(set validationSet) float64 {
	score := 1.0
	for _, r := range []validators.Result{set.Eligibility, set.Documents, set.Coverage, set.Limits.Result, set.Medical} {
		if !r.Passed {
			score -= 0.1
		}
	}
	if set.Fraud.Suspicious {
		score -= 0.1
	}
	if score < 0 {
		return 0
	}
	return score
}
