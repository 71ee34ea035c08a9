package validators

import "github.com/opdclaims/adjudicator/internal/claims"

// DefaultHighValueThreshold is the claimed amount above which a claim is
// flagged for human review.
const DefaultHighValueThreshold = 20000

// ThresholdFraud flags claims whose amount exceeds a configured threshold.
// Duplicate-claim and pattern heuristics can be added behind the same
// FraudDetector contract.
type ThresholdFraud struct {
	HighValueThreshold float64
}

func NewThresholdFraud(threshold float64) ThresholdFraud {
	if threshold <= 0 {
		threshold = DefaultHighValueThreshold
	}
	return ThresholdFraud{HighValueThreshold: threshold}
}

func (d ThresholdFraud) Detect(ev claims.Evidence, pc claims.PolicyContext) FraudResult {
	var indicators []string

	if ev.TotalAmount() > d.HighValueThreshold {
		indicators = append(indicators, CodeHighValueClaim)
	}

	return FraudResult{
		Suspicious: len(indicators) > 0,
		Indicators: indicators,
	}
}
