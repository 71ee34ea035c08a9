package validators

import (
	"strings"

	"github.com/opdclaims/adjudicator/internal/claims"
)

// Fallback limits for plans whose terms omit them. A zero limit in a
// terms document means unset, not unlimited.
const (
	DefaultPerClaimLimit = 5000
	DefaultAnnualLimit   = 50000
)

// Limit checks the claim against per-claim and annual financial limits and,
// independently of pass/fail, computes the co-pay split for the claim's
// treatment category.
type Limit struct{}

func (Limit) Validate(amount float64, pc claims.PolicyContext, ev claims.Evidence, terms claims.PolicyTerms) LimitResult {
	var errs []string

	perClaim := terms.PerClaimLimit
	if perClaim <= 0 {
		perClaim = DefaultPerClaimLimit
	}
	annual := terms.AnnualLimit
	if annual <= 0 {
		annual = DefaultAnnualLimit
	}

	if amount > perClaim {
		errs = append(errs, CodePerClaimLimitExceeded)
	}
	if pc.AnnualLimitUsed+amount > annual {
		errs = append(errs, CodeAnnualLimitExceeded)
	}

	copayPct := copayPercentage(ev, terms)
	copayAmount := amount * copayPct / 100
	approved := amount - copayAmount

	// A breached limit means nothing is payable; there is no partial
	// capping at this stage.
	if len(errs) > 0 {
		approved = 0
	}

	return LimitResult{
		Result:          resultFor(errs),
		ApprovedAmount:  approved,
		CopayAmount:     copayAmount,
		CopayPercentage: copayPct,
	}
}

func copayPercentage(ev claims.Evidence, terms claims.PolicyTerms) float64 {
	category := strings.ToLower(ev.Str("treatment_type"))
	if category == "" {
		category = "consultation"
	}

	if c, ok := terms.Category(category); ok {
		return c.CopayPercentage
	}
	return 10 // default rate when the plan defines no category terms
}
