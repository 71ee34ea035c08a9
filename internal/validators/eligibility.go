package validators

import (
	"fmt"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/dates"
)

// Eligibility checks the policy holder's status and waiting-period
// satisfaction.
//
// The waiting period is always recomputed from join date and bill date.
// The PolicyContext carries a WaitingPeriodCompleted flag, but it is
// maintained by a separate subsystem and goes stale; recomputing from
// dates keeps the check correct even when the flag was never updated.
type Eligibility struct{}

func (Eligibility) Validate(pc claims.PolicyContext, ev claims.Evidence, terms claims.PolicyTerms) Result {
	var errs []string

	switch pc.PolicyStatus {
	case claims.StatusActive:
	case claims.StatusSuspended:
		errs = append(errs, CodePolicySuspended)
	case claims.StatusInactive:
		errs = append(errs, CodePolicyInactive)
	default:
		status := string(pc.PolicyStatus)
		if status == "" {
			status = "UNKNOWN"
		}
		errs = append(errs, fmt.Sprintf("POLICY_STATUS_%s", status))
	}

	if code := checkWaitingPeriod(pc, ev, terms); code != "" {
		errs = append(errs, code)
	}

	return resultFor(errs)
}

// checkWaitingPeriod returns a failure code, or "" when the check passes.
// When either date is missing entirely there is nothing to compute and the
// document validator reports the gap instead.
func checkWaitingPeriod(pc claims.PolicyContext, ev claims.Evidence, terms claims.PolicyTerms) string {
	joinStr := pc.JoinDate
	billStr := ev.BillDate()
	if joinStr == "" || billStr == "" {
		return ""
	}

	join, err := dates.Parse(joinStr)
	if err != nil {
		return CodeDateParsingError
	}
	bill, err := dates.Parse(billStr)
	if err != nil {
		return CodeDateParsingError
	}

	initial := terms.WaitingPeriods.InitialDays
	if initial <= 0 {
		initial = 30
	}

	if dates.DaysBetween(join, bill) < initial {
		return CodeWaitingPeriodNotMet
	}
	return ""
}
