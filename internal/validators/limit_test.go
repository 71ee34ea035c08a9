package validators

import (
	"testing"

	"github.com/opdclaims/adjudicator/internal/claims"
)

func standardTerms() claims.PolicyTerms {
	return claims.PolicyTerms{
		AnnualLimit:   50000,
		PerClaimLimit: 5000,
		Categories: map[string]claims.CategoryTerms{
			"consultation": {Covered: true, Limit: 5000, CopayPercentage: 10},
			"pharmacy":     {Covered: true, Limit: 10000, CopayPercentage: 20},
		},
	}
}

func TestLimitCopayMath(t *testing.T) {
	pc := claims.PolicyContext{AnnualLimitUsed: 0}
	ev := claims.Evidence{"treatment_type": "consultation"}

	res := Limit{}.Validate(1500, pc, ev, standardTerms())
	if !res.Passed {
		t.Fatalf("within limits should pass, got %v", res.Errors)
	}
	if res.CopayPercentage != 10 {
		t.Errorf("expected 10%% copay, got %v", res.CopayPercentage)
	}
	if res.CopayAmount != 150 {
		t.Errorf("expected copay 150, got %v", res.CopayAmount)
	}
	if res.ApprovedAmount != 1350 {
		t.Errorf("expected approved 1350, got %v", res.ApprovedAmount)
	}
}

func TestLimitPerClaimBreach(t *testing.T) {
	res := Limit{}.Validate(6000, claims.PolicyContext{}, claims.Evidence{}, standardTerms())
	if res.Passed {
		t.Fatal("6000 against a 5000 per-claim limit should fail")
	}
	if res.Errors[0] != CodePerClaimLimitExceeded {
		t.Errorf("expected %s, got %v", CodePerClaimLimitExceeded, res.Errors)
	}
	if res.ApprovedAmount != 0 {
		t.Errorf("breached limit must zero the approved amount, got %v", res.ApprovedAmount)
	}
	// Copay math still runs for the record.
	if res.CopayPercentage != 10 {
		t.Errorf("copay percentage should still be computed, got %v", res.CopayPercentage)
	}
}

func TestLimitAnnualBreach(t *testing.T) {
	pc := claims.PolicyContext{AnnualLimitUsed: 49000}

	res := Limit{}.Validate(2000, pc, claims.Evidence{}, standardTerms())
	if res.Passed {
		t.Fatal("used 49000 + claim 2000 over a 50000 annual limit should fail")
	}
	if res.Errors[0] != CodeAnnualLimitExceeded {
		t.Errorf("expected %s, got %v", CodeAnnualLimitExceeded, res.Errors)
	}
}

func TestLimitDefaultsWhenTermsOmitLimits(t *testing.T) {
	// A terms document with no limits still caps claims at the fallback
	// values; zero never means unlimited.
	empty := claims.PolicyTerms{}

	res := Limit{}.Validate(5500, claims.PolicyContext{}, claims.Evidence{}, empty)
	if res.Passed {
		t.Fatal("5500 against the default 5000 per-claim limit should fail")
	}
	if res.Errors[0] != CodePerClaimLimitExceeded {
		t.Errorf("expected %s, got %v", CodePerClaimLimitExceeded, res.Errors)
	}

	pc := claims.PolicyContext{AnnualLimitUsed: 49000}
	res = Limit{}.Validate(2000, pc, claims.Evidence{}, empty)
	if res.Passed {
		t.Fatal("49000 used + 2000 against the default 50000 annual limit should fail")
	}

	res = Limit{}.Validate(1500, claims.PolicyContext{}, claims.Evidence{}, empty)
	if !res.Passed {
		t.Errorf("1500 within the default limits should pass, got %v", res.Errors)
	}
}

func TestLimitCategoryFallback(t *testing.T) {
	// "dental" has no category entry; the consultation rate applies.
	ev := claims.Evidence{"treatment_type": "dental"}

	res := Limit{}.Validate(1000, claims.PolicyContext{}, ev, standardTerms())
	if res.CopayPercentage != 10 {
		t.Errorf("expected consultation fallback rate 10, got %v", res.CopayPercentage)
	}

	ev["treatment_type"] = "pharmacy"
	res = Limit{}.Validate(1000, claims.PolicyContext{}, ev, standardTerms())
	if res.CopayPercentage != 20 {
		t.Errorf("expected pharmacy rate 20, got %v", res.CopayPercentage)
	}
}
