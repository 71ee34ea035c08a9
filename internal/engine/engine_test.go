package engine

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/reasoning"
	"github.com/opdclaims/adjudicator/internal/validators"
)

type stubLimiter struct {
	checkErr error
	checked  int
	recorded int
}

func (s *stubLimiter) CheckAndWait(ctx context.Context, estimatedTokens int, requestID string) error {
	s.checked++
	return s.checkErr
}

func (s *stubLimiter) RecordUsage(ctx context.Context, actualTokens int) {
	s.recorded += actualTokens
}

func approvableInput() Input {
	return Input{
		Policy: claims.PolicyContext{
			PolicyHolderID:  "PH-001",
			PolicyStatus:    claims.StatusActive,
			JoinDate:        "2023-01-01",
			AnnualLimit:     50000,
			AnnualLimitUsed: 0,
		},
		Evidence: claims.Evidence{
			"patient_name":   "Jane Roe",
			"date":           "2024-02-01",
			"diagnosis":      "acute bronchitis",
			"total_amount":   1500.0,
			"treatment_type": "consultation",
		},
		Terms: claims.PolicyTerms{
			AnnualLimit:   50000,
			PerClaimLimit: 5000,
			Categories: map[string]claims.CategoryTerms{
				"consultation": {Covered: true, Limit: 5000, CopayPercentage: 10},
			},
			WaitingPeriods: claims.WaitingPeriods{InitialDays: 30},
		},
	}
}

func approvedOutcome() reasoning.Outcome {
	conf := 0.95
	return reasoning.Outcome{
		FinalDecision:   "APPROVED",
		Reasoning:       "All validations passed and the claim is within limits.",
		Citations:       []string{"Per Claim Limit: 5000"},
		NextSteps:       "Reimbursement will be processed.",
		ConfidenceScore: &conf,
		TokensUsed:      400,
	}
}

func TestAdjudicateApproves(t *testing.T) {
	stub := &reasoning.StubNarrator{Outcome: approvedOutcome()}
	lim := &stubLimiter{}
	eng := New(Options{Narrator: stub, Limiter: lim})

	d := eng.Adjudicate(context.Background(), "CLM-001", approvableInput())

	if d.Decision != claims.DecisionApproved {
		t.Fatalf("expected APPROVED, got %s (%v)", d.Decision, d.RejectionReasons)
	}
	if d.ApprovedAmount != 1350 {
		t.Errorf("expected approved 1350, got %v", d.ApprovedAmount)
	}
	if d.CopayAmount != 150 || d.CopayPercentage != 10 {
		t.Errorf("copay fields not carried: %v / %v", d.CopayAmount, d.CopayPercentage)
	}
	if d.AdjudicatedBy != claims.AdjudicatedBySystem {
		t.Errorf("expected SYSTEM adjudicator, got %s", d.AdjudicatedBy)
	}
	if d.ConfidenceScore != 0.95 {
		t.Errorf("narrator confidence should win, got %v", d.ConfidenceScore)
	}
	if lim.checked != 1 {
		t.Errorf("limiter should be consulted once, got %d", lim.checked)
	}
	if lim.recorded != 400 {
		t.Errorf("actual usage should be recorded, got %d", lim.recorded)
	}
	if !strings.Contains(d.Notes, "Policy Citations") {
		t.Errorf("citations should append to notes, got %q", d.Notes)
	}
}

func TestHardFailureRejectsRegardlessOfNarrator(t *testing.T) {
	// The narrator insists on APPROVED; the documents check failed.
	stub := &reasoning.StubNarrator{Outcome: approvedOutcome()}
	eng := New(Options{Narrator: stub})

	in := approvableInput()
	delete(in.Evidence, "patient_name")

	d := eng.Adjudicate(context.Background(), "CLM-002", in)

	if d.Decision != claims.DecisionRejected {
		t.Fatalf("guardrail must clamp to REJECTED, got %s", d.Decision)
	}
	if d.ApprovedAmount != 0 {
		t.Errorf("rejected claim must carry zero amount, got %v", d.ApprovedAmount)
	}
	if d.RejectionReasons[0] != validators.CodeMissingPatientName {
		t.Errorf("expected %s first, got %v", validators.CodeMissingPatientName, d.RejectionReasons)
	}
	if d.DocumentsValid {
		t.Error("documents flag should record the failure")
	}
}

func TestGuardrailClampOnLimitFailure(t *testing.T) {
	stub := &reasoning.StubNarrator{Outcome: approvedOutcome()}
	eng := New(Options{Narrator: stub})

	in := approvableInput()
	in.Evidence["total_amount"] = 6000.0 // over the 5000 per-claim limit

	d := eng.Adjudicate(context.Background(), "CLM-003", in)

	if d.Decision != claims.DecisionRejected {
		t.Fatalf("limit failure must never end APPROVED, got %s", d.Decision)
	}
	if d.ApprovedAmount != 0 {
		t.Errorf("expected zero amount, got %v", d.ApprovedAmount)
	}
}

func TestFraudEscalatesToManualReview(t *testing.T) {
	stub := &reasoning.StubNarrator{Outcome: reasoning.Outcome{
		FinalDecision: "MANUAL_REVIEW",
		Reasoning:     "High value claim requires human review.",
		NextSteps:     "A reviewer will contact you.",
	}}
	eng := New(Options{Narrator: stub})

	in := approvableInput()
	in.Evidence["total_amount"] = 30000.0
	in.Terms.PerClaimLimit = 100000
	in.Terms.AnnualLimit = 100000
	in.Policy.AnnualLimit = 100000

	d := eng.Adjudicate(context.Background(), "CLM-004", in)

	if d.Decision != claims.DecisionManualReview {
		t.Fatalf("expected MANUAL_REVIEW, got %s (%v)", d.Decision, d.RejectionReasons)
	}
	if len(d.FraudIndicators) == 0 || d.FraudIndicators[0] != validators.CodeHighValueClaim {
		t.Errorf("expected fraud indicator, got %v", d.FraudIndicators)
	}
	if d.RejectionReasons[0] != "Fraud Suspected" {
		t.Errorf("expected fraud reason, got %v", d.RejectionReasons)
	}
}

func TestNarratorFailureFallsBack(t *testing.T) {
	stub := &reasoning.StubNarrator{Err: errors.New("connection reset")}
	eng := New(Options{Narrator: stub})

	d := eng.Adjudicate(context.Background(), "CLM-005", approvableInput())

	if d.Decision != claims.DecisionApproved {
		t.Fatalf("fallback must keep the hard-rule decision, got %s", d.Decision)
	}
	if !strings.Contains(d.Notes, "connection reset") {
		t.Errorf("notes should carry the failure reason, got %q", d.Notes)
	}
	if d.ApprovedAmount != 1350 {
		t.Errorf("hard-rule amount must survive the fallback, got %v", d.ApprovedAmount)
	}
}

func TestLimiterHardStopFallsBack(t *testing.T) {
	stub := &reasoning.StubNarrator{Outcome: approvedOutcome()}
	lim := &stubLimiter{checkErr: errors.New("daily reasoning-service request cap exceeded")}
	eng := New(Options{Narrator: stub, Limiter: lim})

	d := eng.Adjudicate(context.Background(), "CLM-006", approvableInput())

	if d.Decision != claims.DecisionApproved {
		t.Fatalf("hard-rule decision should stand, got %s", d.Decision)
	}
	if stub.LastRequest != nil {
		t.Error("narrator must not be called when the limiter refuses")
	}
	if !strings.Contains(d.Notes, "rate limiter") {
		t.Errorf("notes should mention the limiter, got %q", d.Notes)
	}
}

func TestNarratorMaySoftenRejection(t *testing.T) {
	// A technical documents failure; the narrator downgrades to review.
	stub := &reasoning.StubNarrator{Outcome: reasoning.Outcome{
		FinalDecision: "MANUAL_REVIEW",
		Reasoning:     "The only gap is a missing date field, likely an extraction artifact.",
		NextSteps:     "A reviewer will verify the original bill.",
	}}
	eng := New(Options{Narrator: stub})

	in := approvableInput()
	delete(in.Evidence, "date")

	d := eng.Adjudicate(context.Background(), "CLM-007", in)

	if d.Decision != claims.DecisionManualReview {
		t.Fatalf("softening REJECTED to MANUAL_REVIEW is permitted, got %s", d.Decision)
	}
	// Softened, not approved: the money stays at zero.
	if d.ApprovedAmount != 0 {
		t.Errorf("softened rejection must not pay out, got %v", d.ApprovedAmount)
	}
}

func TestCitationsBackfillRejectionReasons(t *testing.T) {
	// Hard rules approve, the narrator rejects with citations only.
	stub := &reasoning.StubNarrator{Outcome: reasoning.Outcome{
		FinalDecision: "REJECTED",
		Reasoning:     "Treatment date precedes the policy period.",
		Citations:     []string{"Policy Start Date: 2024-01-01"},
		NextSteps:     "Submit a bill within the coverage period.",
	}}
	eng := New(Options{Narrator: stub})

	d := eng.Adjudicate(context.Background(), "CLM-008", approvableInput())

	if d.Decision != claims.DecisionRejected {
		t.Fatalf("expected narrator-driven rejection, got %s", d.Decision)
	}
	if len(d.RejectionReasons) != 1 || d.RejectionReasons[0] != "Policy Start Date: 2024-01-01" {
		t.Errorf("citations should backfill empty rejection reasons, got %v", d.RejectionReasons)
	}
	if d.ApprovedAmount != 0 {
		t.Errorf("rejected claim must carry zero amount, got %v", d.ApprovedAmount)
	}
}

func TestAdjudicateIsIdempotent(t *testing.T) {
	stub := &reasoning.StubNarrator{Outcome: approvedOutcome()}
	eng := New(Options{Narrator: stub})
	eng.now = func() time.Time { return time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC) }

	first := eng.Adjudicate(context.Background(), "CLM-009", approvableInput())
	second := eng.Adjudicate(context.Background(), "CLM-009", approvableInput())

	if !reflect.DeepEqual(first, second) {
		t.Errorf("identical inputs with a fixed narrator must yield identical decisions:\n%+v\n%+v", first, second)
	}
}

func TestAggregatorNeverEmitsPartial(t *testing.T) {
	// PARTIAL is reserved for the narrative stage and human overrides; the
	// hard-rule aggregator can only reject, escalate or approve.
	inputs := []Input{approvableInput()}

	failing := approvableInput()
	delete(failing.Evidence, "patient_name")
	inputs = append(inputs, failing)

	fraud := approvableInput()
	fraud.Evidence["total_amount"] = 30000.0
	fraud.Terms.PerClaimLimit = 100000
	fraud.Terms.AnnualLimit = 100000
	inputs = append(inputs, fraud)

	eng := New(Options{}) // no narrator: hard rules only

	for i, in := range inputs {
		d := eng.Adjudicate(context.Background(), "CLM-P", in)
		if d.Decision == claims.DecisionPartial {
			t.Errorf("input %d: aggregator produced PARTIAL", i)
		}
	}
}

func TestNoNarratorConfigured(t *testing.T) {
	eng := New(Options{})

	d := eng.Adjudicate(context.Background(), "CLM-010", approvableInput())

	if d.Decision != claims.DecisionApproved {
		t.Fatalf("hard rules alone should approve, got %s", d.Decision)
	}
	if !strings.Contains(d.Notes, "no reasoning service") {
		t.Errorf("notes should say enrichment was skipped, got %q", d.Notes)
	}
}
