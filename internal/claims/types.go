package claims

import "time"

// DecisionType is the final outcome of an adjudication run.
type DecisionType string

const (
	DecisionApproved     DecisionType = "APPROVED"
	DecisionRejected     DecisionType = "REJECTED"
	DecisionPartial      DecisionType = "PARTIAL"
	DecisionManualReview DecisionType = "MANUAL_REVIEW"
)

// ValidDecision reports whether s is one of the four decision values.
func ValidDecision(s string) bool {
	switch DecisionType(s) {
	case DecisionApproved, DecisionRejected, DecisionPartial, DecisionManualReview:
		return true
	}
	return false
}

type PolicyStatus string

const (
	StatusActive    PolicyStatus = "ACTIVE"
	StatusInactive  PolicyStatus = "INACTIVE"
	StatusSuspended PolicyStatus = "SUSPENDED"
)

// PolicyContext is the policy holder's coverage state at adjudication time.
// It is owned by the policy subsystem and read-only inside the engine;
// AnnualLimitUsed is advanced by the caller after a decision is finalized.
type PolicyContext struct {
	PolicyHolderID         string       `json:"policy_holder_id"`
	PolicyStatus           PolicyStatus `json:"policy_status"`
	JoinDate               string       `json:"join_date"`
	PolicyStartDate        string       `json:"policy_start_date"`
	AnnualLimit            float64      `json:"annual_limit"`
	AnnualLimitUsed        float64      `json:"annual_limit_used"`
	WaitingPeriodCompleted bool         `json:"waiting_period_completed"`
	PreExistingConditions  []string     `json:"pre_existing_conditions,omitempty"`
}

// CategoryTerms is a per-category sub-limit with its copay rate.
type CategoryTerms struct {
	Covered         bool    `json:"covered"`
	Limit           float64 `json:"limit"`
	CopayPercentage float64 `json:"copay_percentage"`
}

// WaitingPeriods holds the waiting-period lengths in days.
type WaitingPeriods struct {
	InitialDays      int            `json:"initial_waiting"`
	PreExistingDays  int            `json:"pre_existing_diseases"`
	SpecificAilments map[string]int `json:"specific_ailments,omitempty"`
}

// PolicyTerms is the plan definition a claim is adjudicated against.
// Loaded once per adjudication call and never mutated mid-call.
type PolicyTerms struct {
	PolicyID           string                   `json:"policy_id"`
	PolicyName         string                   `json:"policy_name,omitempty"`
	AnnualLimit        float64                  `json:"annual_limit"`
	PerClaimLimit      float64                  `json:"per_claim_limit"`
	FamilyFloaterLimit float64                  `json:"family_floater_limit,omitempty"`
	Categories         map[string]CategoryTerms `json:"categories,omitempty"`
	Exclusions         []string                 `json:"exclusions,omitempty"`
	WaitingPeriods     WaitingPeriods           `json:"waiting_periods"`
}

// Category returns the terms for a treatment category, falling back to
// consultation when the category has no entry of its own.
func (t PolicyTerms) Category(name string) (CategoryTerms, bool) {
	if c, ok := t.Categories[name]; ok {
		return c, true
	}
	c, ok := t.Categories["consultation"]
	return c, ok
}

// Decision is the durable adjudication record. Exactly one exists per
// claim; re-running adjudication replaces its fields in place.
type Decision struct {
	ClaimID          string       `json:"claim_id"`
	Decision         DecisionType `json:"decision"`
	ApprovedAmount   float64      `json:"approved_amount"`
	OriginalAmount   float64      `json:"original_amount"`
	RejectionReasons []string     `json:"rejection_reasons"`
	ConfidenceScore  float64      `json:"confidence_score"`
	Notes            string       `json:"notes,omitempty"`
	NextSteps        string       `json:"next_steps,omitempty"`

	EligibilityPassed  bool     `json:"eligibility_passed"`
	DocumentsValid     bool     `json:"documents_valid"`
	CoverageVerified   bool     `json:"coverage_verified"`
	LimitsOK           bool     `json:"limits_ok"`
	MedicallyNecessary bool     `json:"medically_necessary"`
	FraudIndicators    []string `json:"fraud_indicators"`

	CopayAmount     float64 `json:"copay_amount"`
	CopayPercentage float64 `json:"copay_percentage"`

	AdjudicatedAt time.Time `json:"adjudicated_at"`
	AdjudicatedBy string    `json:"adjudicated_by"`

	ReviewedBy  string     `json:"reviewed_by,omitempty"`
	ReviewedAt  *time.Time `json:"reviewed_at,omitempty"`
	ReviewNotes string     `json:"review_notes,omitempty"`
}

// AdjudicatedBySystem marks decisions produced by the automated pipeline,
// as opposed to a reviewer id set by a manual override.
const AdjudicatedBySystem = "SYSTEM"
