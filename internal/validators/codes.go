package validators

// Validation failure codes. These are business outcomes, not errors: they
// surface in a decision's rejection_reasons and never abort the pipeline.
const (
	CodePolicySuspended     = "POLICY_SUSPENDED"
	CodePolicyInactive      = "POLICY_INACTIVE"
	CodeWaitingPeriodNotMet = "WAITING_PERIOD_NOT_MET"
	CodeDateParsingError    = "DATE_PARSING_ERROR"

	CodeMissingPatientName = "MISSING_FIELD_PATIENT_NAME"
	CodeMissingDate        = "MISSING_FIELD_DATE"
	CodeMissingTotalAmount = "MISSING_FIELD_TOTAL_AMOUNT"
	CodeDoctorRegMissing   = "DOCTOR_REG_MISSING"

	CodeServiceExcluded = "SERVICE_EXCLUDED"

	CodePerClaimLimitExceeded = "PER_CLAIM_LIMIT_EXCEEDED"
	CodeAnnualLimitExceeded   = "ANNUAL_LIMIT_EXCEEDED"

	CodeHighValueClaim = "HIGH_VALUE_CLAIM"
)
