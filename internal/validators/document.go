package validators

import (
	"strings"

	"github.com/opdclaims/adjudicator/internal/claims"
)

// Document checks that the extracted evidence carries the fields the rest
// of the pipeline depends on. Prescriptions additionally need the
// prescribing doctor's registration number.
type Document struct{}

func (Document) Validate(ev claims.Evidence) Result {
	var errs []string

	if ev.Str("patient_name") == "" {
		errs = append(errs, CodeMissingPatientName)
	}
	if ev.Str("date") == "" {
		errs = append(errs, CodeMissingDate)
	}
	if !hasTotalAmount(ev) {
		errs = append(errs, CodeMissingTotalAmount)
	}

	if ev.Str("document_type") == "prescription" && ev.Str("doctor_registration_number") == "" {
		errs = append(errs, CodeDoctorRegMissing)
	}

	return resultFor(errs)
}

// hasTotalAmount treats a zero amount the same as a missing one: no
// document legitimately bills zero, and failed extraction surfaces as 0.
func hasTotalAmount(ev claims.Evidence) bool {
	switch v := ev["total_amount"].(type) {
	case float64:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case string:
		return strings.TrimSpace(v) != ""
	}
	return false
}
