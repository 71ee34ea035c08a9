package validators

import (
	"strings"

	"github.com/opdclaims/adjudicator/internal/claims"
)

// Coverage checks the diagnosis against the policy's exclusion list.
//
// The match is a case-insensitive substring test, which can false-positive
// on common words (an exclusion like "infertility" matches any diagnosis
// text containing it). That is the documented upstream behavior; stricter
// matching would change which claims reject, so it stays until the policy
// team decides otherwise.
type Coverage struct{}

func (Coverage) Validate(ev claims.Evidence, terms claims.PolicyTerms) Result {
	diagnosis := strings.ToLower(ev.Str("diagnosis"))
	if diagnosis == "" {
		// Missing diagnosis is the document validator's finding, not a
		// coverage failure.
		return pass()
	}

	for _, exclusion := range terms.Exclusions {
		if exclusion == "" {
			continue
		}
		if strings.Contains(diagnosis, strings.ToLower(exclusion)) {
			return resultFor([]string{CodeServiceExcluded})
		}
	}

	return pass()
}
