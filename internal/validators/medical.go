package validators

import "github.com/opdclaims/adjudicator/internal/claims"

// PassthroughNecessity approves every claim's medical necessity. It holds
// the NecessityChecker slot in the pipeline until diagnosis/treatment
// alignment rules land.
type PassthroughNecessity struct{}

func (PassthroughNecessity) Validate(claims.Evidence) Result {
	return pass()
}
