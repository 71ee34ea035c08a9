package reasoning

import "context"

// StubNarrator returns a canned outcome (or error) without touching the
// network. It backs tests and deployments where no reasoning service is
// configured.
type StubNarrator struct {
	Outcome Outcome
	Err     error

	// LastRequest records the most recent call for assertions.
	LastRequest *Request
}

func (s *StubNarrator) Narrate(ctx context.Context, req Request) (Outcome, error) {
	s.LastRequest = &req
	if s.Err != nil {
		return Outcome{}, s.Err
	}
	return s.Outcome, nil
}
