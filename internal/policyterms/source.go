// Package policyterms supplies the plan definitions claims are adjudicated
// against. Terms come from the database first so admin updates take effect
// immediately, with a JSON file fallback for bootstrap and degraded
// operation. Whatever the origin, the engine receives an immutable value
// per adjudication call.
package policyterms

import (
	"context"
	"errors"
	"fmt"

	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/rs/zerolog/log"
)

// ErrNotFound means no terms exist for the requested policy id.
var ErrNotFound = errors.New("policy terms not found")

// Source yields the policy terms for one adjudication call.
type Source interface {
	Terms(ctx context.Context, policyID string) (claims.PolicyTerms, error)
}

// Fallback tries sources in order and serves the first hit. The usual
// wiring is database first, file second.
type Fallback struct {
	sources []Source
}

func NewFallback(sources ...Source) *Fallback {
	return &Fallback{sources: sources}
}

func (f *Fallback) Terms(ctx context.Context, policyID string) (claims.PolicyTerms, error) {
	var lastErr error

	for _, src := range f.sources {
		terms, err := src.Terms(ctx, policyID)
		if err == nil {
			return terms, nil
		}
		if !errors.Is(err, ErrNotFound) {
			log.Warn().Err(err).Str("policy_id", policyID).Msg("policy terms source failed, trying next")
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = ErrNotFound
	}
	return claims.PolicyTerms{}, fmt.Errorf("load policy terms %q: %w", policyID, lastErr)
}
