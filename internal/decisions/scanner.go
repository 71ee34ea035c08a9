package decisions

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
)

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDecisions(rows *sql.Rows) ([]claims.Decision, error) {
	var out []claims.Decision

	for rows.Next() {
		d, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	return out, nil
}

func scanDecision(row rowScanner) (claims.Decision, error) {
	var (
		d              claims.Decision
		decision       string
		reasons        string
		indicators     string
		eligibility    int
		documents      int
		coverage       int
		limits         int
		medical        int
		adjudicatedAt  string
		reviewedBy     sql.NullString
		reviewedAtNull sql.NullString
		reviewNotes    sql.NullString
	)

	err := row.Scan(
		&d.ClaimID, &decision, &d.ApprovedAmount, &d.OriginalAmount,
		&reasons, &d.ConfidenceScore, &d.Notes, &d.NextSteps,
		&eligibility, &documents, &coverage, &limits, &medical, &indicators,
		&d.CopayAmount, &d.CopayPercentage, &adjudicatedAt, &d.AdjudicatedBy,
		&reviewedBy, &reviewedAtNull, &reviewNotes,
	)
	if err != nil {
		return claims.Decision{}, err
	}

	d.Decision = claims.DecisionType(decision)
	d.RejectionReasons = unmarshalStrings(reasons)
	d.FraudIndicators = unmarshalStrings(indicators)
	d.EligibilityPassed = eligibility != 0
	d.DocumentsValid = documents != 0
	d.CoverageVerified = coverage != 0
	d.LimitsOK = limits != 0
	d.MedicallyNecessary = medical != 0

	at, err := time.Parse(time.RFC3339, adjudicatedAt)
	if err != nil {
		return claims.Decision{}, fmt.Errorf("parse adjudicated_at: %w", err)
	}
	d.AdjudicatedAt = at

	if reviewedBy.Valid {
		d.ReviewedBy = reviewedBy.String
	}
	if reviewedAtNull.Valid {
		rt, err := time.Parse(time.RFC3339, reviewedAtNull.String)
		if err != nil {
			return claims.Decision{}, fmt.Errorf("parse reviewed_at: %w", err)
		}
		d.ReviewedAt = &rt
	}
	if reviewNotes.Valid {
		d.ReviewNotes = reviewNotes.String
	}

	return d, nil
}

func marshalStrings(ss []string) string {
	if ss == nil {
		ss = []string{}
	}
	b, err := json.Marshal(ss)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func unmarshalStrings(s string) []string {
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil || out == nil {
		return []string{}
	}
	return out
}
