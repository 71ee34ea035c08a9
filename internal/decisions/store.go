package decisions

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
	_ "modernc.org/sqlite"
)

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := openDatabase(dbPath)
	if err != nil {
		return nil, err
	}

	store := &SQLiteStore{db: db}

	if err := store.initializeSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// DB exposes the underlying handle so other packages can keep their
// tables in the same database file.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

// Upsert writes a decision, replacing any previous one for the claim. An
// automated re-adjudication clears the review fields: the new run
// supersedes whatever a reviewer decided about the old one.
func (s *SQLiteStore) Upsert(ctx context.Context, d claims.Decision) error {
	if d.ClaimID == "" {
		return fmt.Errorf("claim_id cannot be empty")
	}
	if !claims.ValidDecision(string(d.Decision)) {
		return fmt.Errorf("invalid decision: %s", d.Decision)
	}

	return s.execRetry(ctx, queryUpsertDecision,
		d.ClaimID, string(d.Decision), d.ApprovedAmount, d.OriginalAmount,
		marshalStrings(d.RejectionReasons), d.ConfidenceScore, d.Notes, d.NextSteps,
		boolToInt(d.EligibilityPassed), boolToInt(d.DocumentsValid), boolToInt(d.CoverageVerified),
		boolToInt(d.LimitsOK), boolToInt(d.MedicallyNecessary), marshalStrings(d.FraudIndicators),
		d.CopayAmount, d.CopayPercentage, d.AdjudicatedAt.UTC().Format(time.RFC3339), d.AdjudicatedBy,
	)
}

func (s *SQLiteStore) Get(ctx context.Context, claimID string) (claims.Decision, error) {
	row := s.db.QueryRowContext(ctx, querySelectDecision, claimID)
	d, err := scanDecision(row)
	if err == sql.ErrNoRows {
		return claims.Decision{}, ErrNotFound
	}
	if err != nil {
		return claims.Decision{}, fmt.Errorf("get decision: %w", err)
	}
	return d, nil
}

func (s *SQLiteStore) PendingReview(ctx context.Context, limit int) ([]claims.Decision, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, querySelectPendingReview, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending review: %w", err)
	}
	defer rows.Close()

	return scanDecisions(rows)
}

// ApplyOverride records a human reviewer's decision. This is the only
// mutation that preserves the original adjudication fields and stamps the
// reviewer identity, keeping it distinguishable from a re-adjudication.
func (s *SQLiteStore) ApplyOverride(ctx context.Context, claimID string, ov Override) (claims.Decision, error) {
	if ov.ReviewerID == "" {
		return claims.Decision{}, fmt.Errorf("reviewer_id cannot be empty")
	}
	if !claims.ValidDecision(string(ov.NewDecision)) {
		return claims.Decision{}, fmt.Errorf("invalid decision: %s", ov.NewDecision)
	}

	current, err := s.Get(ctx, claimID)
	if err != nil {
		return claims.Decision{}, err
	}

	amount := current.ApprovedAmount
	if ov.ApprovedAmount != nil {
		amount = *ov.ApprovedAmount
	}

	reviewedAt := time.Now().UTC()
	err = s.execRetry(ctx, queryApplyOverride,
		string(ov.NewDecision), amount, ov.ReviewerID,
		reviewedAt.Format(time.RFC3339), ov.ReviewNotes, claimID,
	)
	if err != nil {
		return claims.Decision{}, err
	}

	return s.Get(ctx, claimID)
}

func (s *SQLiteStore) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	row := s.db.QueryRowContext(ctx, queryStats)
	if err := row.Scan(&st.Total, &st.Approved, &st.Rejected, &st.ManualReview, &st.PendingReview, &st.AverageConfidence); err != nil {
		return Stats{}, fmt.Errorf("query stats: %w", err)
	}

	if st.Total > 0 {
		st.ApprovalRate = float64(st.Approved) / float64(st.Total) * 100
	}
	return st, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) initializeSchema() error {
	for _, stmt := range schemaStatements() {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("execute schema: %w", err)
		}
	}
	return nil
}

// execRetry runs a write with backoff on SQLITE_BUSY, which WAL mode can
// still surface under concurrent writers.
func (s *SQLiteStore) execRetry(ctx context.Context, query string, args ...any) error {
	const maxRetries = 3
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err = s.db.ExecContext(ctx, query, args...)
		if err == nil {
			return nil
		}

		if strings.Contains(err.Error(), "database is locked") || strings.Contains(err.Error(), "SQLITE_BUSY") {
			backoff := time.Duration(attempt+1) * 10 * time.Millisecond
			time.Sleep(backoff)
			continue
		}

		return fmt.Errorf("exec: %w", err)
	}

	return fmt.Errorf("exec after %d retries: %w", maxRetries, err)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
