package decisions

import (
	"context"
	"fmt"
)

// Ledger tracks each policy holder's annual spend. The engine only
// computes a provisional amount; the conditional update here is the real
// gate, so two claims approved concurrently cannot both slip under the
// annual limit on a stale read.
type Ledger struct {
	store *SQLiteStore
}

func NewLedger(store *SQLiteStore) *Ledger {
	return &Ledger{store: store}
}

// EnsureHolder registers a policy holder's annual limit, updating the
// limit on plan changes without touching accumulated usage.
func (l *Ledger) EnsureHolder(ctx context.Context, policyHolderID string, annualLimit, used float64) error {
	if policyHolderID == "" {
		return fmt.Errorf("policy_holder_id cannot be empty")
	}
	return l.store.execRetry(ctx, queryEnsureHolder, policyHolderID, annualLimit, used)
}

// ApplyApprovedAmount books an approved amount against the holder's annual
// limit in one atomic conditional update. Returns ErrAnnualLimitExhausted
// when the increment would overspend the limit.
func (l *Ledger) ApplyApprovedAmount(ctx context.Context, policyHolderID string, amount float64) error {
	if amount <= 0 {
		return nil
	}

	res, err := l.store.db.ExecContext(ctx, queryApplyUsage, amount, policyHolderID, amount)
	if err != nil {
		return fmt.Errorf("apply usage: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("apply usage result: %w", err)
	}
	if affected == 0 {
		return ErrAnnualLimitExhausted
	}
	return nil
}

// Usage returns the holder's annual limit and the amount already used.
func (l *Ledger) Usage(ctx context.Context, policyHolderID string) (limit, used float64, err error) {
	row := l.store.db.QueryRowContext(ctx, querySelectUsage, policyHolderID)
	if err := row.Scan(&limit, &used); err != nil {
		return 0, 0, fmt.Errorf("query usage: %w", err)
	}
	return limit, used, nil
}
