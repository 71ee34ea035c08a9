package policyterms

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
)

const schemaPolicyTerms = `
CREATE TABLE IF NOT EXISTS policy_terms (
	policy_id TEXT PRIMARY KEY,
	terms_json TEXT NOT NULL,
	updated_at TEXT NOT NULL
)`

const (
	querySelectTerms = `SELECT terms_json FROM policy_terms WHERE policy_id = ?`

	queryUpsertTerms = `
INSERT INTO policy_terms (policy_id, terms_json, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(policy_id) DO UPDATE SET
	terms_json = excluded.terms_json,
	updated_at = excluded.updated_at`
)

// DBSource serves policy terms from a database table, sharing the
// decision store's SQLite file.
type DBSource struct {
	db *sql.DB
}

func NewDBSource(db *sql.DB) (*DBSource, error) {
	if _, err := db.Exec(schemaPolicyTerms); err != nil {
		return nil, fmt.Errorf("create policy_terms table: %w", err)
	}
	return &DBSource{db: db}, nil
}

func (d *DBSource) Terms(ctx context.Context, policyID string) (claims.PolicyTerms, error) {
	var raw string
	err := d.db.QueryRowContext(ctx, querySelectTerms, policyID).Scan(&raw)
	if err == sql.ErrNoRows {
		return claims.PolicyTerms{}, ErrNotFound
	}
	if err != nil {
		return claims.PolicyTerms{}, fmt.Errorf("query policy terms: %w", err)
	}

	var terms claims.PolicyTerms
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return claims.PolicyTerms{}, fmt.Errorf("parse stored terms: %w", err)
	}
	return terms, nil
}

// Put stores or replaces the terms document for its policy_id.
func (d *DBSource) Put(ctx context.Context, terms claims.PolicyTerms) error {
	if terms.PolicyID == "" {
		return fmt.Errorf("policy_id cannot be empty")
	}

	raw, err := json.Marshal(terms)
	if err != nil {
		return fmt.Errorf("encode terms: %w", err)
	}

	_, err = d.db.ExecContext(ctx, queryUpsertTerms,
		terms.PolicyID, string(raw), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("store terms: %w", err)
	}
	return nil
}
