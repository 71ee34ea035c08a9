package decisions

const (
	decisionsSchema = `
		CREATE TABLE IF NOT EXISTS claim_decisions (
			claim_id TEXT PRIMARY KEY,
			decision TEXT NOT NULL CHECK(decision IN ('APPROVED', 'REJECTED', 'PARTIAL', 'MANUAL_REVIEW')),
			approved_amount REAL NOT NULL DEFAULT 0,
			original_amount REAL NOT NULL DEFAULT 0,
			rejection_reasons TEXT NOT NULL DEFAULT '[]',
			confidence_score REAL NOT NULL DEFAULT 0,
			notes TEXT NOT NULL DEFAULT '',
			next_steps TEXT NOT NULL DEFAULT '',
			eligibility_passed INTEGER NOT NULL DEFAULT 0,
			documents_valid INTEGER NOT NULL DEFAULT 0,
			coverage_verified INTEGER NOT NULL DEFAULT 0,
			limits_ok INTEGER NOT NULL DEFAULT 0,
			medically_necessary INTEGER NOT NULL DEFAULT 0,
			fraud_indicators TEXT NOT NULL DEFAULT '[]',
			copay_amount REAL NOT NULL DEFAULT 0,
			copay_percentage REAL NOT NULL DEFAULT 0,
			adjudicated_at TEXT NOT NULL,
			adjudicated_by TEXT NOT NULL DEFAULT 'SYSTEM',
			reviewed_by TEXT,
			reviewed_at TEXT,
			review_notes TEXT
		)`

	ledgerSchema = `
		CREATE TABLE IF NOT EXISTS annual_usage (
			policy_holder_id TEXT PRIMARY KEY,
			annual_limit REAL NOT NULL,
			annual_limit_used REAL NOT NULL DEFAULT 0
		)`

	indexDecision = `
		CREATE INDEX IF NOT EXISTS idx_decision ON claim_decisions(decision)`
)

func schemaStatements() []string {
	return []string{
		decisionsSchema,
		ledgerSchema,
		indexDecision,
	}
}
