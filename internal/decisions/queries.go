package decisions

const (
	queryUpsertDecision = `
		INSERT INTO claim_decisions (
			claim_id, decision, approved_amount, original_amount,
			rejection_reasons, confidence_score, notes, next_steps,
			eligibility_passed, documents_valid, coverage_verified,
			limits_ok, medically_necessary, fraud_indicators,
			copay_amount, copay_percentage, adjudicated_at, adjudicated_by,
			reviewed_by, reviewed_at, review_notes
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, NULL, NULL)
		ON CONFLICT(claim_id) DO UPDATE SET
			decision = excluded.decision,
			approved_amount = excluded.approved_amount,
			original_amount = excluded.original_amount,
			rejection_reasons = excluded.rejection_reasons,
			confidence_score = excluded.confidence_score,
			notes = excluded.notes,
			next_steps = excluded.next_steps,
			eligibility_passed = excluded.eligibility_passed,
			documents_valid = excluded.documents_valid,
			coverage_verified = excluded.coverage_verified,
			limits_ok = excluded.limits_ok,
			medically_necessary = excluded.medically_necessary,
			fraud_indicators = excluded.fraud_indicators,
			copay_amount = excluded.copay_amount,
			copay_percentage = excluded.copay_percentage,
			adjudicated_at = excluded.adjudicated_at,
			adjudicated_by = excluded.adjudicated_by,
			reviewed_by = NULL,
			reviewed_at = NULL,
			review_notes = NULL`

	decisionColumns = `
		claim_id, decision, approved_amount, original_amount,
		rejection_reasons, confidence_score, notes, next_steps,
		eligibility_passed, documents_valid, coverage_verified,
		limits_ok, medically_necessary, fraud_indicators,
		copay_amount, copay_percentage, adjudicated_at, adjudicated_by,
		reviewed_by, reviewed_at, review_notes`

	querySelectDecision = `
		SELECT ` + decisionColumns + `
		FROM claim_decisions
		WHERE claim_id = ?`

	querySelectPendingReview = `
		SELECT ` + decisionColumns + `
		FROM claim_decisions
		WHERE decision = 'MANUAL_REVIEW' AND reviewed_by IS NULL
		ORDER BY adjudicated_at ASC
		LIMIT ?`

	queryApplyOverride = `
		UPDATE claim_decisions SET
			decision = ?,
			approved_amount = ?,
			reviewed_by = ?,
			reviewed_at = ?,
			review_notes = ?
		WHERE claim_id = ?`

	queryStats = `
		SELECT
			COUNT(*),
			COALESCE(SUM(CASE WHEN decision = 'APPROVED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN decision = 'REJECTED' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN decision = 'MANUAL_REVIEW' THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN decision = 'MANUAL_REVIEW' AND reviewed_by IS NULL THEN 1 ELSE 0 END), 0),
			COALESCE(AVG(confidence_score), 0)
		FROM claim_decisions`

	queryEnsureHolder = `
		INSERT INTO annual_usage (policy_holder_id, annual_limit, annual_limit_used)
		VALUES (?, ?, ?)
		ON CONFLICT(policy_holder_id) DO UPDATE SET annual_limit = excluded.annual_limit`

	queryApplyUsage = `
		UPDATE annual_usage
		SET annual_limit_used = annual_limit_used + ?
		WHERE policy_holder_id = ? AND annual_limit_used + ? <= annual_limit`

	querySelectUsage = `
		SELECT annual_limit, annual_limit_used
		FROM annual_usage
		WHERE policy_holder_id = ?`
)
