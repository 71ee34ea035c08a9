package server

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/opdclaims/adjudicator/internal/auth"
	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/decisions"
	"github.com/opdclaims/adjudicator/internal/engine"
	"github.com/opdclaims/adjudicator/internal/policyterms"
	"github.com/opdclaims/adjudicator/internal/review"
	"github.com/opdclaims/adjudicator/internal/validators"
	"github.com/rs/zerolog/log"
)

type ClaimsHandler struct {
	engine       *engine.Engine
	store        decisions.Store
	ledger       *decisions.Ledger
	terms        policyterms.Source
	inbox        review.Inbox
	wsHub        *Hub
	pendingLimit int
}

func NewClaimsHandler(eng *engine.Engine, store decisions.Store, ledger *decisions.Ledger, terms policyterms.Source, inbox review.Inbox, wsHub *Hub, pendingLimit int) *ClaimsHandler {
	if pendingLimit <= 0 {
		pendingLimit = 100
	}
	return &ClaimsHandler{
		engine:       eng,
		store:        store,
		ledger:       ledger,
		terms:        terms,
		inbox:        inbox,
		wsHub:        wsHub,
		pendingLimit: pendingLimit,
	}
}

// AdjudicateRequest carries one claim and its coverage context. Terms can
// be supplied inline or looked up by policy_id; inline wins when both are
// present.
type AdjudicateRequest struct {
	PolicyID      string               `json:"policy_id"`
	PolicyContext claims.PolicyContext `json:"policy_context"`
	ClaimEvidence claims.Evidence      `json:"claim_evidence"`
	PolicyTerms   *claims.PolicyTerms  `json:"policy_terms,omitempty"`
}

// Adjudicate handles POST /claims/:id/adjudicate. Re-posting a claim
// replaces its previous decision.
func (h *ClaimsHandler) Adjudicate(c echo.Context) error {
	ctx := c.Request().Context()
	claimID := c.Param("id")
	if claimID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "claim id is required",
		})
	}

	var req AdjudicateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	terms, err := h.resolveTerms(c, req)
	if err != nil {
		if errors.Is(err, policyterms.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "policy terms not found: " + req.PolicyID,
			})
		}
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	decision := h.engine.Adjudicate(ctx, claimID, engine.Input{
		Policy:   req.PolicyContext,
		Evidence: req.ClaimEvidence,
		Terms:    terms,
	})

	if decision.Decision == claims.DecisionApproved {
		h.bookApprovedAmount(c, req, &decision)
	}

	if err := h.store.Upsert(ctx, decision); err != nil {
		log.Error().Err(err).Str("claim_id", claimID).Msg("failed to persist decision")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to persist decision",
		})
	}

	h.syncInbox(c, decision)

	return c.JSON(http.StatusOK, decision)
}

func (h *ClaimsHandler) resolveTerms(c echo.Context, req AdjudicateRequest) (claims.PolicyTerms, error) {
	if req.PolicyTerms != nil {
		return *req.PolicyTerms, nil
	}
	if req.PolicyID == "" {
		return claims.PolicyTerms{}, errors.New("policy_id or policy_terms is required")
	}
	return h.terms.Terms(c.Request().Context(), req.PolicyID)
}

// bookApprovedAmount deducts the approved amount from the holder's annual
// ledger. The conditional update there is authoritative: if it refuses,
// the stale context the validators saw does not matter and the claim goes
// to a human instead.
func (h *ClaimsHandler) bookApprovedAmount(c echo.Context, req AdjudicateRequest, decision *claims.Decision) {
	ctx := c.Request().Context()
	holderID := req.PolicyContext.PolicyHolderID
	if holderID == "" {
		return
	}

	if err := h.ledger.EnsureHolder(ctx, holderID, req.PolicyContext.AnnualLimit, req.PolicyContext.AnnualLimitUsed); err != nil {
		log.Error().Err(err).Str("policy_holder_id", holderID).Msg("failed to register ledger holder")
		return
	}

	err := h.ledger.ApplyApprovedAmount(ctx, holderID, decision.ApprovedAmount)
	if err == nil {
		return
	}
	if !errors.Is(err, decisions.ErrAnnualLimitExhausted) {
		log.Error().Err(err).Str("policy_holder_id", holderID).Msg("ledger update failed")
		return
	}

	log.Warn().
		Str("claim_id", decision.ClaimID).
		Str("policy_holder_id", holderID).
		Float64("amount", decision.ApprovedAmount).
		Msg("annual ledger refused approved amount, escalating to review")

	decision.Decision = claims.DecisionManualReview
	decision.ApprovedAmount = 0
	decision.RejectionReasons = append(decision.RejectionReasons, validators.CodeAnnualLimitExceeded)
	decision.Notes += "\n\nAnnual limit ledger refused the deduction; requires manual review."
}

// syncInbox keeps the live review inbox aligned with the stored decision.
func (h *ClaimsHandler) syncInbox(c echo.Context, decision claims.Decision) {
	ctx := c.Request().Context()

	if decision.Decision != claims.DecisionManualReview {
		h.inbox.Resolve(ctx, decision.ClaimID)
		return
	}

	err := h.inbox.Add(ctx, review.Entry{
		ClaimID:         decision.ClaimID,
		Decision:        string(decision.Decision),
		OriginalAmount:  decision.OriginalAmount,
		FraudIndicators: decision.FraudIndicators,
		Reasons:         decision.RejectionReasons,
		EnqueuedAt:      decision.AdjudicatedAt,
	})
	if err != nil {
		log.Error().Err(err).Str("claim_id", decision.ClaimID).Msg("failed to queue claim for review")
	}
}

// GetDecision handles GET /claims/:id/decision.
func (h *ClaimsHandler) GetDecision(c echo.Context) error {
	claimID := c.Param("id")

	decision, err := h.store.Get(c.Request().Context(), claimID)
	if err != nil {
		if errors.Is(err, decisions.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "no decision for claim: " + claimID,
			})
		}
		log.Error().Err(err).Str("claim_id", claimID).Msg("failed to load decision")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to load decision",
		})
	}

	return c.JSON(http.StatusOK, decision)
}

// PendingReview handles GET /claims/pending-review.
func (h *ClaimsHandler) PendingReview(c echo.Context) error {
	limit := h.pendingLimit
	if raw := c.QueryParam("limit"); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil && v > 0 && v <= h.pendingLimit {
			limit = v
		}
	}

	pending, err := h.store.PendingReview(c.Request().Context(), limit)
	if err != nil {
		log.Error().Err(err).Msg("failed to list pending review claims")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to list pending claims",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"total":   len(pending),
		"pending": pending,
	})
}

// OverrideRequest is a reviewer's correction of an automated decision.
// ReviewerID is taken from the authenticated token when present; the body
// field only applies when auth is disabled.
type OverrideRequest struct {
	ReviewerID     string   `json:"reviewer_id,omitempty"`
	NewDecision    string   `json:"new_decision"`
	ApprovedAmount *float64 `json:"approved_amount,omitempty"`
	ReviewNotes    string   `json:"review_notes"`
}

// Override handles POST /claims/:id/decision/override.
func (h *ClaimsHandler) Override(c echo.Context) error {
	ctx := c.Request().Context()
	claimID := c.Param("id")

	var req OverrideRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	reviewerID := req.ReviewerID
	if reviewer := auth.ReviewerFromContext(c); reviewer != nil {
		reviewerID = reviewer.ID
	}
	if reviewerID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "reviewer_id is required",
		})
	}
	if !claims.ValidDecision(req.NewDecision) {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid decision: " + req.NewDecision,
		})
	}

	decision, err := h.store.ApplyOverride(ctx, claimID, decisions.Override{
		ReviewerID:     reviewerID,
		NewDecision:    claims.DecisionType(req.NewDecision),
		ApprovedAmount: req.ApprovedAmount,
		ReviewNotes:    req.ReviewNotes,
	})
	if err != nil {
		if errors.Is(err, decisions.ErrNotFound) {
			return c.JSON(http.StatusNotFound, map[string]string{
				"error": "no decision for claim: " + claimID,
			})
		}
		log.Error().Err(err).Str("claim_id", claimID).Msg("failed to apply override")
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": err.Error(),
		})
	}

	h.inbox.Resolve(ctx, claimID)
	if h.wsHub != nil {
		h.wsHub.BroadcastOverride(claimID, req.NewDecision)
	}

	log.Info().
		Str("claim_id", claimID).
		Str("reviewer_id", reviewerID).
		Str("new_decision", req.NewDecision).
		Msg("decision overridden by reviewer")

	return c.JSON(http.StatusOK, decision)
}

// Stats handles GET /stats/decisions.
func (h *ClaimsHandler) Stats(c echo.Context) error {
	stats, err := h.store.Stats(c.Request().Context())
	if err != nil {
		log.Error().Err(err).Msg("failed to compute decision stats")
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "failed to compute stats",
		})
	}

	return c.JSON(http.StatusOK, stats)
}
