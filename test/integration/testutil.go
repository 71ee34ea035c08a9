package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/opdclaims/adjudicator/internal/auth"
	"github.com/opdclaims/adjudicator/internal/claims"
	"github.com/opdclaims/adjudicator/internal/decisions"
	"github.com/opdclaims/adjudicator/internal/engine"
	"github.com/opdclaims/adjudicator/internal/policyterms"
	"github.com/opdclaims/adjudicator/internal/reasoning"
	"github.com/opdclaims/adjudicator/internal/review"
	"github.com/opdclaims/adjudicator/internal/server"
	"github.com/stretchr/testify/require"
)

// TestEnvironment wires the full stack against a temp database and a mock
// reasoning endpoint, served over httptest.
type TestEnvironment struct {
	Server       *server.Server
	Store        *decisions.SQLiteStore
	Inbox        *review.InMemoryInbox
	AuthManager  *auth.Manager
	NarratorMock *httptest.Server
	HTTPServer   *httptest.Server
	t            *testing.T
}

// narratorState is what the mock reasoning endpoint returns next. Tests
// mutate it between requests.
type narratorState struct {
	Outcome    map[string]interface{}
	StatusCode int
}

func SetupTestEnvironment(t *testing.T, requireAuth bool) (*TestEnvironment, *narratorState) {
	t.Helper()

	t.Setenv("REVIEWER_USERS", "jane@insurer.example:pass123:Jane:reviewer,admin")

	dbPath := filepath.Join(t.TempDir(), "decisions.db")
	store, err := decisions.NewSQLiteStore(dbPath)
	require.NoError(t, err)

	termsSource, err := policyterms.NewDBSource(store.DB())
	require.NoError(t, err)
	require.NoError(t, termsSource.Put(context.Background(), defaultTerms()))

	inbox := review.NewInMemoryInbox()

	authManager := auth.NewManager(auth.Config{
		RequireAuth:     requireAuth,
		JWTSecret:       "test-secret",
		TokenExpiration: time.Hour,
	})

	state := &narratorState{
		StatusCode: http.StatusOK,
		Outcome: map[string]interface{}{
			"final_decision":   "APPROVED",
			"reasoning":        "All validations passed.",
			"citations":        []string{"Per Claim Limit: 5000"},
			"next_steps":       "Reimbursement will be processed.",
			"confidence_score": 0.95,
		},
	}
	narratorMock := newNarratorMock(state)

	narrator := reasoning.NewOpenAIClient("test-key").WithBaseURL(narratorMock.URL)

	srv := server.New(server.Config{
		Port:               0,
		ShutdownTimeout:    5,
		PendingReviewLimit: 50,
	}, server.Deps{
		Engine: engine.New(engine.Options{Narrator: narrator}),
		Store:  store,
		Ledger: decisions.NewLedger(store),
		Terms:  termsSource,
		Inbox:  inbox,
		Auth:   authManager,
	})

	env := &TestEnvironment{
		Server:       srv,
		Store:        store,
		Inbox:        inbox,
		AuthManager:  authManager,
		NarratorMock: narratorMock,
		HTTPServer:   httptest.NewServer(srv.Handler()),
		t:            t,
	}

	t.Cleanup(func() {
		env.HTTPServer.Close()
		env.NarratorMock.Close()
		inbox.Close()
		store.Close()
	})

	return env, state
}

// newNarratorMock serves an OpenAI-compatible chat-completions response
// whose message content is the configured outcome document.
func newNarratorMock(state *narratorState) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if state.StatusCode != http.StatusOK {
			http.Error(w, `{"error":{"message":"unavailable"}}`, state.StatusCode)
			return
		}

		content, _ := json.Marshal(state.Outcome)
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"content": string(content)}},
			},
			"usage": map[string]int{"total_tokens": 420},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
}

func defaultTerms() claims.PolicyTerms {
	return claims.PolicyTerms{
		PolicyID:      "POL-100",
		PolicyName:    "Gold OPD Plan",
		AnnualLimit:   50000,
		PerClaimLimit: 5000,
		Categories: map[string]claims.CategoryTerms{
			"consultation": {Covered: true, Limit: 5000, CopayPercentage: 10},
			"pharmacy":     {Covered: true, Limit: 10000, CopayPercentage: 15},
		},
		Exclusions:     []string{"cosmetic"},
		WaitingPeriods: claims.WaitingPeriods{InitialDays: 30, PreExistingDays: 730},
	}
}

func (e *TestEnvironment) BaseURL() string {
	return e.HTTPServer.URL
}

// PostJSON posts a JSON body with an optional bearer token.
func (e *TestEnvironment) PostJSON(path, body, token string) *http.Response {
	e.t.Helper()

	req, err := http.NewRequest(http.MethodPost, e.BaseURL()+path, bytes.NewReader([]byte(body)))
	require.NoError(e.t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	return resp
}

func (e *TestEnvironment) GetJSON(path, token string) *http.Response {
	e.t.Helper()

	req, err := http.NewRequest(http.MethodGet, e.BaseURL()+path, nil)
	require.NoError(e.t, err)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(e.t, err)
	return resp
}

func decodeDecision(t *testing.T, resp *http.Response) claims.Decision {
	t.Helper()
	defer resp.Body.Close()

	var d claims.Decision
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&d))
	return d
}

func adjudicateBody(amount float64, treatmentType string) string {
	return fmt.Sprintf(`{
		"policy_id": "POL-100",
		"policy_context": {
			"policy_holder_id": "PH-001",
			"policy_status": "ACTIVE",
			"join_date": "2023-01-01",
			"annual_limit": 50000,
			"annual_limit_used": 0
		},
		"claim_evidence": {
			"patient_name": "Jane Roe",
			"date": "2024-02-01",
			"diagnosis": "acute bronchitis",
			"total_amount": %v,
			"treatment_type": %q
		}
	}`, amount, treatmentType)
}
