package reasoning

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestParseOutcomeStrictSchema(t *testing.T) {
	valid := `{"final_decision":"APPROVED","reasoning":"All checks passed.","citations":["Annual Limit: 50000"],"next_steps":"None.","confidence_score":0.92}`

	out, err := ParseOutcome([]byte(valid))
	if err != nil {
		t.Fatalf("valid outcome rejected: %v", err)
	}
	if out.FinalDecision != "APPROVED" {
		t.Errorf("unexpected decision: %s", out.FinalDecision)
	}
	if out.ConfidenceScore == nil || *out.ConfidenceScore != 0.92 {
		t.Error("confidence score not parsed")
	}
}

func TestParseOutcomeRejectsBadDecision(t *testing.T) {
	cases := []string{
		`{"final_decision":"MAYBE","reasoning":"x","next_steps":"y"}`,
		`{"reasoning":"missing decision"}`,
		`not json at all`,
		`{"final_decision": 42}`,
	}

	for _, in := range cases {
		if _, err := ParseOutcome([]byte(in)); err == nil {
			t.Errorf("expected rejection for %s", in)
		}
	}
}

func TestOpenAIClientRoundTrip(t *testing.T) {
	inner := `{"final_decision":"MANUAL_REVIEW","reasoning":"Borderline documents.","citations":[],"next_steps":"Await review.","confidence_score":0.6}`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("missing auth header")
		}
		var req chatRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("bad request payload: %v", err)
		}
		if req.ResponseFormat.Type != "json_object" {
			t.Errorf("expected json_object response format, got %q", req.ResponseFormat.Type)
		}

		resp := map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": inner}},
			},
			"usage": map[string]any{"total_tokens": 512},
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key").WithBaseURL(srv.URL)

	out, err := client.Narrate(context.Background(), Request{
		PolicyTerms:         json.RawMessage(`{}`),
		ClaimEvidence:       json.RawMessage(`{}`),
		ValidationResults:   json.RawMessage(`{}`),
		PreliminaryDecision: "REJECTED",
		PreliminaryErrors:   []string{"MISSING_FIELD_DATE"},
	})
	if err != nil {
		t.Fatalf("narrate failed: %v", err)
	}
	if out.FinalDecision != "MANUAL_REVIEW" {
		t.Errorf("unexpected decision: %s", out.FinalDecision)
	}
	if out.TokensUsed != 512 {
		t.Errorf("expected token usage 512, got %d", out.TokensUsed)
	}
}

func TestOpenAIClientServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"quota exceeded"}}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewOpenAIClient("test-key").WithBaseURL(srv.URL)

	if _, err := client.Narrate(context.Background(), Request{}); err == nil {
		t.Fatal("expected error on 429")
	}
}
