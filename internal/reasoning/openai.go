package reasoning

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/opdclaims/adjudicator/internal/claims"
)

const (
	defaultBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultModel   = "gpt-4o"
	defaultTimeout = 45 * time.Second
)

const systemPrompt = `You are an expert insurance claims adjudicator. Review the claim data, the policy terms, and the automated validation results.

Output a JSON object with these fields:
- final_decision: "APPROVED", "REJECTED", "PARTIAL", or "MANUAL_REVIEW"
- reasoning: a clear, professional explanation of the decision (2-3 sentences)
- citations: a list of specific reasons linking to policy data (e.g., "Annual Limit of 50,000 exceeded")
- next_steps: instructions for the claimant
- confidence_score: confidence in the decision (0.0-1.0)

Rules:
1. Trust the validation results. If they show failure, you must generally reject.
2. If a failure seems minor or technical, you may suggest MANUAL_REVIEW instead.
3. Be empathetic but firm in your reasoning.
4. Reference specific numbers from the policy terms in your citations.`

// OpenAIClient calls an OpenAI-compatible chat-completions endpoint with a
// JSON response format and parses the strict Outcome schema.
type OpenAIClient struct {
	apiKey  string
	baseURL string
	model   string
	client  *http.Client
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	ResponseFormat respFormat    `json:"response_format"`
	Temperature    float64       `json:"temperature"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

func NewOpenAIClient(apiKey string) *OpenAIClient {
	return &OpenAIClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		model:   defaultModel,
		client:  &http.Client{Timeout: defaultTimeout},
	}
}

// WithBaseURL points the client at a compatible endpoint (test servers,
// gateways).
func (c *OpenAIClient) WithBaseURL(url string) *OpenAIClient {
	c.baseURL = url
	return c
}

// WithModel overrides the default model.
func (c *OpenAIClient) WithModel(model string) *OpenAIClient {
	c.model = model
	return c
}

func (c *OpenAIClient) Narrate(ctx context.Context, req Request) (Outcome, error) {
	if c.apiKey == "" {
		return Outcome{}, fmt.Errorf("reasoning service: api key not set")
	}

	payload, err := c.buildPayload(req)
	if err != nil {
		return Outcome{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
	if err != nil {
		return Outcome{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return Outcome{}, fmt.Errorf("reasoning request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Outcome{}, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return Outcome{}, fmt.Errorf("reasoning service returned %d: %s", resp.StatusCode, truncate(body, 256))
	}

	return parseChatResponse(body)
}

func (c *OpenAIClient) buildPayload(req Request) ([]byte, error) {
	userPrompt := fmt.Sprintf(
		"Policy Terms:\n%s\n\nClaim Data:\n%s\n\nAutomated Validation Results:\n%s\n\nCurrent Preliminary Decision: %s\nCurrent Errors: %s",
		req.PolicyTerms, req.ClaimEvidence, req.ValidationResults,
		req.PreliminaryDecision, marshalErrors(req.PreliminaryErrors),
	)

	return json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: respFormat{Type: "json_object"},
		Temperature:    0.1,
	})
}

func parseChatResponse(body []byte) (Outcome, error) {
	var chat chatResponse
	if err := json.Unmarshal(body, &chat); err != nil {
		return Outcome{}, fmt.Errorf("decode response envelope: %w", err)
	}
	if chat.Error != nil {
		return Outcome{}, fmt.Errorf("reasoning service error: %s", chat.Error.Message)
	}
	if len(chat.Choices) == 0 {
		return Outcome{}, fmt.Errorf("reasoning service returned no choices")
	}

	outcome, err := ParseOutcome([]byte(chat.Choices[0].Message.Content))
	if err != nil {
		return Outcome{}, err
	}
	outcome.TokensUsed = chat.Usage.TotalTokens
	return outcome, nil
}

// ParseOutcome decodes and validates the strict outcome schema. Anything
// that does not carry a valid final_decision is rejected so the caller
// falls back to the hard-rule decision.
func ParseOutcome(data []byte) (Outcome, error) {
	var out Outcome
	if err := json.Unmarshal(data, &out); err != nil {
		return Outcome{}, fmt.Errorf("decode outcome: %w", err)
	}
	if !claims.ValidDecision(out.FinalDecision) {
		return Outcome{}, fmt.Errorf("invalid final_decision %q", out.FinalDecision)
	}
	return out, nil
}

func marshalErrors(errs []string) string {
	if errs == nil {
		errs = []string{}
	}
	b, err := json.Marshal(errs)
	if err != nil {
		return "[]"
	}
	return string(b)
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
