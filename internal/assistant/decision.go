package assistant

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ashureev/careline/internal/domain"
	"github.com/ashureev/careline/internal/groq"
)

const decisionSystemPrompt = `You are the routing brain of a hospital directory phone assistant.
Given the conversation so far and the user's latest message, decide on exactly one action.

Respond with a JSON object with these fields:
- "search": set when the user wants hospital information. An object with optional
  "city" (string), optional "hospital_name" (string), "is_count_query" (boolean,
  true when the user asks how many hospitals match) and optional "limit"
  (integer, only when the user asks for a specific number of results).
  Null when no lookup is needed.
- "clarifying_question": a short question to ask when the request is about
  hospitals but too vague to search. Null otherwise.
- "direct_reply": a short answer for greetings or simple questions that need
  no lookup. Null otherwise.

Set exactly one of the three. For anything outside hospital directory help,
leave all three null.`

// GroqDecider implements Decider over a JSON-mode chat completion.
type GroqDecider struct {
	client ChatCompleter
}

func NewGroqDecider(client ChatCompleter) *GroqDecider {
	return &GroqDecider{client: client}
}

type searchPayload struct {
	City         string `json:"city"`
	HospitalName string `json:"hospital_name"`
	IsCountQuery bool   `json:"is_count_query"`
	Limit        int    `json:"limit"`
}

type decisionPayload struct {
	Search             *searchPayload `json:"search"`
	ClarifyingQuestion string         `json:"clarifying_question"`
	DirectReply        string         `json:"direct_reply"`
}

func (d *GroqDecider) Decide(ctx context.Context, contextText string) (domain.Decision, error) {
	raw, err := d.client.Complete(ctx, []groq.Message{
		{Role: "system", Content: decisionSystemPrompt},
		{Role: "user", Content: contextText},
	}, true)
	if err != nil {
		return domain.Decision{}, fmt.Errorf("decision completion: %w", err)
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return domain.Decision{}, fmt.Errorf("parsing decision %q: %w", raw, err)
	}

	// Priority order: search, then clarification, then reply. An empty
	// payload collapses to an empty reply which the orchestrator maps to
	// the fallback sentence.
	switch {
	case payload.Search != nil:
		return domain.NewSearchDecision(domain.SearchRequest{
			City:         strings.TrimSpace(payload.Search.City),
			HospitalName: strings.TrimSpace(payload.Search.HospitalName),
			IsCountQuery: payload.Search.IsCountQuery,
			Limit:        payload.Search.Limit,
		}), nil
	case strings.TrimSpace(payload.ClarifyingQuestion) != "":
		return domain.NewClarifyDecision(strings.TrimSpace(payload.ClarifyingQuestion)), nil
	default:
		return domain.NewReplyDecision(strings.TrimSpace(payload.DirectReply)), nil
	}
}
