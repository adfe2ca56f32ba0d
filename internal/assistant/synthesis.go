package assistant

import (
	"context"
	"fmt"

	"github.com/ashureev/careline/internal/groq"
)

const synthesisSystemPrompt = `You are a friendly hospital directory voice assistant.
Answer the user's question using only the data context provided. Keep the reply
short and natural to listen to: one or two sentences, no lists, no markdown.
If the data context says nothing was found, say so politely and suggest
rephrasing.`

// GroqResponder implements Responder with a plain-text chat completion.
type GroqResponder struct {
	client ChatCompleter
}

func NewGroqResponder(client ChatCompleter) *GroqResponder {
	return &GroqResponder{client: client}
}

func (r *GroqResponder) Respond(ctx context.Context, query, dataContext, clarifying string) (string, error) {
	user := fmt.Sprintf("Question: %s\n\nData context:\n%s", query, dataContext)
	if clarifying != "" {
		user += "\n\nClarification so far: " + clarifying
	}
	text, err := r.client.Complete(ctx, []groq.Message{
		{Role: "system", Content: synthesisSystemPrompt},
		{Role: "user", Content: user},
	}, false)
	if err != nil {
		return "", fmt.Errorf("synthesis completion: %w", err)
	}
	return text, nil
}
