// Package assistant implements the query pipeline: conversational context
// assembly, a model-driven decision between searching the directory, asking a
// clarifying question or replying directly, directory lookup, answer
// synthesis and speech output.
package assistant

import (
	"context"

	"github.com/ashureev/careline/internal/domain"
	"github.com/ashureev/careline/internal/groq"
)

// ChatCompleter is the slice of the model backend the engines need.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []groq.Message, jsonMode bool) (string, error)
}

// Decider classifies a conversational context into a structured decision.
type Decider interface {
	Decide(ctx context.Context, contextText string) (domain.Decision, error)
}

// Responder turns a user query plus retrieved data into a spoken-style answer.
// The clarifying slot is carried through unused for now.
type Responder interface {
	Respond(ctx context.Context, query, dataContext, clarifying string) (string, error)
}
