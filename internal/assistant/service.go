package assistant

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ashureev/careline/internal/conversation"
	"github.com/ashureev/careline/internal/domain"
	"github.com/ashureev/careline/internal/store"
	"github.com/ashureev/careline/internal/voice"
)

// FallbackReply is spoken when the model produces no usable decision.
const FallbackReply = "I'm sorry, I can't help with that. I am forwarding this to a human agent."

const noResultsContext = "No hospitals found matching criteria."

// ErrEmptyAudio is returned before any backend call when the uploaded audio
// payload has no bytes.
var ErrEmptyAudio = errors.New("empty audio file")

// DefaultContextTurns is how many trailing transcript entries feed the
// decision context. Four entries is two user/agent exchanges.
const DefaultContextTurns = 4

// Result is one completed pipeline run. Audio is a live stream the caller
// must drain (or Close when abandoning it).
type Result struct {
	Text  string
	Audio *voice.Stream
}

// Service drives a query end to end: context assembly, decision, optional
// directory lookup, synthesis, transcript append and speech output.
type Service struct {
	decider       Decider
	responder     Responder
	directory     store.Directory
	conversations conversation.Store
	transcriber   voice.Transcriber
	synthesizer   voice.Synthesizer
	logger        *conversation.Logger

	contextTurns int
	searchLimit  int
	callTimeout  time.Duration
}

// Options tunes the service; zero values fall back to defaults.
type Options struct {
	// ContextTurns caps how many stored transcript entries are replayed
	// into the decision context.
	ContextTurns int
	// SearchLimit is the row cap applied when the model does not ask for
	// a specific number of results.
	SearchLimit int
	// CallTimeout bounds each backend invocation. Zero disables the bound.
	CallTimeout time.Duration
	// Logger, when set, records every exchange for offline review.
	Logger *conversation.Logger
}

func NewService(
	decider Decider,
	responder Responder,
	directory store.Directory,
	conversations conversation.Store,
	transcriber voice.Transcriber,
	synthesizer voice.Synthesizer,
	opts Options,
) *Service {
	if opts.ContextTurns <= 0 {
		opts.ContextTurns = DefaultContextTurns
	}
	if opts.SearchLimit <= 0 {
		opts.SearchLimit = store.DefaultSearchLimit
	}
	return &Service{
		decider:       decider,
		responder:     responder,
		directory:     directory,
		conversations: conversations,
		transcriber:   transcriber,
		synthesizer:   synthesizer,
		logger:        opts.Logger,
		contextTurns:  opts.ContextTurns,
		searchLimit:   opts.SearchLimit,
		callTimeout:   opts.CallTimeout,
	}
}

// ProcessAudio transcribes the uploaded audio and runs the query pipeline.
// Empty audio is rejected before any backend call.
func (s *Service) ProcessAudio(ctx context.Context, audio []byte, sessionID, channel string) (*Result, error) {
	if len(audio) == 0 {
		return nil, ErrEmptyAudio
	}

	sttCtx, cancel := s.callContext(ctx)
	userText, err := s.transcriber.Transcribe(sttCtx, audio)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("transcribing audio: %w", err)
	}
	slog.Info("transcribed user audio", "session_id", sessionID, "text", userText)

	return s.ProcessQuery(ctx, userText, sessionID, channel)
}

// ProcessQuery runs the pipeline for already-textual input. The transcript
// is appended only after the response text is finalized, so a failed request
// leaves no trace in the session history.
func (s *Service) ProcessQuery(ctx context.Context, userText, sessionID, channel string) (*Result, error) {
	contextText, err := s.buildContext(ctx, sessionID, userText)
	if err != nil {
		return nil, fmt.Errorf("reading session history: %w", err)
	}

	decCtx, cancel := s.callContext(ctx)
	decision, err := s.decider.Decide(decCtx, contextText)
	cancel()
	if err != nil {
		return nil, fmt.Errorf("deciding action: %w", err)
	}

	finalText, err := s.fulfill(ctx, decision, userText, sessionID)
	if err != nil {
		return nil, err
	}

	if err := s.conversations.AppendExchange(ctx, sessionID, userText, finalText); err != nil {
		return nil, fmt.Errorf("recording exchange: %w", err)
	}
	if s.logger != nil {
		s.logger.LogExchange(sessionID, channel, userText, finalText)
	}
	slog.Info("agent reply finalized", "session_id", sessionID, "reply", finalText)

	// Synthesis runs on the request context, not the per-call timeout:
	// canceling it would abort the stream while the caller is still
	// draining chunks.
	audio, err := s.synthesizer.Speak(ctx, finalText)
	if err != nil {
		return nil, fmt.Errorf("synthesizing speech: %w", err)
	}
	return &Result{Text: finalText, Audio: audio}, nil
}

func (s *Service) fulfill(ctx context.Context, decision domain.Decision, userText, sessionID string) (string, error) {
	switch decision.Kind() {
	case domain.DecisionSearch:
		dataContext, err := s.executeSearch(ctx, decision.Search(), sessionID)
		if err != nil {
			return "", err
		}
		respCtx, cancel := s.callContext(ctx)
		defer cancel()
		// The clarifying slot stays empty on this path.
		text, err := s.responder.Respond(respCtx, userText, dataContext, "")
		if err != nil {
			return "", fmt.Errorf("synthesizing answer: %w", err)
		}
		return text, nil

	case domain.DecisionClarify:
		return decision.Text(), nil

	default:
		if reply := decision.Text(); reply != "" {
			return reply, nil
		}
		return FallbackReply, nil
	}
}

func (s *Service) executeSearch(ctx context.Context, req domain.SearchRequest, sessionID string) (string, error) {
	filter := store.Filter{City: req.City, Name: req.HospitalName}
	slog.Info("executing directory search",
		"session_id", sessionID,
		"city", req.City,
		"hospital_name", req.HospitalName,
		"count_query", req.IsCountQuery)

	lookupCtx, cancel := s.callContext(ctx)
	defer cancel()

	if req.IsCountQuery {
		n, err := s.directory.Count(lookupCtx, filter)
		if err != nil {
			return "", fmt.Errorf("counting hospitals: %w", err)
		}
		return fmt.Sprintf("Total count found: %d", n), nil
	}

	limit := req.Limit
	if limit <= 0 {
		limit = s.searchLimit
	}
	rows, err := s.directory.Search(lookupCtx, filter, limit)
	if err != nil {
		return "", fmt.Errorf("searching hospitals: %w", err)
	}
	if len(rows) == 0 {
		return noResultsContext, nil
	}
	return renderRows(rows), nil
}

func (s *Service) buildContext(ctx context.Context, sessionID, userText string) (string, error) {
	history, err := s.conversations.Recent(ctx, sessionID, s.contextTurns)
	if err != nil {
		return "", err
	}
	if len(history) == 0 {
		return userText, nil
	}
	return strings.Join(history, "\n") + "\n" + domain.UserTurnPrefix + userText, nil
}

func (s *Service) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.callTimeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, s.callTimeout)
}

func renderRows(rows []domain.Hospital) string {
	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s, %s, %s", row.Name, row.City, row.Address)
	}
	return b.String()
}
