// Package voice defines the speech adapter contracts and the streaming
// audio type shared between the synthesis backend and the transport layer.
package voice

import "context"

// Transcriber converts an audio payload to text.
type Transcriber interface {
	// Transcribe converts audio bytes to text. Callers validate non-empty
	// input before invoking; implementations fail explicitly on empty audio
	// rather than returning an empty transcript.
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

// Synthesizer converts response text to streaming audio.
type Synthesizer interface {
	// Speak returns a lazily-produced audio stream for the text. The stream
	// is single-consumption: ordered, exhaustive, finite.
	Speak(ctx context.Context, text string) (*Stream, error)
}
