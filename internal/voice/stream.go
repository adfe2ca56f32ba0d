package voice

import "sync"

// Stream delivers synthesized audio as an ordered sequence of byte chunks.
// The producer pushes with Send and finishes with FinishSending; the consumer
// ranges over Chunks and checks Err afterwards. Close releases an abandoned
// stream so the producer can stop early.
type Stream struct {
	chunks chan []byte
	err    error
	errMu  sync.Mutex
	done   chan struct{}
	once   sync.Once
}

// NewStream creates a stream with a bounded buffer so a slow consumer
// applies backpressure to the producer.
func NewStream() *Stream {
	return &Stream{
		chunks: make(chan []byte, 16),
		done:   make(chan struct{}),
	}
}

// Chunks returns the channel of audio chunks. Closed after the final chunk.
func (s *Stream) Chunks() <-chan []byte {
	return s.chunks
}

// Err returns the error that terminated the stream, if any. Meaningful once
// Chunks is closed.
func (s *Stream) Err() error {
	s.errMu.Lock()
	defer s.errMu.Unlock()
	return s.err
}

// SetError records the terminal error. Producer side.
func (s *Stream) SetError(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
}

// Send delivers one chunk. Returns false if the consumer closed the stream.
func (s *Stream) Send(chunk []byte) bool {
	select {
	case s.chunks <- chunk:
		return true
	case <-s.done:
		return false
	}
}

// FinishSending closes the chunk channel. Producer side, exactly once.
func (s *Stream) FinishSending() {
	close(s.chunks)
}

// Close abandons the stream. Safe to call multiple times.
func (s *Stream) Close() error {
	s.once.Do(func() { close(s.done) })
	return nil
}
