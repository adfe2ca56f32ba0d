package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/ashureev/careline/internal/domain"
)

// MemoryStore is the default in-process transcript store. A registry lock
// guards session creation; each session carries its own mutex so the
// read-modify-append cycle for one session never blocks another.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu         sync.Mutex
	transcript domain.Transcript
}

// NewMemoryStore creates an empty in-memory transcript store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) session(sessionID string) *memorySession {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if ok {
		return sess
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if sess, ok := s.sessions[sessionID]; ok {
		return sess
	}
	sess = &memorySession{transcript: domain.Transcript{SessionID: sessionID, UpdatedAt: time.Now()}}
	s.sessions[sessionID] = sess
	return sess
}

// Recent returns the last n entries for the session.
func (s *MemoryStore) Recent(_ context.Context, sessionID string, n int) ([]string, error) {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	recent := sess.transcript.Recent(n)
	out := make([]string, len(recent))
	copy(out, recent)
	return out, nil
}

// AppendExchange appends one completed user/agent exchange.
func (s *MemoryStore) AppendExchange(_ context.Context, sessionID, userText, agentText string) error {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()

	sess.transcript.RecordExchange(userText, agentText)
	return nil
}

// Len returns the number of transcript entries for the session.
func (s *MemoryStore) Len(_ context.Context, sessionID string) (int, error) {
	sess := s.session(sessionID)
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return len(sess.transcript.Entries), nil
}

// EvictIdle removes sessions not updated within ttl.
func (s *MemoryStore) EvictIdle(_ context.Context, ttl time.Duration) (int, error) {
	threshold := time.Now().Add(-ttl)

	s.mu.Lock()
	defer s.mu.Unlock()

	evicted := 0
	for id, sess := range s.sessions {
		sess.mu.Lock()
		idle := sess.transcript.UpdatedAt.Before(threshold)
		sess.mu.Unlock()
		if idle {
			delete(s.sessions, id)
			evicted++
		}
	}
	return evicted, nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }
