package conversation

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLite(filepath.Join(t.TempDir(), "sessions.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlite.Close() })

	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func TestAppendAndRecent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			recent, err := s.Recent(ctx, "sess-1", 4)
			require.NoError(t, err)
			assert.Empty(t, recent)

			require.NoError(t, s.AppendExchange(ctx, "sess-1", "hello", "hi there"))
			require.NoError(t, s.AppendExchange(ctx, "sess-1", "again", "sure"))

			n, err := s.Len(ctx, "sess-1")
			require.NoError(t, err)
			assert.Equal(t, 4, n)

			recent, err = s.Recent(ctx, "sess-1", 4)
			require.NoError(t, err)
			assert.Equal(t, []string{
				"User: hello", "Agent: hi there",
				"User: again", "Agent: sure",
			}, recent)
		})
	}
}

func TestRecentWindowTruncates(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := 0; i < 5; i++ {
				require.NoError(t, s.AppendExchange(ctx, "sess-1",
					fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i)))
			}

			recent, err := s.Recent(ctx, "sess-1", 4)
			require.NoError(t, err)
			assert.Equal(t, []string{
				"User: q3", "Agent: a3",
				"User: q4", "Agent: a4",
			}, recent)
		})
	}
}

func TestSessionsAreIndependent(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.AppendExchange(ctx, "a", "question", "answer"))

			n, err := s.Len(ctx, "b")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}

func TestConcurrentAppendsSameSession(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			const workers = 16

			var wg sync.WaitGroup
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_ = s.AppendExchange(ctx, "shared", fmt.Sprintf("q%d", i), "a")
				}(i)
			}
			wg.Wait()

			n, err := s.Len(ctx, "shared")
			require.NoError(t, err)
			assert.Equal(t, 2*workers, n, "no appends may be lost")
		})
	}
}

func TestEvictIdle(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.AppendExchange(ctx, "old", "q", "a"))

			// A generous TTL keeps the fresh session.
			evicted, err := s.EvictIdle(ctx, time.Hour)
			require.NoError(t, err)
			assert.Zero(t, evicted)

			// sqlite timestamps have second granularity; cross the boundary.
			time.Sleep(1100 * time.Millisecond)

			evicted, err = s.EvictIdle(ctx, time.Millisecond)
			require.NoError(t, err)
			assert.Equal(t, 1, evicted)

			n, err := s.Len(ctx, "old")
			require.NoError(t, err)
			assert.Zero(t, n)
		})
	}
}
