package conversation

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoggerWritesPerSessionNDJSON(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewLogger(LogConfig{
		Enabled:   true,
		Dir:       dir,
		QueueSize: 16,
	}, slog.Default())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.LogExchange("sess-1", "text_http", "how many hospitals?", "There are 3.")

	path := filepath.Join(dir, "sess-1.ndjson")
	lines := waitForLogLines(t, path, 2)

	var user, agent LogEvent
	if err := json.Unmarshal([]byte(lines[0]), &user); err != nil {
		t.Fatalf("failed to unmarshal user line: %v", err)
	}
	if err := json.Unmarshal([]byte(lines[1]), &agent); err != nil {
		t.Fatalf("failed to unmarshal agent line: %v", err)
	}

	if user.Role != "user" || user.Content != "how many hospitals?" {
		t.Fatalf("unexpected user event: %+v", user)
	}
	if agent.Role != "agent" || agent.Content != "There are 3." {
		t.Fatalf("unexpected agent event: %+v", agent)
	}
	if user.ID == "" || user.Timestamp == "" {
		t.Fatal("expected generated id and timestamp")
	}
}

func TestLoggerSanitizesSessionFilename(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	logger, err := NewLogger(LogConfig{Enabled: true, Dir: dir, QueueSize: 4}, slog.Default())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	defer func() { _ = logger.Close() }()

	logger.Log(LogEvent{SessionID: "../evil/../../x", Role: "user", Content: "hi"})

	waitForLogLines(t, filepath.Join(dir, ".._evil_.._.._x.ndjson"), 1)
}

func TestLoggerDisabledIsNoop(t *testing.T) {
	t.Parallel()

	logger, err := NewLogger(LogConfig{}, slog.Default())
	if err != nil {
		t.Fatalf("NewLogger failed: %v", err)
	}
	logger.Log(LogEvent{SessionID: "s", Role: "user", Content: "hi"})
	if err := logger.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
}

func waitForLogLines(t *testing.T, path string, want int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		data, err := os.ReadFile(path)
		if err == nil && len(data) > 0 {
			lines := strings.Split(strings.TrimSpace(string(data)), "\n")
			if len(lines) >= want {
				return lines
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %d lines in %s", want, path)
	return nil
}
