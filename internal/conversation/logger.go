package conversation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// LogConfig controls NDJSON conversation logging.
type LogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// LogEvent is one logged conversation turn.
type LogEvent struct {
	ID        string `json:"id"`
	Timestamp string `json:"ts"`
	SessionID string `json:"session_id"`
	Role      string `json:"role"` // "user" or "agent"
	Channel   string `json:"channel,omitempty"`
	Content   string `json:"content"`
}

// Logger writes conversation turns asynchronously, one NDJSON file per
// session plus an optional global file. Events are dropped, not blocked on,
// when the queue is full.
type Logger struct {
	cfg     LogConfig
	logger  *slog.Logger
	queue   chan LogEvent
	done    chan struct{}
	wg      sync.WaitGroup
	dropped atomic.Int64
}

var sessionFilePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// NewLogger creates a conversation logger. A disabled config returns a
// logger whose Log is a cheap no-op.
func NewLogger(cfg LogConfig, logger *slog.Logger) (*Logger, error) {
	if logger == nil {
		logger = slog.Default()
	}
	l := &Logger{cfg: cfg, logger: logger, done: make(chan struct{})}

	if !cfg.Enabled && !cfg.GlobalEnabled {
		return l, nil
	}

	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1000
		l.cfg.QueueSize = 1000
	}
	if cfg.Enabled {
		if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
			return nil, fmt.Errorf("create conversation log dir: %w", err)
		}
	}
	if cfg.GlobalEnabled {
		if err := os.MkdirAll(filepath.Dir(cfg.GlobalPath), 0755); err != nil {
			return nil, fmt.Errorf("create global conversation log dir: %w", err)
		}
	}

	l.queue = make(chan LogEvent, l.cfg.QueueSize)
	l.wg.Add(1)
	go l.writeLoop()
	return l, nil
}

// Log enqueues an event. Never blocks the request path.
func (l *Logger) Log(event LogEvent) {
	if l.queue == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp == "" {
		event.Timestamp = time.Now().UTC().Format(time.RFC3339Nano)
	}

	select {
	case l.queue <- event:
	default:
		if l.dropped.Add(1)%100 == 1 {
			l.logger.Warn("conversation log queue full, dropping events",
				"dropped_total", l.dropped.Load())
		}
	}
}

// LogExchange logs both turns of a completed exchange.
func (l *Logger) LogExchange(sessionID, channel, userText, agentText string) {
	l.Log(LogEvent{SessionID: sessionID, Channel: channel, Role: "user", Content: userText})
	l.Log(LogEvent{SessionID: sessionID, Channel: channel, Role: "agent", Content: agentText})
}

func (l *Logger) writeLoop() {
	defer l.wg.Done()
	for {
		select {
		case event := <-l.queue:
			l.write(event)
		case <-l.done:
			// Drain whatever is already queued before exiting.
			for {
				select {
				case event := <-l.queue:
					l.write(event)
				default:
					return
				}
			}
		}
	}
}

func (l *Logger) write(event LogEvent) {
	line, err := json.Marshal(event)
	if err != nil {
		l.logger.Warn("failed to encode conversation log event", "error", err)
		return
	}
	line = append(line, '\n')

	if l.cfg.Enabled {
		name := sessionFilePattern.ReplaceAllString(event.SessionID, "_")
		if name == "" {
			name = "unknown"
		}
		l.appendFile(filepath.Join(l.cfg.Dir, name+".ndjson"), line)
	}
	if l.cfg.GlobalEnabled {
		l.appendFile(l.cfg.GlobalPath, line)
	}
}

func (l *Logger) appendFile(path string, line []byte) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		l.logger.Warn("failed to open conversation log file", "path", path, "error", err)
		return
	}
	if _, err := f.Write(line); err != nil {
		l.logger.Warn("failed to write conversation log line", "path", path, "error", err)
	}
	if err := f.Close(); err != nil {
		l.logger.Warn("failed to close conversation log file", "path", path, "error", err)
	}
}

// Close flushes queued events and stops the writer.
func (l *Logger) Close() error {
	if l.queue == nil {
		return nil
	}
	close(l.done)
	l.wg.Wait()
	return nil
}
