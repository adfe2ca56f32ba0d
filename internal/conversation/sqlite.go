package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/ashureev/careline/internal/domain"
	"github.com/ashureev/careline/internal/shared"
	_ "modernc.org/sqlite"
)

// SQLiteStore persists transcripts across restarts. A single mutex
// serializes the read-modify-append cycle; transcript writes are small and
// infrequent enough that finer locking is not worth SQLITE_BUSY handling on
// every caller.
type SQLiteStore struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite creates a SQLite-backed transcript store.
func NewSQLite(dbPath string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS transcripts (
		session_id TEXT PRIMARY KEY,
		entries_json TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_transcripts_updated ON transcripts(updated_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

func (s *SQLiteStore) entries(ctx context.Context, sessionID string) ([]string, error) {
	var raw string
	err := s.db.QueryRowContext(ctx,
		`SELECT entries_json FROM transcripts WHERE session_id = ?`, sessionID).Scan(&raw)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan transcript: %w", err)
	}

	var entries []string
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, fmt.Errorf("decode transcript entries: %w", err)
	}
	return entries, nil
}

// Recent returns the last n transcript entries for the session.
func (s *SQLiteStore) Recent(ctx context.Context, sessionID string, n int) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if n < len(entries) {
		entries = entries[len(entries)-n:]
	}
	return entries, nil
}

// AppendExchange appends one completed user/agent exchange. Retries a few
// times on SQLite lock contention with exponential backoff.
func (s *SQLiteStore) AppendExchange(ctx context.Context, sessionID, userText, agentText string) error {
	maxRetries := 3
	baseDelay := 100 * time.Millisecond

	var err error
	for i := 0; i < maxRetries; i++ {
		err = s.appendOnce(ctx, sessionID, userText, agentText)
		if err == nil {
			return nil
		}
		if shared.IsSQLiteConflictError(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("transcript append hit lock contention, retrying",
				"session_id", sessionID, "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		break
	}
	return fmt.Errorf("append exchange for %s: %w", sessionID, err)
}

func (s *SQLiteStore) appendOnce(ctx context.Context, sessionID, userText, agentText string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries(ctx, sessionID)
	if err != nil {
		return err
	}
	entries = append(entries, domain.UserTurnPrefix+userText, domain.AgentTurnPrefix+agentText)

	raw, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("encode transcript entries: %w", err)
	}

	now := time.Now().Unix()
	query := `
		INSERT INTO transcripts (session_id, entries_json, created_at, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(session_id) DO UPDATE SET
			entries_json = excluded.entries_json,
			updated_at = excluded.updated_at`
	if _, err := s.db.ExecContext(ctx, query, sessionID, string(raw), now, now); err != nil {
		return fmt.Errorf("upsert transcript: %w", err)
	}
	return nil
}

// Len returns the number of transcript entries for the session.
func (s *SQLiteStore) Len(ctx context.Context, sessionID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := s.entries(ctx, sessionID)
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// EvictIdle removes transcripts not updated within ttl.
func (s *SQLiteStore) EvictIdle(ctx context.Context, ttl time.Duration) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	threshold := time.Now().Add(-ttl).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM transcripts WHERE updated_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("evict idle transcripts: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("evicted rows affected: %w", err)
	}
	return int(n), nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}
