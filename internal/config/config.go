// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port        string
	FrontendURL string

	GroqAPIKey  string
	GroqBaseURL string

	STTModel      string
	DecisionModel string
	TTSModel      string
	TTSVoice      string

	DataCSVPath string
	DBPath      string

	SessionBackend string // "memory" or "sqlite"
	SessionDBPath  string
	SessionTTL     time.Duration

	ContextTurns   int
	SearchLimit    int
	BackendTimeout time.Duration

	LiveMaxSessions int

	ConversationLog ConversationLogConfig
}

// ConversationLogConfig controls NDJSON conversation logging.
type ConversationLogConfig struct {
	Enabled       bool
	Dir           string
	GlobalEnabled bool
	GlobalPath    string
	QueueSize     int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	queueSize := getEnvInt("CONVERSATION_LOG_QUEUE_SIZE", 1000)
	if queueSize <= 0 {
		queueSize = 1000
	}

	// An unset or empty frontend origin means "allow any", so the CORS and
	// WebSocket origin checks always see a usable value.
	frontendURL := getEnv("FRONTEND_URL", "")
	if frontendURL == "" {
		frontendURL = "*"
	}

	cfg := &Config{
		Port:        getEnv("PORT", "8000"),
		FrontendURL: frontendURL,

		GroqAPIKey:  getEnv("GROQ_API_KEY", ""),
		GroqBaseURL: getEnv("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),

		STTModel:      getEnv("STT_MODEL", "whisper-large-v3"),
		DecisionModel: getEnv("DECISION_MODEL", "llama-3.3-70b-versatile"),
		TTSModel:      getEnv("TTS_MODEL", "playai-tts"),
		TTSVoice:      getEnv("TTS_VOICE", "Aaliyah-PlayAI"),

		DataCSVPath: getEnv("DATA_CSV_PATH", "./data/data.csv"),
		DBPath:      getEnv("DB_PATH", ":memory:"),

		SessionBackend: strings.ToLower(getEnv("SESSION_BACKEND", "memory")),
		SessionDBPath:  getEnv("SESSION_DB_PATH", "./data/sessions.db"),
		SessionTTL:     getEnvDuration("SESSION_TTL", 0),

		ContextTurns:   getEnvInt("CONTEXT_TURNS", 4),
		SearchLimit:    getEnvInt("SEARCH_LIMIT", 5),
		BackendTimeout: getEnvDuration("BACKEND_TIMEOUT", 60*time.Second),

		LiveMaxSessions: getEnvInt("LIVE_MAX_SESSIONS", 2),

		ConversationLog: ConversationLogConfig{
			Enabled:       getEnvBool("CONVERSATION_LOG_ENABLED", false),
			Dir:           getEnv("CONVERSATION_LOG_DIR", "./data/logs/conversations"),
			GlobalEnabled: getEnvBool("CONVERSATION_LOG_GLOBAL_ENABLED", false),
			GlobalPath:    getEnv("CONVERSATION_LOG_GLOBAL_PATH", "./data/logs/conversations/all.ndjson"),
			QueueSize:     queueSize,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.GroqAPIKey == "" {
		return fmt.Errorf("GROQ_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.SessionBackend != "memory" && c.SessionBackend != "sqlite" {
		return fmt.Errorf("SESSION_BACKEND must be \"memory\" or \"sqlite\", got %q", c.SessionBackend)
	}
	if c.SessionBackend == "sqlite" && c.SessionDBPath == "" {
		return fmt.Errorf("SESSION_DB_PATH cannot be empty with the sqlite session backend")
	}
	if c.ContextTurns < 0 {
		return fmt.Errorf("CONTEXT_TURNS cannot be negative")
	}
	if c.SearchLimit <= 0 {
		return fmt.Errorf("SEARCH_LIMIT must be > 0")
	}
	if c.ConversationLog.Enabled && c.ConversationLog.Dir == "" {
		return fmt.Errorf("CONVERSATION_LOG_DIR cannot be empty when logging is enabled")
	}
	if c.ConversationLog.QueueSize <= 0 {
		return fmt.Errorf("CONVERSATION_LOG_QUEUE_SIZE must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" || c.FrontendURL == "*" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}
