// Careline - voice-driven hospital directory assistant server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/ashureev/careline/internal/api"
	"github.com/ashureev/careline/internal/assistant"
	"github.com/ashureev/careline/internal/config"
	"github.com/ashureev/careline/internal/conversation"
	"github.com/ashureev/careline/internal/groq"
	"github.com/ashureev/careline/internal/live"
	"github.com/ashureev/careline/internal/middleware"
	"github.com/ashureev/careline/internal/store"
	"github.com/ashureev/careline/web"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize the hospital directory.
	directory, err := store.NewSQLite(cfg.DBPath, cfg.DataCSVPath)
	if err != nil {
		slog.Error("Failed to initialize hospital directory", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := directory.Close(); closeErr != nil {
			slog.Error("Failed to close hospital directory", "error", closeErr)
		}
	}()

	if err := directory.Ping(context.Background()); err != nil {
		slog.Error("Directory health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Hospital directory ready")

	// Initialize the conversation store.
	var conversations conversation.Store
	if cfg.SessionBackend == "sqlite" {
		conversations, err = conversation.NewSQLite(cfg.SessionDBPath)
		if err != nil {
			slog.Error("Failed to initialize session store", "error", err)
			os.Exit(1)
		}
	} else {
		conversations = conversation.NewMemoryStore()
	}
	defer conversations.Close()
	slog.Info("Conversation store ready", "backend", cfg.SessionBackend)

	// Initialize the Groq backend.
	client, err := groq.NewClient(groq.Config{
		APIKey:    cfg.GroqAPIKey,
		BaseURL:   cfg.GroqBaseURL,
		ChatModel: cfg.DecisionModel,
		STTModel:  cfg.STTModel,
		TTSModel:  cfg.TTSModel,
		TTSVoice:  cfg.TTSVoice,
	})
	if err != nil {
		slog.Error("Failed to initialize Groq client", "error", err)
		os.Exit(1)
	}

	// Optional exchange logging for offline review.
	var convLogger *conversation.Logger
	if cfg.ConversationLog.Enabled || cfg.ConversationLog.GlobalEnabled {
		convLogger, err = conversation.NewLogger(conversation.LogConfig{
			Enabled:       cfg.ConversationLog.Enabled,
			Dir:           cfg.ConversationLog.Dir,
			GlobalEnabled: cfg.ConversationLog.GlobalEnabled,
			GlobalPath:    cfg.ConversationLog.GlobalPath,
			QueueSize:     cfg.ConversationLog.QueueSize,
		}, logger)
		if err != nil {
			slog.Error("Failed to initialize conversation logger", "error", err)
			os.Exit(1)
		}
		defer convLogger.Close()
	}

	// Assemble the pipeline.
	svc := assistant.NewService(
		assistant.NewGroqDecider(client),
		assistant.NewGroqResponder(client),
		directory,
		conversations,
		client,
		client,
		assistant.Options{
			ContextTurns: cfg.ContextTurns,
			SearchLimit:  cfg.SearchLimit,
			CallTimeout:  cfg.BackendTimeout,
			Logger:       convLogger,
		},
	)

	assistantHandler := assistant.NewHandler(svc)
	liveManager := live.NewSessionManager(cfg.LiveMaxSessions)
	liveHandler := live.NewWebSocketHandler(svc, liveManager, cfg.FrontendURL)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(middleware.CORS([]string{cfg.FrontendURL}))

	r.Get("/health", api.HealthHandler)

	assistantHandler.RegisterRoutes(r)

	// WebSocket endpoint for multi-turn live conversations.
	r.Get("/ws/talk", liveHandler.ServeHTTP)

	// Serve the embedded recorder frontend.
	r.Handle("/*", web.SPAHandler())

	// Audio responses stream for as long as synthesis runs, so no write
	// timeout.
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0,
		IdleTimeout:  120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Evict idle transcripts in the background when a TTL is configured.
	conversation.StartTTLWorker(ctx, conversations, cfg.SessionTTL)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	liveManager.CloseAll()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
