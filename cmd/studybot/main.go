// StudyBot - conversational study-ticket intake agent.
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

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/joho/godotenv"

	"github.com/dbhatt90/StudyBotAgent/checkpoint"
	"github.com/dbhatt90/StudyBotAgent/config"
	"github.com/dbhatt90/StudyBotAgent/form"
	"github.com/dbhatt90/StudyBotAgent/retrieval"
	"github.com/dbhatt90/StudyBotAgent/server"
	"github.com/dbhatt90/StudyBotAgent/session"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting studybot", "port", cfg.Port, "checkpoint_backend", cfg.CheckpointBackend)

	schema := form.DefaultSchema()
	if cfg.SchemaPath != "" {
		schema, err = form.LoadSchema(cfg.SchemaPath)
		if err != nil {
			slog.Error("Failed to load schema", "path", cfg.SchemaPath, "error", err)
			os.Exit(1)
		}
		slog.Info("Schema loaded", "path", cfg.SchemaPath, "fields", schema.Size())
	}

	store, closeStore, err := buildStore(cfg)
	if err != nil {
		slog.Error("Failed to initialize checkpoint store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	chat := buildChatModel(cfg)
	if chat == nil {
		slog.Warn("No model API key configured, running with local fallback engines only")
	}

	hub := server.NewHub()
	registry := session.NewRegistry(session.Deps{
		Schema:     schema,
		Store:      store,
		Chat:       chat,
		Searcher:   retrieval.ScenarioSearcher{},
		Emitter:    hub,
		HistoryCap: cfg.HistoryCap,
	})

	handler := server.NewHandler(registry, hub)

	srv := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     handler.Router(),
		ReadTimeout: 30 * time.Second,
		IdleTimeout: 120 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped")
}

func buildStore(cfg *config.Config) (checkpoint.Store, func(), error) {
	switch cfg.CheckpointBackend {
	case config.BackendSQLite:
		store, err := checkpoint.NewSQLiteStore(cfg.CheckpointDBPath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {
			if err := store.Close(); err != nil {
				slog.Error("Failed to close checkpoint database", "error", err)
			}
		}, nil
	case config.BackendMemory:
		return checkpoint.NewMemoryStore(), func() {}, nil
	default:
		store, err := checkpoint.NewFileStore(cfg.CheckpointDir)
		if err != nil {
			return nil, nil, err
		}
		return store, func() {}, nil
	}
}

func buildChatModel(cfg *config.Config) model.ToolCallingChatModel {
	if cfg.OpenAIAPIKey == "" {
		return nil
	}
	cm, err := openai.NewChatModel(context.Background(), &openai.ChatModelConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		BaseURL: cfg.OpenAIBaseURL,
	})
	if err != nil {
		slog.Error("Failed to initialize chat model", "error", err)
		return nil
	}
	return cm
}
