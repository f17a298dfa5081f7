package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/MikeSquared-Agency/chatsearch/internal/answer"
	"github.com/MikeSquared-Agency/chatsearch/internal/api"
	"github.com/MikeSquared-Agency/chatsearch/internal/config"
	"github.com/MikeSquared-Agency/chatsearch/internal/embedding"
	"github.com/MikeSquared-Agency/chatsearch/internal/hermes"
	"github.com/MikeSquared-Agency/chatsearch/internal/openai"
	"github.com/MikeSquared-Agency/chatsearch/internal/store"
)

func main() {
	if err := run(); err != nil {
		slog.Error("chatsearch failed", "error", err)
		os.Exit(1)
	}
}

// run wires the service and blocks until a signal or a server failure. It
// returns instead of exiting so deferred cleanup always runs.
func run() error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogging(cfg.LogLevel)

	slog.Info("chatsearch starting", "port", cfg.Port)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// OpenAI client. A missing key surfaces as a 502 on the first model call.
	if cfg.OpenAIAPIKey == "" {
		slog.Warn("OPENAI_API_KEY is not set; embedding and chat will fail")
	}
	llm := openai.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL)

	// Embedding cache (optional)
	var cache embedding.Cache
	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect to database: %w", err)
		}
		defer db.Close()
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
		cache = db
		slog.Info("embedding cache ready")
	} else {
		slog.Info("DATABASE_URL not set, embedding cache disabled")
	}

	// NATS/Hermes (optional)
	var events api.Publisher
	if cfg.NatsURL != "" {
		hermesClient, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, slog.Default())
		if err != nil {
			return fmt.Errorf("connect to NATS: %w", err)
		}
		defer hermesClient.Close()
		events = hermesClient
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	embedder := embedding.New(llm, cache, cfg.EmbedModel, slog.Default())
	answerer := answer.New(llm, cfg.ChatModel, slog.Default())

	srv := api.NewServer(api.Options{
		Port:           cfg.Port,
		PublicDir:      cfg.PublicDir,
		MaxUploadBytes: int64(cfg.MaxUploadMB) << 20,
		APIToken:       cfg.APIToken,
		ChatModel:      cfg.ChatModel,
	}, embedder, answerer, events, slog.Default())

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.Start()
	}()

	slog.Info("chatsearch ready", "port", cfg.Port, "embed_model", cfg.EmbedModel, "chat_model", cfg.ChatModel)

	// Graceful shutdown
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-sigCh:
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	}
	slog.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Warn("shutdown error", "error", err)
	}
	slog.Info("chatsearch stopped")
	return nil
}

func loadConfig() (config.Config, error) {
	path := os.Getenv("CHATSEARCH_CONFIG")
	if path == "" {
		return config.Load(), nil
	}
	return config.LoadFile(path)
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
