package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MikeSquared-Agency/chatsearch/internal/answer"
)

// Embedder embeds retrieval chunks and search queries.
type Embedder interface {
	Embed(ctx context.Context, chunks []string) ([][]float64, error)
	EmbedQuery(ctx context.Context, query string) ([]float64, error)
	Model() string
}

// Answerer streams an answer to the last turn of a conversation.
type Answerer interface {
	Stream(ctx context.Context, history []answer.Turn, excerpts []string, emit func(answer.Event) error) error
}

// Publisher announces service events. It may be nil.
type Publisher interface {
	Publish(subject string, data any) error
}

type Options struct {
	Port           int
	PublicDir      string
	MaxUploadBytes int64
	APIToken       string
	ChatModel      string
}

type Server struct {
	router   *chi.Mux
	opts     Options
	embedder Embedder
	answerer Answerer
	events   Publisher
	logger   *slog.Logger
	http     *http.Server
}

func NewServer(opts Options, embedder Embedder, answerer Answerer, events Publisher, logger *slog.Logger) *Server {
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 50 << 20
	}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	}))

	s := &Server{
		router:   router,
		opts:     opts,
		embedder: embedder,
		answerer: answerer,
		events:   events,
		logger:   logger,
	}

	router.Get("/health", s.health)

	router.Route("/api", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))
		r.Get("/status", s.status)
		r.Post("/parse", s.parseChat)
		r.Post("/chunks", s.chunkMessages)
		r.Post("/embed", s.embedChunks)
		r.Post("/embed/query", s.embedQuery)
		r.Post("/rank", s.rankChunks)
		r.Post("/chat", s.chat)
	})

	router.Get("/", s.index)
	router.Get("/favicon.ico", s.favicon)
	router.NotFound(s.static)

	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.opts.Port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"service":     "chatsearch",
		"embed_model": s.embedder.Model(),
		"chat_model":  s.opts.ChatModel,
	})
}

// publish sends an event when a publisher is configured. Failures are logged only.
func (s *Server) publish(subject string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {"detail": ...} body.
func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}
