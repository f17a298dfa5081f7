// Package embedding turns chunk and query text into vectors, reusing cached
// vectors when a cache is configured.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// MaxChunks is the most chunks accepted in one Embed call.
const MaxChunks = 2048

var (
	ErrNoChunks      = errors.New("no chunks provided")
	ErrTooManyChunks = fmt.Errorf("too many chunks (max %d)", MaxChunks)
	ErrEmptyQuery    = errors.New("query is empty")
)

// Provider computes embeddings for a model.
type Provider interface {
	Embed(ctx context.Context, model string, inputs []string) ([][]float64, error)
}

// Cache stores vectors by model and text. Implementations key by a hash of the text.
type Cache interface {
	Lookup(ctx context.Context, model string, texts []string) (map[string][]float64, error)
	Save(ctx context.Context, model string, entries map[string][]float64) error
}

type Service struct {
	provider Provider
	cache    Cache
	model    string
	logger   *slog.Logger
}

// New creates a Service. cache may be nil.
func New(provider Provider, cache Cache, model string, logger *slog.Logger) *Service {
	return &Service{provider: provider, cache: cache, model: model, logger: logger}
}

// Model is the embedding model in use.
func (s *Service) Model() string {
	return s.model
}

// Embed returns one vector per chunk, in chunk order.
func (s *Service) Embed(ctx context.Context, chunks []string) ([][]float64, error) {
	if len(chunks) == 0 {
		return nil, ErrNoChunks
	}
	if len(chunks) > MaxChunks {
		return nil, ErrTooManyChunks
	}

	cached := s.lookup(ctx, chunks)

	var misses []string
	seen := make(map[string]bool)
	for _, c := range chunks {
		if _, ok := cached[c]; ok || seen[c] {
			continue
		}
		seen[c] = true
		misses = append(misses, c)
	}

	if len(misses) > 0 {
		vectors, err := s.provider.Embed(ctx, s.model, misses)
		if err != nil {
			return nil, fmt.Errorf("embed chunks: %w", err)
		}
		fresh := make(map[string][]float64, len(misses))
		for i, text := range misses {
			fresh[text] = vectors[i]
			cached[text] = vectors[i]
		}
		s.save(ctx, fresh)
	}

	s.logger.Debug("embedded chunks",
		"chunks", len(chunks),
		"cache_hits", len(chunks)-len(misses),
		"model", s.model,
	)

	out := make([][]float64, len(chunks))
	for i, c := range chunks {
		out[i] = cached[c]
	}
	return out, nil
}

// EmbedQuery embeds a single search query. Queries are not cached.
func (s *Service) EmbedQuery(ctx context.Context, query string) ([]float64, error) {
	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	vectors, err := s.provider.Embed(ctx, s.model, []string{query})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("embed query: empty response")
	}
	return vectors[0], nil
}

func (s *Service) lookup(ctx context.Context, chunks []string) map[string][]float64 {
	if s.cache == nil {
		return make(map[string][]float64)
	}
	hits, err := s.cache.Lookup(ctx, s.model, chunks)
	if err != nil {
		s.logger.Warn("embedding cache lookup failed", "error", err)
		return make(map[string][]float64)
	}
	if hits == nil {
		hits = make(map[string][]float64)
	}
	return hits
}

func (s *Service) save(ctx context.Context, entries map[string][]float64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Save(ctx, s.model, entries); err != nil {
		s.logger.Warn("embedding cache save failed", "entries", len(entries), "error", err)
	}
}
