package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/MikeSquared-Agency/chatsearch/internal/embedding"
	"github.com/MikeSquared-Agency/chatsearch/internal/rank"
)

type EmbedRequest struct {
	Chunks []string `json:"chunks"`
}

type EmbedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

type QueryEmbedRequest struct {
	Query string `json:"query"`
}

type QueryEmbedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type RankRequest struct {
	Query   []float64   `json:"query"`
	Vectors [][]float64 `json:"vectors"`
	K       int         `json:"k"`
}

type RankResponse struct {
	Results []rank.Result `json:"results"`
}

// embedChunks handles POST /api/embed.
func (s *Server) embedChunks(w http.ResponseWriter, r *http.Request) {
	var req EmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	vectors, err := s.embedder.Embed(r.Context(), req.Chunks)
	switch {
	case errors.Is(err, embedding.ErrNoChunks):
		writeError(w, http.StatusBadRequest, "No chunks provided")
		return
	case errors.Is(err, embedding.ErrTooManyChunks):
		writeError(w, http.StatusBadRequest, "Too many chunks (max 2048)")
		return
	case err != nil:
		s.logger.Error("embedding failed", "chunks", len(req.Chunks), "error", err)
		writeError(w, http.StatusBadGateway, "OpenAI error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, EmbedResponse{Embeddings: vectors})
}

// embedQuery handles POST /api/embed/query. Similarity is computed by the caller or /api/rank.
func (s *Server) embedQuery(w http.ResponseWriter, r *http.Request) {
	var req QueryEmbedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	vec, err := s.embedder.EmbedQuery(r.Context(), req.Query)
	switch {
	case errors.Is(err, embedding.ErrEmptyQuery):
		writeError(w, http.StatusBadRequest, "Query is empty")
		return
	case err != nil:
		s.logger.Error("query embedding failed", "error", err)
		writeError(w, http.StatusBadGateway, "OpenAI error: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, QueryEmbedResponse{Embedding: vec})
}

// rankChunks handles POST /api/rank.
func (s *Server) rankChunks(w http.ResponseWriter, r *http.Request) {
	var req RankRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Query) == 0 {
		writeError(w, http.StatusBadRequest, "Query embedding is empty")
		return
	}

	results := rank.TopK(req.Query, req.Vectors, req.K)
	for i := range results {
		results[i].Score = rank.Round(results[i].Score, 4)
	}

	writeJSON(w, http.StatusOK, RankResponse{Results: results})
}
