package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsearch/internal/answer"
	"github.com/MikeSquared-Agency/chatsearch/internal/hermes"
)

// ChatRequest is the payload for POST /api/chat.
type ChatRequest struct {
	Messages  []answer.Turn `json:"messages"`   // full conversation so far
	RAGChunks []string      `json:"rag_chunks"` // top-K excerpts for this turn
}

// chat handles POST /api/chat, streaming the answer as server-sent events.
func (s *Server) chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "No messages provided")
		return
	}

	flusher, _ := w.(http.Flusher)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	var fragments int
	var failed bool
	emit := func(e answer.Event) error {
		var frame string
		switch {
		case e.Done:
			frame = "data: [DONE]\n\n"
		default:
			if e.Error != "" {
				failed = true
			} else {
				fragments++
			}
			payload, err := json.Marshal(e)
			if err != nil {
				return fmt.Errorf("marshal event: %w", err)
			}
			frame = "data: " + string(payload) + "\n\n"
		}
		if _, err := fmt.Fprint(w, frame); err != nil {
			return err
		}
		if flusher != nil {
			flusher.Flush()
		}
		return nil
	}

	if err := s.answerer.Stream(r.Context(), req.Messages, req.RAGChunks, emit); err != nil {
		s.logger.Warn("chat stream aborted", "error", err)
		failed = true
	}

	s.publish(hermes.SubjectAnswerCompleted, hermes.AnswerCompleted{
		ID:          uuid.New(),
		Turns:       len(req.Messages),
		Excerpts:    len(req.RAGChunks),
		Fragments:   fragments,
		Failed:      failed,
		CompletedAt: time.Now().UTC(),
	})
}
