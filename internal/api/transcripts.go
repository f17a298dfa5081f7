package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/MikeSquared-Agency/chatsearch/internal/chunker"
	"github.com/MikeSquared-Agency/chatsearch/internal/hermes"
	"github.com/MikeSquared-Agency/chatsearch/internal/transcript"
)

const noMessagesDetail = "No messages found. Make sure the file is a WhatsApp chat export."

// ChunksRequest is the payload for POST /api/chunks.
type ChunksRequest struct {
	Messages    []transcript.Message `json:"messages"`
	MaxMessages int                  `json:"max_messages,omitempty"`
	MaxChars    int                  `json:"max_chars,omitempty"`
}

// parseChat handles POST /api/parse (multipart field "file").
func (s *Server) parseChat(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(8 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "File is too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	if err := transcript.CheckFilename(header.Filename); err != nil {
		writeError(w, http.StatusBadRequest, "Only .txt files are supported")
		return
	}

	raw, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Could not read upload")
		return
	}

	parsed := transcript.Parse(transcript.Decode(raw))
	if len(parsed.Messages) == 0 {
		s.logger.Info("upload contained no messages", "bytes", len(raw))
		writeError(w, http.StatusUnprocessableEntity, noMessagesDetail)
		return
	}

	s.logger.Info("transcript parsed",
		"grammar", parsed.Grammar.String(),
		"messages", len(parsed.Messages),
		"participants", len(parsed.Participants),
		"continuation_lines", parsed.ContinuationLines,
		"system_lines", parsed.SystemLines,
	)
	s.publish(hermes.SubjectTranscriptParsed, hermes.NewTranscriptParsed(parsed))

	writeJSON(w, http.StatusOK, parsed)
}

// chunkMessages handles POST /api/chunks.
func (s *Server) chunkMessages(w http.ResponseWriter, r *http.Request) {
	var req ChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if len(req.Messages) == 0 {
		writeError(w, http.StatusBadRequest, "No messages provided")
		return
	}

	chunks := chunker.Split(req.Messages, chunker.Options{
		MaxMessages: req.MaxMessages,
		MaxChars:    req.MaxChars,
	})

	writeJSON(w, http.StatusOK, map[string]any{"chunks": chunks})
}
