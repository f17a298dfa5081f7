package hermes

import (
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatsearch/internal/transcript"
)

const (
	SubjectTranscriptParsed = "chatsearch.transcript.parsed"
	SubjectAnswerCompleted  = "chatsearch.answer.completed"
)

// TranscriptParsed announces a successful upload. It carries counts only, never chat content.
type TranscriptParsed struct {
	ID                uuid.UUID `json:"id"`
	Grammar           string    `json:"grammar"`
	Messages          int       `json:"messages"`
	Participants      int       `json:"participants"`
	MediaMessages     int       `json:"media_messages"`
	ContinuationLines int       `json:"continuation_lines"`
	ParsedAt          time.Time `json:"parsed_at"`
}

// AnswerCompleted is published after a streamed answer ends, successfully or not.
type AnswerCompleted struct {
	ID          uuid.UUID `json:"id"`
	Turns       int       `json:"turns"`
	Excerpts    int       `json:"excerpts"`
	Fragments   int       `json:"fragments"`
	Failed      bool      `json:"failed"`
	CompletedAt time.Time `json:"completed_at"`
}

// NewTranscriptParsed summarizes a parse result.
func NewTranscriptParsed(p *transcript.Parsed) TranscriptParsed {
	media := 0
	for _, m := range p.Messages {
		if m.IsMedia {
			media++
		}
	}
	return TranscriptParsed{
		ID:                uuid.New(),
		Grammar:           p.Grammar.String(),
		Messages:          len(p.Messages),
		Participants:      len(p.Participants),
		MediaMessages:     media,
		ContinuationLines: p.ContinuationLines,
		ParsedAt:          time.Now().UTC(),
	}
}
