// Package answer streams model answers to questions about a chat, grounded on
// retrieved excerpts.
package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/chatsearch/internal/openai"
)

const (
	maxCompletionTokens = 1024
	temperature         = 0.4
)

var ErrNoMessages = errors.New("no messages provided")

// Turn is one prior exchange in the question-answering conversation.
type Turn struct {
	Role    string `json:"role"` // "user" or "assistant"
	Content string `json:"content"`
}

// Event is one frame of a streamed answer. Exactly one field is set.
type Event struct {
	Content string `json:"content,omitempty"`
	Error   string `json:"error,omitempty"`
	Done    bool   `json:"-"`
}

// Streamer runs a streaming chat completion.
type Streamer interface {
	StreamChat(ctx context.Context, req openai.ChatRequest, onDelta func(string) error) error
}

type Answerer struct {
	llm    Streamer
	model  string
	logger *slog.Logger
}

func New(llm Streamer, model string, logger *slog.Logger) *Answerer {
	return &Answerer{llm: llm, model: model, logger: logger}
}

// BuildMessages prepends the system prompt and injects excerpts into the final turn.
func BuildMessages(history []Turn, excerpts []string) ([]openai.ChatMessage, error) {
	if len(history) == 0 {
		return nil, ErrNoMessages
	}

	msgs := make([]openai.ChatMessage, 0, len(history)+1)
	msgs = append(msgs, openai.ChatMessage{Role: "system", Content: systemPrompt})
	for _, t := range history[:len(history)-1] {
		msgs = append(msgs, openai.ChatMessage{Role: t.Role, Content: t.Content})
	}

	last := history[len(history)-1].Content
	if len(excerpts) > 0 {
		last = fmt.Sprintf(augmentedQuestion, strings.Join(excerpts, excerptSeparator), last)
	}
	msgs = append(msgs, openai.ChatMessage{Role: "user", Content: last})

	return msgs, nil
}

// Stream answers the last turn of history, emitting each content fragment and
// then a Done event. A provider failure is emitted as an Error event instead of
// Done; the returned error is non-nil only when emit itself fails or the
// request is invalid.
func (a *Answerer) Stream(ctx context.Context, history []Turn, excerpts []string, emit func(Event) error) error {
	msgs, err := BuildMessages(history, excerpts)
	if err != nil {
		return err
	}

	a.logger.Info("answering question",
		"turns", len(history),
		"excerpts", len(excerpts),
		"model", a.model,
	)

	var emitErr error
	fragments := 0
	err = a.llm.StreamChat(ctx, openai.ChatRequest{
		Model:               a.model,
		Messages:            msgs,
		MaxCompletionTokens: maxCompletionTokens,
		Temperature:         temperature,
	}, func(delta string) error {
		fragments++
		if err := emit(Event{Content: delta}); err != nil {
			emitErr = err
			return err
		}
		return nil
	})
	if emitErr != nil {
		return fmt.Errorf("emit: %w", emitErr)
	}
	if err != nil {
		a.logger.Error("answer stream failed", "error", err, "fragments", fragments)
		if err := emit(Event{Error: err.Error()}); err != nil {
			return fmt.Errorf("emit: %w", err)
		}
		return nil
	}

	a.logger.Info("answer complete", "fragments", fragments)
	return emit(Event{Done: true})
}
