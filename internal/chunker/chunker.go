// Package chunker groups parsed chat messages into retrieval chunks for embedding.
package chunker

import (
	"strings"

	"github.com/MikeSquared-Agency/chatsearch/internal/transcript"
)

const (
	DefaultMaxMessages = 20
	DefaultMaxChars    = 2000
)

// Options bounds the size of a chunk. Zero values use the defaults.
type Options struct {
	MaxMessages int
	MaxChars    int
}

// Chunk is a run of consecutive messages rendered as one retrieval document.
type Chunk struct {
	Index int    `json:"index"`
	Start int    `json:"start"` // first message index
	End   int    `json:"end"`   // one past the last message index
	Date  string `json:"date"`
	Text  string `json:"text"`
}

// Split breaks messages into chunks on date changes, message count and rendered size.
func Split(msgs []transcript.Message, opts Options) []Chunk {
	if len(msgs) == 0 {
		return nil
	}
	if opts.MaxMessages <= 0 {
		opts.MaxMessages = DefaultMaxMessages
	}
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}

	var chunks []Chunk
	var lines []string
	start, size := 0, 0

	flush := func(end int) {
		chunks = append(chunks, Chunk{
			Index: len(chunks),
			Start: start,
			End:   end,
			Date:  msgs[start].Date,
			Text:  strings.Join(lines, "\n"),
		})
		lines = nil
		start, size = end, 0
	}

	for i, msg := range msgs {
		line := Format(msg)

		if len(lines) > 0 {
			newDay := msg.Date != msgs[i-1].Date
			full := len(lines) >= opts.MaxMessages || size+1+len(line) > opts.MaxChars
			if newDay || full {
				flush(i)
			}
		}

		if len(lines) > 0 {
			size++ // newline separator
		}
		lines = append(lines, line)
		size += len(line)
	}

	flush(len(msgs))

	return chunks
}

// Format renders one message as "[date time] sender: text".
func Format(m transcript.Message) string {
	var sb strings.Builder
	sb.WriteString("[")
	sb.WriteString(m.Date)
	sb.WriteString(" ")
	sb.WriteString(m.Time)
	sb.WriteString("] ")
	sb.WriteString(m.Sender)
	sb.WriteString(": ")
	sb.WriteString(m.Text)
	return sb.String()
}

// Texts returns the rendered text of each chunk, in order.
func Texts(chunks []Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Text
	}
	return out
}
