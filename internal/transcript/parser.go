package transcript

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
)

var mediaPlaceholder = regexp.MustCompile(`(?i)<[^>]*(?:omitted|attached)[^>]*>`)

// Parse reconstructs messages from an exported chat. It never fails: lines that
// start no message are folded into the open message or dropped. Callers decide
// whether an empty result is an error.
func Parse(content string) *Parsed {
	content = strings.TrimLeft(content, "\ufeff")
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = strings.ReplaceAll(content, "\r", "\n")
	lines := strings.Split(content, "\n")

	primary := dominantGrammar(lines)
	secondary := primary.other()

	out := &Parsed{
		Messages:     []Message{},
		Participants: []string{},
		Grammar:      primary,
	}
	participants := make(map[string]struct{})

	var current *Message
	flush := func() {
		if current != nil {
			out.Messages = append(out.Messages, *current)
			current = nil
		}
	}

	for _, line := range lines {
		if h, ok := primary.match(line); ok {
			flush()
			participants[h.sender] = struct{}{}
			current = &Message{
				Time:    h.time,
				Date:    h.date,
				Sender:  h.sender,
				Text:    strings.TrimLeftFunc(h.text, unicode.IsSpace),
				IsMedia: mediaPlaceholder.MatchString(h.text),
			}
			continue
		}

		if current == nil || strings.TrimSpace(line) == "" {
			continue
		}

		out.ContinuationLines++
		if isSystemLine(line) {
			out.SystemLines++
		}

		// A line in the other layout is kept inline, labelled with its sender.
		if h, ok := secondary.match(line); ok {
			current.Text += "\n" + h.sender + ": " + strings.TrimSpace(h.text)
			continue
		}
		current.Text += "\n" + line
	}
	flush()

	for p := range participants {
		out.Participants = append(out.Participants, p)
	}
	sort.Strings(out.Participants)

	return out
}
