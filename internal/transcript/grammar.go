package transcript

import (
	"regexp"
	"strings"
	"unicode"
)

// Grammar identifies one of the two supported export line layouts.
type Grammar int

const (
	// GrammarBracketed is "[time, date] Sender: text" with a month-first date.
	GrammarBracketed Grammar = iota
	// GrammarDashed is "date, time - Sender: text" with a day-first date.
	GrammarDashed
)

func (g Grammar) String() string {
	switch g {
	case GrammarBracketed:
		return "bracketed"
	case GrammarDashed:
		return "dashed"
	default:
		return "unknown"
	}
}

const (
	// Separators may be any Unicode space and digits may be in any script.
	ws          = `[\s\p{Zs}]`
	digit       = `\p{Nd}`
	timePattern = digit + `{1,2}:` + digit + `{2}(?::` + digit + `{2})?(?:[\x{202f}\x{00a0}]?[APap][Mm])?`
	datePattern = digit + `{1,2}[/.\-]` + digit + `{1,2}[/.\-]` + digit + `{2,4}`
)

var (
	bracketedLine = regexp.MustCompile(`^\[(` + timePattern + `),` + ws + `*(` + datePattern + `)\]` + ws + `+([^:]+):` + ws + `*(.*)`)
	dashedLine    = regexp.MustCompile(`^(` + datePattern + `),` + ws + `*(` + timePattern + `)` + ws + `+-` + ws + `+([^:]+):` + ws + `*(.*)`)

	// Join/leave notices and similar: a dashed prefix with no "Sender:" segment.
	dashedSystemLine = regexp.MustCompile(`^` + datePattern + `,` + ws + `*` + timePattern + ws + `+-` + ws + `+[^:]+$`)

	dateSeparator = regexp.MustCompile(`[/.\-]`)
)

// header is the captured start of a message line.
type header struct {
	time   string
	date   string
	sender string
	text   string
}

func (g Grammar) other() Grammar {
	if g == GrammarBracketed {
		return GrammarDashed
	}
	return GrammarBracketed
}

func (g Grammar) matches(line string) bool {
	if g == GrammarBracketed {
		return bracketedLine.MatchString(line)
	}
	return dashedLine.MatchString(line)
}

// match captures a message header, normalizing the date to month-first order.
func (g Grammar) match(line string) (header, bool) {
	if g == GrammarBracketed {
		m := bracketedLine.FindStringSubmatch(line)
		if m == nil {
			return header{}, false
		}
		return header{
			time:   strings.TrimSpace(m[1]),
			date:   strings.TrimSpace(m[2]),
			sender: strings.TrimSpace(m[3]),
			text:   m[4],
		}, true
	}

	m := dashedLine.FindStringSubmatch(line)
	if m == nil {
		return header{}, false
	}
	return header{
		time:   strings.TrimSpace(m[2]),
		date:   monthFirst(m[1]),
		sender: strings.TrimSpace(m[3]),
		text:   m[4],
	}, true
}

// isSystemLine reports whether line is a senderless notice in the dashed layout.
func isSystemLine(line string) bool {
	return dashedSystemLine.MatchString(line)
}

// monthFirst reorders a day-first date to month/day/year and widens 2-digit years.
func monthFirst(date string) string {
	parts := dateSeparator.Split(date, -1)
	if len(parts) != 3 {
		return strings.TrimSpace(date)
	}
	day, month, year := parts[0], parts[1], parts[2]
	return month + "/" + day + "/" + expandYear(year)
}

// expandYear pivots 2-digit years at 30: 00-30 are 20xx, 31-99 are 19xx.
// Native-digit years are widened with ASCII century digits.
func expandYear(y string) string {
	digits := []rune(y)
	if len(digits) != 2 {
		return y
	}
	n := 0
	for _, r := range digits {
		v, ok := digitValue(r)
		if !ok {
			return y
		}
		n = n*10 + v
	}
	if n <= 30 {
		return "20" + y
	}
	return "19" + y
}

// digitValue returns the numeric value of a decimal digit in any script.
// Decimal digits are encoded as contiguous runs starting at zero, so the
// value is the offset from the start of the run.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.IsDigit(r) {
		return 0, false
	}
	start := r
	for start > 0 && unicode.IsDigit(start-1) {
		start--
	}
	return int(r-start) % 10, true
}

// dominantGrammar picks the layout used by most lines. Ties go to the bracketed layout.
func dominantGrammar(lines []string) Grammar {
	var bracketed, dashed int
	for _, l := range lines {
		if GrammarBracketed.matches(l) {
			bracketed++
		}
		if GrammarDashed.matches(l) {
			dashed++
		}
	}
	if bracketed >= dashed {
		return GrammarBracketed
	}
	return GrammarDashed
}
