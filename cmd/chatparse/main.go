package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/MikeSquared-Agency/chatsearch/internal/transcript"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:     "chatparse",
		Short:   "Parse WhatsApp chat exports offline",
		Version: version,
	}

	rootCmd.AddCommand(parseCmd())
	rootCmd.AddCommand(statsCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// readTranscript loads and parses an export, rejecting files that hold no messages.
func readTranscript(path string) (*transcript.Parsed, error) {
	if err := transcript.CheckFilename(filepath.Base(path)); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	parsed := transcript.Parse(transcript.Decode(raw))
	if len(parsed.Messages) == 0 {
		return nil, fmt.Errorf("%s: no messages found, is it a WhatsApp chat export?", path)
	}
	return parsed, nil
}

// writeJSON indents output when stdout is a terminal.
func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(v)
}
