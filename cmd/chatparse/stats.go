package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats <file>",
		Short: "Summarize an export",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := readTranscript(args[0])
			if err != nil {
				return err
			}

			media := 0
			for _, m := range parsed.Messages {
				if m.IsMedia {
					media++
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "grammar:            %s\n", parsed.Grammar)
			fmt.Fprintf(out, "messages:           %d\n", len(parsed.Messages))
			fmt.Fprintf(out, "media messages:     %d\n", media)
			fmt.Fprintf(out, "continuation lines: %d\n", parsed.ContinuationLines)
			fmt.Fprintf(out, "system lines:       %d\n", parsed.SystemLines)
			fmt.Fprintf(out, "participants:       %d (%s)\n", len(parsed.Participants), strings.Join(parsed.Participants, ", "))
			return nil
		},
	}
}
