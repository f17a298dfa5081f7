package main

import (
	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/chatsearch/internal/chunker"
)

func parseCmd() *cobra.Command {
	var chunks bool
	var maxMessages, maxChars int

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the parsed messages of an export as JSON",
		Long:  `Parses a .txt chat export and prints {"messages", "participants", "title"} as JSON. With --chunks, prints the retrieval chunks instead.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parsed, err := readTranscript(args[0])
			if err != nil {
				return err
			}

			if !chunks {
				return writeJSON(cmd.OutOrStdout(), parsed)
			}

			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"chunks": chunker.Split(parsed.Messages, chunker.Options{
					MaxMessages: maxMessages,
					MaxChars:    maxChars,
				}),
			})
		},
	}

	cmd.Flags().BoolVar(&chunks, "chunks", false, "Print retrieval chunks instead of messages")
	cmd.Flags().IntVar(&maxMessages, "max-messages", chunker.DefaultMaxMessages, "Max messages per chunk")
	cmd.Flags().IntVar(&maxChars, "max-chars", chunker.DefaultMaxChars, "Max rendered characters per chunk")

	return cmd
}
