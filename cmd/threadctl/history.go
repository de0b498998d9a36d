package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	models "threadkeeper/internal/domain/models/assistant"
)

func historyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Print the most recent messages of the thread",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			printEntries(cmd.OutOrStdout(), a.services.Chat.History(cmd.Context(), a.session))
			return nil
		},
	}
}

func printEntries(out io.Writer, entries []models.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(out, "(no messages)")
		return
	}
	for _, e := range entries {
		fmt.Fprintf(out, "%s: %s\n", e.Role, e.Content)
	}
}
