package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	models "threadkeeper/internal/domain/models/assistant"
)

func unblockCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unblock",
		Short: "Cancel runs that keep the thread busy",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			report, err := a.services.Chat.Unblock(cmd.Context(), a.session)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return nil
		},
	}
}

func resetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "reset",
		Short: "Start a new thread for this session",
		Long:  "Start a new thread for this session. The previous thread is left on the backend.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			thread, err := a.services.Chat.Reset(cmd.Context(), a.session)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), thread.ID)
			return nil
		},
	}
}

func printReport(out io.Writer, report *models.ReconcileReport) {
	if len(report.Cancelled) == 0 && len(report.Errors) == 0 {
		fmt.Fprintln(out, "no live runs")
		return
	}
	if len(report.Cancelled) > 0 {
		fmt.Fprintf(out, "cancelled: %s\n", strings.Join(report.Cancelled, ", "))
	}
	if len(report.Unsettled) > 0 {
		fmt.Fprintf(out, "still cancelling: %s\n", strings.Join(report.Unsettled, ", "))
	}
	for _, e := range report.Errors {
		fmt.Fprintf(out, "error: %s\n", e)
	}
}
