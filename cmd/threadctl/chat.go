package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"threadkeeper/internal/domain"
	models "threadkeeper/internal/domain/models/assistant"
	svc "threadkeeper/internal/domain/services/assistant"
)

func chatCmd() *cobra.Command {
	var interactive bool
	var images []string

	cmd := &cobra.Command{
		Use:   "chat [prompt]",
		Short: "Send a message and wait for the assistant's reply",
		Long: `Send a message to the assistant thread and print the reply.

Examples:
  threadctl chat "Hello, what can you do?"
  threadctl chat "What is in this picture?" --image file_abc123
  threadctl chat -i`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !interactive && len(args) == 0 {
				return errors.New("a prompt is required unless --interactive is set")
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			if len(args) > 0 {
				if err := a.send(ctx, out, strings.Join(args, " "), images); err != nil {
					return err
				}
			}
			if interactive {
				return a.repl(ctx, cmd.InOrStdin(), out)
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "start interactive chat session")
	cmd.Flags().StringSliceVar(&images, "image", nil, "uploaded file ID to attach (repeatable)")

	return cmd
}

// send runs one turn and prints its outcome. Run failures are printed, not returned.
func (a *app) send(ctx context.Context, out io.Writer, text string, images []string) error {
	resp, err := a.services.Chat.SendTurn(ctx, a.session, &svc.SendTurnRequest{
		Text:         text,
		ImageFileIDs: images,
	})
	if err != nil {
		var blocked *domain.BlockedError
		if errors.As(err, &blocked) {
			return fmt.Errorf("%w\nrun 'threadctl unblock' to cancel them", err)
		}
		return err
	}

	if resp.Reconcile != nil && len(resp.Reconcile.Cancelled) > 0 {
		fmt.Fprintf(out, "(cancelled %d stuck run(s) first)\n", len(resp.Reconcile.Cancelled))
	}

	result := resp.Result
	switch result.Outcome {
	case models.OutcomeCompleted:
		if result.ErrorMessage != "" {
			fmt.Fprintf(out, "assistant: (%s)\n", result.ErrorMessage)
			return nil
		}
		fmt.Fprintf(out, "assistant: %s\n", result.Reply)
	case models.OutcomeFailed:
		fmt.Fprintf(out, "run failed: %s: %s\n", result.ErrorCode, result.ErrorMessage)
	case models.OutcomeTimeout:
		fmt.Fprintf(out, "run timed out: %s\n", result.ErrorMessage)
	default:
		fmt.Fprintf(out, "run ended as %s\n", result.Status)
	}
	return nil
}

// repl reads one turn per line. Lines starting with "/" are commands.
func (a *app) repl(ctx context.Context, in io.Reader, out io.Writer) error {
	fmt.Fprintf(out, "thread %s (/history, /unblock, /reset, /quit)\n", a.session.ThreadID())

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/history":
			printEntries(out, a.services.Chat.History(ctx, a.session))
			continue
		case "/unblock":
			report, err := a.services.Chat.Unblock(ctx, a.session)
			if err != nil {
				fmt.Fprintln(out, "unblock failed:", err)
				continue
			}
			printReport(out, report)
			continue
		case "/reset":
			thread, err := a.services.Chat.Reset(ctx, a.session)
			if err != nil {
				fmt.Fprintln(out, "reset failed:", err)
				continue
			}
			fmt.Fprintln(out, "new thread", thread.ID)
			continue
		}

		if err := a.send(ctx, out, line, nil); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			fmt.Fprintln(out, "error:", err)
		}
	}
}
