package main

import (
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

// Shared CLI flags (used across multiple command files)
var (
	stateFile  string
	sessionKey string
	verbose    bool
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "threadctl",
		Short: "Chat with an OpenAI assistant thread from the terminal",
		Long: `threadctl talks to one assistant thread. The thread ID comes from THREAD_ID
or from the state file; when neither exists a new thread is created and
remembered in the state file.

Before every message, runs left behind by earlier turns are cancelled
(RECONCILE_MODE=auto) or reported (RECONCILE_MODE=manual, see 'threadctl unblock').`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVar(&stateFile, "state-file", defaultStateFile(), "YAML file remembering the thread of each session")
	rootCmd.PersistentFlags().StringVar(&sessionKey, "session", "default", "session key inside the state file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log debug output to stderr")

	rootCmd.AddCommand(
		chatCmd(),
		historyCmd(),
		unblockCmd(),
		resetCmd(),
		filesCmd(),
	)
	return rootCmd
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".threadkeeper-state.yaml"
	}
	return filepath.Join(home, ".threadkeeper", "state.yaml")
}
