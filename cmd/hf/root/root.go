package root

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"habitforge/internal/engine"
	"habitforge/internal/ui"
)

const Version = "0.3.0"

var (
	configPath string
	dbPath     string
	userFlag   string
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "hf",
		Short:         "habitforge: local-first habit tracker with RPG progression",
		Long:          "habitforge tracks daily habits and turns them into XP, levels, hearts and badges.",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.SetVersionTemplate("{{.Name}} v{{.Version}}\n")

	cmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $HOME/.habitforge.yaml)")
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "SQLite database path (overrides config)")
	cmd.PersistentFlags().StringVarP(&userFlag, "user", "u", "", "User id (default $HF_USER, then $USER)")

	cmd.AddCommand(
		newToggleCmd(),
		newLoginCmd(),
		newStatusCmd(),
		newHabitCmd(),
		newBadgesCmd(),
		newAwardCmd(),
		newLeaderboardCmd(),
		newGrantCmd(),
		newNormalizeCmd(),
		newResetCmd(),
		newFeedCmd(),
		newWatchCmd(),
		newBoardCmd(),
	)
	return cmd
}

func Execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ui.Bad.Render(ui.IconError+" "+err.Error()))
		os.Exit(exitCode(err))
	}
}

// exitCode separates retryable conflicts and rejected input from other
// failures so scripts can react.
func exitCode(err error) int {
	var conflict *engine.ConflictError
	var invalid engine.InvalidStateError
	var notFound engine.NotFoundError
	switch {
	case errors.As(err, &conflict):
		return 3
	case errors.As(err, &invalid), errors.As(err, &notFound):
		return 2
	default:
		return 1
	}
}
