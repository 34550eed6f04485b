package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"habitforge/internal/ui"
)

func newLeaderboardCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Rank users by total XP",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			board, err := a.svc.Leaderboard(ctx, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconTrophy, "Leaderboard"))
			for _, e := range board {
				line := fmt.Sprintf("%3d. %-20s L%-3d %6d XP  %d badges", e.Rank, e.DisplayName, e.Level, e.TotalXP, e.Badges)
				if e.UserID == a.user {
					line = ui.SelectedRow.Render(line)
				}
				fmt.Fprintln(w, line)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Rows to show (default from config)")
	return cmd
}
