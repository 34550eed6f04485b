package root

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"habitforge/internal/notify"
	"habitforge/internal/ui"
)

func newFeedCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "feed",
		Short: "Show recent activity",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.activities == nil {
				return errNeedsSQLite
			}
			items, err := a.activities.ListRecent(ctx, a.user, limit)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(items) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no activity yet)"))
				return nil
			}
			loc, err := a.cfg.Location()
			if err != nil {
				return err
			}
			for _, it := range items {
				fmt.Fprintf(w, "%s %s %s\n", ui.Muted.Render(it.CreatedAt.In(loc).Format("2006-01-02 15:04")), activityIcon(it.Type), it.Title)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Entries to show")
	return cmd
}

func activityIcon(typ string) string {
	switch typ {
	case notify.ActivityHabitProgress:
		return ui.IconDone
	case notify.ActivityHabitGoalReached:
		return ui.IconFlag
	case notify.ActivityLevelUp:
		return ui.IconBolt
	case notify.ActivityBadgeEarned:
		return ui.IconTrophy
	case notify.ActivityHeartLost:
		return ui.IconBroken
	case notify.ActivityStreakFreezeConsumed:
		return ui.IconFreeze
	default:
		return ui.IconSparkle
	}
}
