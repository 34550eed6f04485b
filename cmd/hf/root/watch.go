package root

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"habitforge/internal/engine"
	"habitforge/internal/notify"
	"habitforge/internal/ui"
)

func newWatchCmd() *cobra.Command {
	var everyone bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Stream progression events from Redis",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.rdb == nil {
				return errors.New("redis is not configured (set redis.addr or HF_REDIS_ADDR)")
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Muted.Render("Watching "+a.cfg.Redis.Channel+", ctrl+c to stop."))
			return notify.Subscribe(ctx, a.rdb, a.cfg.Redis.Channel, a.log, func(e engine.Event) {
				m := e.Meta()
				if !everyone && m.UserID != a.user {
					return
				}
				fmt.Fprintf(w, "%s %s %s\n", ui.Muted.Render(m.At.Format("15:04:05")), ui.Key.Render(m.UserID), describeEvent(e))
			})
		},
	}

	cmd.Flags().BoolVar(&everyone, "all", false, "Show events for every user")
	return cmd
}

func describeEvent(e engine.Event) string {
	switch ev := e.(type) {
	case *engine.HabitProgressed:
		if ev.WasCompleted {
			return fmt.Sprintf("%s unmarked %s on %s", ui.IconUndo, ev.HabitName, ev.DayKey)
		}
		return fmt.Sprintf("%s completed %s on %s", ui.IconDone, ev.HabitName, ev.DayKey)
	case *engine.LevelUp:
		return fmt.Sprintf("%s level %d → %d", ui.IconBolt, ev.From, ev.To)
	case *engine.BadgeEarned:
		return fmt.Sprintf("%s earned %s (+%d XP)", ui.IconTrophy, ev.Name, ev.XPReward)
	case *engine.HeartLost:
		if ev.Penalty {
			return fmt.Sprintf("%s out of hearts, level now %d", ui.IconBroken, ev.LevelAfter)
		}
		return fmt.Sprintf("%s lost a heart (%d left)", ui.IconBroken, ev.HeartsAfter)
	case *engine.StreakFreezeConsumed:
		return fmt.Sprintf("%s streak freeze used (%d left)", ui.IconFreeze, ev.Remaining)
	default:
		return string(e.Type())
	}
}
