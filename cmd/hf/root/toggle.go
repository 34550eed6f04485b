package root

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"habitforge/internal/engine"
	"habitforge/internal/ui"
)

func newToggleCmd() *cobra.Command {
	var day string

	cmd := &cobra.Command{
		Use:     "toggle <habit>",
		Aliases: []string{"do"},
		Short:   "Mark or unmark a habit for a day (today by default)",
		Long: `Toggle a habit's completion for one day.

Marking a day earns XP and may level you up; unmarking it takes the same XP
back. A badge check runs after every toggle. <habit> is an id, a unique id
prefix, or the habit name.`,
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("habit is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			h, err := a.svc.FindHabit(ctx, a.user, args[0])
			if err != nil {
				return err
			}
			out, err := a.svc.ToggleHabit(ctx, a.user, h.ID, day)
			if out != nil {
				printToggle(cmd.OutOrStdout(), h.Name, out)
			}
			return err
		},
	}

	cmd.Flags().StringVarP(&day, "day", "d", "", "Day to toggle as YYYY-MM-DD (default today)")
	return cmd
}

func printToggle(w io.Writer, name string, out *engine.ToggleOutcome) {
	t := out.Toggle
	if t.WasCompleted {
		fmt.Fprintf(w, "%s %s %s\n", ui.Warn.Render(ui.IconUndo+" Unmarked"), name, ui.Muted.Render(fmt.Sprintf("(%s, %d XP)", t.DayKey, t.Delta)))
	} else {
		fmt.Fprintf(w, "%s %s %s\n", ui.Good.Render(ui.IconDone+" Done"), name, ui.Muted.Render(fmt.Sprintf("(%s, +%d XP)", t.DayKey, t.Delta)))
	}
	if t.LevelBefore != t.Progress.Level {
		fmt.Fprintln(w, ui.LabelValue("Level", fmt.Sprintf("%d → %d", t.LevelBefore, t.Progress.Level)))
	}
	if t.LeveledUp {
		fmt.Fprintln(w, ui.BadgeLevelUp)
	}
	if t.GoalReached {
		fmt.Fprintf(w, "%s Goal of %d days reached. Archive it with %s\n", ui.IconFlag, t.Habit.TargetDays,
			ui.Key.Render("hf habit archive "+shortID(t.Habit.ID)))
	}
	if out.Award != nil {
		printAward(w, out.Award)
	}
}

func printAward(w io.Writer, res *engine.AwardResult) {
	for _, b := range res.Earned {
		icon := b.Icon
		if icon == "" {
			icon = ui.IconTrophy
		}
		fmt.Fprintf(w, "%s %s %s\n", icon, ui.Gold.Render("Badge earned: "+b.Name), ui.Muted.Render(fmt.Sprintf("(+%d XP)", b.XPReward)))
	}
	if res.LevelsGained > 0 {
		fmt.Fprintf(w, "%s %s\n", ui.BadgeLevelUp, ui.Muted.Render(fmt.Sprintf("(level %d)", res.Progress.Level)))
	}
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
