package root

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"habitforge/internal/dates"
	"habitforge/internal/engine"
	"habitforge/internal/ui"
)

func newHabitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habit",
		Short: "Create, list and archive habits",
	}
	cmd.AddCommand(newHabitAddCmd(), newHabitListCmd(), newHabitArchiveCmd())
	return cmd
}

func newHabitAddCmd() *cobra.Command {
	var target int
	var indefinite bool

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a habit",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return errors.New("name is required")
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

			h, err := a.svc.CreateHabit(ctx, a.user, engine.CreateHabitInput{
				Name:         strings.Join(args, " "),
				TargetDays:   target,
				IsIndefinite: indefinite,
			})
			if err != nil {
				return err
			}
			goal := fmt.Sprintf("%d days", h.TargetDays)
			if h.IsIndefinite {
				goal = "open-ended"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render(ui.IconPlus+" Added"), h.Name, ui.Muted.Render(fmt.Sprintf("(%s, %s)", shortID(h.ID), goal)))
			return nil
		},
	}

	cmd.Flags().IntVarP(&target, "target", "t", 0, fmt.Sprintf("Target days (default %d)", engine.DefaultTargetDays))
	cmd.Flags().BoolVar(&indefinite, "indefinite", false, "Keep the habit open-ended")
	return cmd
}

func newHabitListCmd() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List habits with streaks and the last week",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			views, err := a.svc.ListHabits(ctx, a.user, !all)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			if len(views) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no habits)"))
				return nil
			}

			today := a.svc.Today()
			week := make([]string, 0, 7)
			for i := -6; i <= 0; i++ {
				k, err := dates.AddDays(today, i)
				if err != nil {
					return err
				}
				week = append(week, k)
			}

			for _, v := range views {
				var cells strings.Builder
				for _, k := range week {
					cells.WriteString(ui.DayCell(string(engine.DayStateOf(&v.Habit, k, today))))
				}
				goal := "∞"
				if !v.IsIndefinite {
					goal = fmt.Sprintf("%d/%d", len(v.CompletedDates), v.TargetDays)
				}
				fmt.Fprintf(w, "%s %s %-24s %-7s %s %s\n",
					ui.Muted.Render(shortID(v.ID)), cells.String(), v.Name, goal, ui.Streak(v.Streak), ui.StatusText(string(v.Status)))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "Include archived habits")
	return cmd
}

func newHabitArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive <habit>",
		Short: "Archive a habit once its goal is met",
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
			if _, err := a.svc.ArchiveHabit(ctx, a.user, h.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render(ui.IconFlag+" Archived"), h.Name)
			return nil
		},
	}

	return cmd
}
