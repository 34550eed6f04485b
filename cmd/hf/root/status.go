package root

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"habitforge/internal/ui"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show level, hearts, badges and today's habits",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			p, err := a.svc.Progress(ctx, a.user)
			if err != nil {
				return err
			}
			rules := a.svc.Rules()
			w := cmd.OutOrStdout()

			name := p.Profile.DisplayName
			if name == "" {
				name = p.UserID
			}
			fmt.Fprintln(w, ui.Heading(ui.IconSparkle, name))
			fmt.Fprintln(w, ui.LabelValue("Level", p.Level))
			fmt.Fprintln(w, ui.LabelValue("Score", fmt.Sprintf("%s %d/%d", ui.ProgressBar(p.Score, rules.PointsPerLevel, 20), p.Score, rules.PointsPerLevel)))
			fmt.Fprintln(w, ui.LabelValue("Total XP", p.TotalXP))
			fmt.Fprintln(w, ui.LabelValue("Hearts", ui.Hearts(p.Hearts, rules.MaxHearts)))
			if p.LastLoginDayKey != nil {
				fmt.Fprintln(w, ui.LabelValue("Last check-in", *p.LastLoginDayKey))
			}
			if len(p.Inventory) > 0 {
				fmt.Fprintln(w, ui.LabelValue("Inventory", strings.Join(p.Inventory, ", ")))
			}
			fmt.Fprintln(w, ui.LabelValue("Badges", len(p.EarnedBadges)))
			fmt.Fprintln(w, "")

			views, err := a.svc.ListHabits(ctx, a.user, true)
			if err != nil {
				return err
			}
			fmt.Fprintln(w, ui.H2.Render(ui.IconHabit+" Today"))
			if len(views) == 0 {
				fmt.Fprintln(w, ui.Muted.Render("(no active habits)"))
				return nil
			}
			for _, v := range views {
				mark := ui.Muted.Render("○")
				if v.DoneToday {
					mark = ui.Good.Render("●")
				}
				fmt.Fprintf(w, "%s %s %s\n", mark, v.Name, ui.Streak(v.Streak))
			}
			return nil
		},
	}

	return cmd
}
