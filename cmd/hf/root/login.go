package root

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"habitforge/internal/engine"
	"habitforge/internal/model"
	"habitforge/internal/ui"
)

func newLoginCmd() *cobra.Command {
	var name, email, photo string

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Run the daily check-in (hearts and streak freezes)",
		Long: `Run the once-per-day vitality check.

Missing more than one day costs a heart unless a streak freeze is in the
inventory. Losing the last heart drops a level and refills hearts. Running
it again on the same day changes nothing.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			var profile *model.Profile
			if name != "" || email != "" || photo != "" {
				profile = &model.Profile{DisplayName: name, Email: email, PhotoURL: photo}
			}
			res, err := a.svc.DailyLogin(ctx, a.user, profile)
			if err != nil {
				return err
			}

			printCheckIn(cmd.OutOrStdout(), res, a.svc.Rules().MaxHearts, false)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Display name")
	cmd.Flags().StringVar(&email, "email", "", "Email")
	cmd.Flags().StringVar(&photo, "photo", "", "Photo URL")
	return cmd
}

// printCheckIn reports a check-in result. quiet prints only what the
// check-in cost, for commands that run it implicitly.
func printCheckIn(w io.Writer, res *engine.LoginResult, maxHearts int, quiet bool) {
	p := res.Progress
	switch {
	case res.PenaltyApplied:
		fmt.Fprintf(w, "%s %s\n", ui.Bad.Render(ui.IconBroken+" Out of hearts."), fmt.Sprintf("Level dropped to %d, hearts refilled.", p.Level))
	case res.HeartLost:
		fmt.Fprintf(w, "%s %s\n", ui.Warn.Render(ui.IconBroken+" Lost a heart"), ui.Muted.Render(fmt.Sprintf("(away %d days)", res.ElapsedDays)))
	case res.FreezeConsumed:
		fmt.Fprintf(w, "%s %s\n", ui.H2.Render(ui.IconFreeze+" Streak freeze used"), ui.Muted.Render(fmt.Sprintf("(away %d days)", res.ElapsedDays)))
	case quiet:
		return
	case res.AlreadyProcessed:
		fmt.Fprintln(w, ui.Muted.Render("Already checked in today."))
	case res.FirstLogin:
		fmt.Fprintln(w, ui.Heading(ui.IconSparkle, "Welcome to habitforge"))
	default:
		fmt.Fprintln(w, ui.Good.Render(ui.IconDone+" Checked in."))
	}
	fmt.Fprintln(w, ui.LabelValue("Hearts", ui.Hearts(p.Hearts, maxHearts)))
}
