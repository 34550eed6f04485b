package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"habitforge/internal/catalog"
	"habitforge/internal/ui"
)

func newBadgesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "badges",
		Short: "Show the badge catalog and which badges you hold",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			board, err := a.svc.BadgeBoard(ctx, a.user)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, ui.Heading(ui.IconTrophy, "Badges"))
			for _, b := range board {
				icon := b.Icon
				if icon == "" {
					icon = ui.IconBadge
				}
				cond := ""
				if b.Condition != nil {
					cond = fmt.Sprintf("%s ≥ %d", b.Condition.Kind(), b.Condition.Threshold())
				}
				state := ui.Muted.Render("locked")
				if b.Earned {
					state = ui.Good.Render("earned")
				}
				fmt.Fprintf(w, "%s %-18s %-8s %s %s\n", icon, b.Name, state, ui.Muted.Render(cond), ui.Muted.Render(fmt.Sprintf("+%d XP", b.XPReward)))
			}
			return nil
		},
	}

	cmd.AddCommand(newBadgesImportCmd())
	return cmd
}

func newBadgesImportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <catalog.yaml>",
		Short: "Replace the stored badge catalog with a YAML file",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("catalog file is required")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if a.badges == nil {
				return errNeedsSQLite
			}
			n, err := catalog.Import(ctx, a.badges, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d badges from %s\n", ui.Good.Render(ui.IconDone+" Imported"), n, args[0])
			return nil
		},
	}

	return cmd
}

func newAwardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "award",
		Short: "Re-check badge conditions and grant anything newly earned",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openSession(ctx, cmd.OutOrStdout())
			if err != nil {
				return err
			}
			defer cleanup()

			res, err := a.svc.AwardBadges(ctx, a.user)
			if err != nil {
				return err
			}
			if len(res.Earned) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("No new badges."))
				return nil
			}
			printAward(cmd.OutOrStdout(), res)
			return nil
		},
	}

	return cmd
}
