package root

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"habitforge/internal/ui"
)

func newGrantCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "grant <item>",
		Short: "Add an item (e.g. streak_freeze_1) to the inventory",
		Args: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				return errors.New("item is required")
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

			p, err := a.svc.GrantItem(ctx, a.user, args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s %s\n", ui.Good.Render(ui.IconPlus+" Granted"), args[0], ui.Muted.Render(fmt.Sprintf("(%d items)", len(p.Inventory))))
			return nil
		},
	}

	return cmd
}

func newNormalizeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "normalize",
		Short: "Carry a stored score past the level boundary into levels",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			p, gained, err := a.svc.NormalizeProgress(ctx, a.user)
			if err != nil {
				return err
			}
			if gained == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), ui.Muted.Render("Already normalized."))
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", ui.Good.Render(ui.IconBolt+" Normalized"), ui.LabelValue("Level", fmt.Sprintf("%d (score %d)", p.Level, p.Score)))
			return nil
		},
	}

	return cmd
}

func newResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset level, score and total XP",
		Long: `Reset level, score and total XP to their starting values.

Hearts, inventory, earned badges and habits are kept.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to reset without --yes")
			}
			ctx := context.Background()
			a, cleanup, err := openApp(ctx)
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := a.svc.ResetProgress(ctx, a.user); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), ui.Warn.Render(ui.IconWarn+" Progress reset"))
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the reset")
	return cmd
}
