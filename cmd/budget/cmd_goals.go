package main

import (
	"github.com/spf13/cobra"

	"budget/internal/ledger"
)

func newSetTargetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-target <box> <amount> <YYYY-MM>",
		Short: "Set the amount a box should hold by a due month",
		Args:  usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			target, err := ledger.ParsePositiveAmount(args[1])
			if err != nil {
				return err
			}
			due, err := ledger.ParsePeriod(args[2])
			if err != nil {
				return err
			}
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				return p.SetTarget(box, target, due)
			}); err != nil {
				return err
			}
			a.printf("Set target for %s: %d by %s\n", box, target, due)
			return nil
		},
	}
}

func newRemoveTargetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-target <box>",
		Short: "Drop the goal of a box",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				p.RemoveTarget(box)
				return nil
			}); err != nil {
				return err
			}
			a.printf("Removed target for box '%s'\n", box)
			return nil
		},
	}
}

func newSetRecurringCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "set-recurring <box> <amount> [remaining]",
		Short: "Fund a box with amount on every monthly deposit",
		Long: `Fund a box with amount on every monthly deposit until remaining has been
moved. A remaining of 0, the default, never ends.`,
		Args: usageArgs(cobra.RangeArgs(2, 3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			periodic, err := ledger.ParseAmount(args[1])
			if err != nil {
				return err
			}
			var remaining int64
			if len(args) == 3 {
				if remaining, err = ledger.ParseAmount(args[2]); err != nil {
					return err
				}
			}
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				return p.SetRecurring(box, periodic, remaining)
			}); err != nil {
				return err
			}
			if remaining == 0 {
				a.printf("Set recurring for %s: %d monthly\n", box, periodic)
			} else {
				a.printf("Set recurring for %s: %d monthly towards %d\n", box, periodic, remaining)
			}
			return nil
		},
	}
}

func newRemoveRecurringCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "remove-recurring <box>",
		Short: "Stop funding a box on monthly deposits",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				p.RemoveRecurring(box)
				return nil
			}); err != nil {
				return err
			}
			a.printf("Removed recurring for box '%s'\n", box)
			return nil
		},
	}
}
