package main

import (
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"budget/internal/ledger"
	"budget/internal/planner"
)

// planFlags are shared by plan-deposits and plan-and-apply.
type planFlags struct {
	skip     []string
	strategy string
	month    string
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringSliceVar(&f.skip, "skip", nil, "boxes to leave out of the plan")
	cmd.Flags().StringVar(&f.strategy, "strategy", "",
		"ordering of the plan, one of "+strings.Join(planner.Names(), ", ")+" (default from BUDGET_PLAN_STRATEGY)")
	monthFlag(cmd, &f.month)
}

func (a *app) planOptions(f *planFlags) (planner.Options, error) {
	name := f.strategy
	if name == "" {
		name = a.cfg.PlanStrategy
	}
	strategy, err := planner.Lookup(name)
	if err != nil {
		return planner.Options{}, usageError{err}
	}
	now, err := a.period(f.month)
	if err != nil {
		return planner.Options{}, err
	}
	return planner.Options{Now: now, Skip: f.skip, Strategy: strategy}, nil
}

func newPlanDepositsCmd(a *app) *cobra.Command {
	var (
		flags   planFlags
		scaleTo string
	)
	cmd := &cobra.Command{
		Use:   "plan-deposits",
		Short: "Suggest how much each box should receive this month",
		Long: `Suggest how much each box with an open goal or a recurring allocation
should receive this month. Nothing is changed. With --scale-to the
suggestions are scaled proportionally so they add up to the given total.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			opts, err := a.planOptions(&flags)
			if err != nil {
				return err
			}
			p, err := a.read(cmd)
			if err != nil {
				return err
			}

			suggestions := planner.Suggestions(p, opts)
			if scaleTo != "" {
				total, err := ledger.ParseAmount(scaleTo)
				if err != nil {
					return err
				}
				suggestions = planner.ScaleToTotal(suggestions, total)
			}

			st := newStyles(a.out)
			a.printf("%s\n", st.title.Render("Suggested deposits:"))
			var total int64
			for _, s := range suggestions {
				a.printf("%-20s %d\n", s.Box, s.Amount)
				total += s.Amount
			}
			a.printf("\nTotal: %d\n", total)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&scaleTo, "scale-to", "", "scale the suggestions to add up to this amount")
	return cmd
}

func newPlanAndApplyCmd(a *app) *cobra.Command {
	var (
		flags  planFlags
		amount string
	)
	cmd := &cobra.Command{
		Use:   "plan-and-apply --amount <n>",
		Short: "Move up to amount from free into boxes following the plan",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("amount") {
				return usageError{errors.New(`required flag "amount" not set`)}
			}
			n, err := ledger.ParseAmount(amount)
			if err != nil {
				return err
			}
			opts, err := a.planOptions(&flags)
			if err != nil {
				return err
			}

			var (
				applied []planner.Allocation
				free    int64
			)
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				var err error
				applied, err = planner.Apply(p, n, opts)
				free, _ = p.Balance(ledger.FreeBox)
				return err
			}); err != nil {
				return err
			}

			var moved int64
			for _, al := range applied {
				a.printf("Moved %d to %s\n", al.Amount, al.Box)
				moved += al.Amount
			}
			a.printf("Applied %d of %d. New free balance: %d\n", moved, n, free)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&amount, "amount", "", "most money to move out of free (required)")
	return cmd
}

func newReservedAmountCmd(a *app) *cobra.Command {
	var month string
	cmd := &cobra.Command{
		Use:   "reserved-amount [months]",
		Short: "Sum the balances of goals due at least months from now",
		Long: `Sum the balances of goal boxes whose due month is at least months away.
That money is saved for the long term and should not be counted as available.
Without an argument BUDGET_RESERVED_MONTHS is used.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			months := a.cfg.ReservedMonths
			if len(args) == 1 {
				var err error
				if months, err = parseCount(args[0]); err != nil {
					return err
				}
			}
			now, err := a.period(month)
			if err != nil {
				return err
			}
			p, err := a.read(cmd)
			if err != nil {
				return err
			}
			a.printf("%d\n", p.ReservedAmount(now, months))
			return nil
		},
	}
	monthFlag(cmd, &month)
	return cmd
}
