package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"budget/internal/ledger"
	"budget/internal/services"
)

func newCreateDBCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "create-db",
		Short: "Create an empty ledger holding only free and credit-spent",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.service().Init(cmd.Context()); err != nil {
				return err
			}
			if s, ok := a.result.Store.(interface{ Path() string }); ok {
				a.printf("Created ledger at %s\n", s.Path())
				return nil
			}
			a.printf("Created ledger (%s backend)\n", a.cfg.Backend)
			return nil
		},
	}
}

func newDepositCmd(a *app) *cobra.Command {
	var monthly, noMonthly bool
	cmd := &cobra.Command{
		Use:   "deposit <amount>",
		Short: "Add money to free; a monthly deposit also runs the rollover",
		Long: `Add money to free.

A monthly deposit (the default) first charges one instalment from every
instalment box, merges credit-spent back into free, credits the amount and
then funds recurring allocations from free. A monthly deposit of 0 runs the
rollover alone.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if noMonthly && cmd.Flags().Changed("monthly") {
				return usageError{errors.New("--monthly and --no-monthly cannot be used together")}
			}
			amount, err := ledger.ParseAmount(args[0])
			if err != nil {
				return err
			}

			var (
				rep     ledger.RolloverReport
				free    int64
				applied bool
			)
			err = a.execute(cmd, func(p *ledger.Partition) error {
				var err error
				rep, err = p.Deposit(amount, monthly && !noMonthly)
				if err != nil && !rep.Monthly {
					return err
				}
				applied = true
				free, _ = p.Balance(ledger.FreeBox)
				return services.Applied(err)
			})
			if applied {
				a.printRollover(rep, free)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&monthly, "monthly", true, "run the monthly rollover")
	cmd.Flags().BoolVar(&noMonthly, "no-monthly", false, "only credit free")
	return cmd
}

func newWithdrawCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "withdraw [amount]",
		Short: "Take money out of free; without an amount free is emptied",
		Args:  usageArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			amount, err := optionalAmount(args, 0)
			if err != nil {
				return err
			}
			var free int64
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				before, _ := p.Balance(ledger.FreeBox)
				if err := p.Withdraw(amount); err != nil {
					return err
				}
				free, _ = p.Balance(ledger.FreeBox)
				amount = before - free
				return nil
			}); err != nil {
				return err
			}
			a.printf("Withdrew %d. New free balance: %d\n", amount, free)
			return nil
		},
	}
}

func newSpendCmd(a *app) *cobra.Command {
	var useCash bool
	cmd := &cobra.Command{
		Use:   "spend <box> [amount]",
		Short: "Spend from a box; without an amount the whole balance is spent",
		Long: `Spend from a box.

By default the spend is paid by credit: the amount moves to credit-spent and
is merged back into free by the next monthly deposit. With --use-cash the
money leaves the ledger immediately. Spending more than the box holds draws
the difference from free.`,
		Args: usageArgs(cobra.RangeArgs(1, 2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			amount, err := optionalAmount(args, 1)
			if err != nil {
				return err
			}
			mode := ledger.SpendCredit
			if useCash {
				mode = ledger.SpendCash
			}

			var balance int64
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				if amount == 0 {
					bal, _ := p.Balance(box)
					amount = max(bal, 0)
				}
				if err := p.Spend(box, amount, mode); err != nil {
					return err
				}
				balance, _ = p.Balance(box)
				return nil
			}); err != nil {
				return err
			}
			a.printf("Spent %d from %s (%s). New balance: %d\n", amount, box, mode, balance)
			return nil
		},
	}
	cmd.Flags().BoolVar(&useCash, "use-cash", false, "pay in cash instead of credit")
	return cmd
}

func newAddToBalanceCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "add-to-balance <box> <amount>",
		Short: "Move money from free into a box",
		Args:  usageArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			box := args[0]
			amount, err := ledger.ParsePositiveAmount(args[1])
			if err != nil {
				return err
			}
			var balance int64
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				if err := p.AddToBalance(box, amount); err != nil {
					return err
				}
				balance, _ = p.Balance(box)
				return nil
			}); err != nil {
				return err
			}
			a.printf("Added %d to %s. New balance: %d\n", amount, box, balance)
			return nil
		},
	}
}

func newTransferCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "transfer-between-balances <from> <to> <amount>",
		Short: "Move money between two boxes",
		Args:  usageArgs(cobra.ExactArgs(3)),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, to := args[0], args[1]
			amount, err := ledger.ParsePositiveAmount(args[2])
			if err != nil {
				return err
			}
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				return p.Transfer(from, to, amount)
			}); err != nil {
				return err
			}
			a.printf("Transferred %d from %s to %s.\n", amount, from, to)
			return nil
		},
	}
}

func newNewBoxCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new-box <name>",
		Short: "Create an empty box",
		Args:  usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				return p.NewBox(name)
			}); err != nil {
				return err
			}
			a.printf("Created new box '%s'\n", name)
			return nil
		},
	}
}

func newNewInstalmentCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "new-instalment <name> <source> <count> <amount>",
		Short: "Fund a purchase paid in instalments from a source box",
		Long: `Create a box holding count x amount, taken from source. Every monthly
deposit charges one instalment from it until all are paid.`,
		Args: usageArgs(cobra.ExactArgs(4)),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, source := args[0], args[1]
			count, err := ledger.ParsePositiveAmount(args[2])
			if err != nil {
				return err
			}
			per, err := ledger.ParsePositiveAmount(args[3])
			if err != nil {
				return err
			}
			if err := a.execute(cmd, func(p *ledger.Partition) error {
				return p.NewInstalment(name, source, count, per)
			}); err != nil {
				return err
			}
			a.printf("Created instalment box '%s': %d x %d from %s\n", name, count, per, source)
			return nil
		},
	}
}

// optionalAmount parses args[i] as a positive amount, or returns 0 when the
// argument was left out.
func optionalAmount(args []string, i int) (int64, error) {
	if len(args) <= i {
		return 0, nil
	}
	return ledger.ParsePositiveAmount(args[i])
}

func (a *app) printRollover(rep ledger.RolloverReport, free int64) {
	st := newStyles(a.out)
	for _, m := range rep.Charged {
		a.printf("Charged instalment %s: %d\n", m.Box, m.Amount)
	}
	if rep.Reconciled != 0 {
		a.printf("Merged %d from credit-spent into free\n", rep.Reconciled)
	}
	a.printf("Deposited %d.\n", rep.Deposited)
	for _, m := range rep.Funded {
		a.printf("Funded %s: %d\n", m.Box, m.Amount)
	}
	for _, name := range rep.Completed {
		a.printf("Completed %s\n", name)
	}
	if rep.Shortfall > 0 {
		a.printf("%s\n", st.warning.Render(fmt.Sprintf("Shortfall: %d could not be funded", rep.Shortfall)))
	}
	a.printf("New free balance: %d\n", free)
}
