package main

import (
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/spf13/cobra"

	"budget/internal/backend"
	"budget/internal/cli"
	"budget/internal/config"
	"budget/internal/ledger"
	"budget/internal/log"
	"budget/internal/services"
)

// app carries what every command needs once the root pre-run has finished.
type app struct {
	out     io.Writer
	factory backend.Factory
	now     func() ledger.Period

	// global flags
	dbDir       string
	backendName string

	cfg    *config.Config
	logger *log.Logger
	result *backend.BackendResult
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "budget",
		Short: "Envelope budgeting ledger",
		Long: `budget splits money into named boxes. Deposits land in the free box,
monthly deposits fund recurring allocations and charge instalments, and the
planner suggests how to spread free money across open goals.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error { return usageError{err} })

	root.PersistentFlags().StringVar(&a.dbDir, "db-dir", "", "directory holding the ledger (overrides BUDGET_DB_DIR)")
	root.PersistentFlags().StringVar(&a.backendName, "backend", "",
		fmt.Sprintf("storage backend, one of %v (overrides BUDGET_BACKEND)", backend.GetBackendTypeStrings()))

	root.AddCommand(
		// ledger
		newCreateDBCmd(a),
		newSummaryCmd(a),
		newDepositCmd(a),
		newWithdrawCmd(a),
		newSpendCmd(a),
		newAddToBalanceCmd(a),
		newTransferCmd(a),
		newNewBoxCmd(a),
		newNewInstalmentCmd(a),
		// goals and recurring
		newSetTargetCmd(a),
		newRemoveTargetCmd(a),
		newSetRecurringCmd(a),
		newRemoveRecurringCmd(a),
		// planning
		newPlanDepositsCmd(a),
		newPlanAndApplyCmd(a),
		newReservedAmountCmd(a),
		// data
		newToJSONCmd(a),
		newFromJSONCmd(a),
		newExportSheetCmd(a),
	)
	return root
}

// setup loads configuration, applies the global flags and opens the backend.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if err := cli.LoadEnvFile(); err != nil {
		return err
	}

	cfg, err := cli.LoadAndValidateConfig(a.overrides)
	if err != nil {
		return err
	}

	logger, err := cli.SetupLogger(cfg)
	if err != nil {
		return err
	}
	a.cfg, a.logger = cfg, logger
	cmd.SetContext(log.NewContext(cmd.Context(), logger))

	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return err
	}
	factory := a.factory
	if factory == nil {
		factory = backend.NewFactory(logger)
	}
	result, err := factory.CreateBackend(cmd.Context(), bcfg)
	if err != nil {
		return err
	}
	a.result = result

	a.logger.Debug("Command starting",
		log.FieldOperation, cmd.Name(),
		log.FieldBackend, cfg.Backend)
	return nil
}

// overrides applies the global flags on top of the environment.
func (a *app) overrides(cfg *config.Config) {
	if a.dbDir != "" {
		cfg.DBDir = a.dbDir
	}
	if a.backendName != "" {
		cfg.Backend = a.backendName
	}
}

func (a *app) close() error {
	if a.result == nil || a.result.Cleanup == nil {
		return nil
	}
	return a.result.Cleanup()
}

func (a *app) log() *log.Logger {
	if a.logger == nil {
		return log.FromContext(context.Background())
	}
	return a.logger
}

func (a *app) service() *services.LedgerService { return a.result.Service }

func (a *app) execute(cmd *cobra.Command, fn func(*ledger.Partition) error) error {
	return a.service().Execute(cmd.Context(), cmd.Name(), fn)
}

func (a *app) read(cmd *cobra.Command) (*ledger.Partition, error) {
	return a.service().Read(cmd.Context())
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.out, format, args...)
}

// usageArgs marks argument count errors as usage errors.
func usageArgs(check cobra.PositionalArgs) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := check(cmd, args); err != nil {
			return usageError{err}
		}
		return nil
	}
}

// monthFlag registers --month, the period treated as the current one.
func monthFlag(cmd *cobra.Command, month *string) {
	cmd.Flags().StringVar(month, "month", "", "period to plan for as YYYY-MM (default: the current month)")
}

func (a *app) period(month string) (ledger.Period, error) {
	if month == "" {
		return a.now(), nil
	}
	return ledger.ParsePeriod(month)
}

func parseCount(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %q is not a month count", ledger.ErrInvalidArgument, s)
	}
	return n, nil
}
