package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"budget/internal/ledger"
	"budget/internal/sheets/google"
)

func newSummaryCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Show balances, targets and recurring deposits",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.read(cmd)
			if err != nil {
				return err
			}
			printSummary(a.out, p, a.now())
			return nil
		},
	}
}

func newToJSONCmd(a *app) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "to-json",
		Short: "Export the ledger as JSON",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			p, err := a.read(cmd)
			if err != nil {
				return err
			}
			data, err := json.MarshalIndent(p.Snapshot(), "", "  ")
			if err != nil {
				return fmt.Errorf("encode snapshot: %w", err)
			}
			data = append(data, '\n')

			if output == "" || output == "-" {
				_, err = a.out.Write(data)
				return err
			}
			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", output, err)
			}
			a.printf("Exported ledger to %s.\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "-", "destination file, - for standard output")
	return cmd
}

func newFromJSONCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "from-json <file>",
		Short: "Replace the ledger with a JSON export",
		Long: `Replace the ledger with a JSON export written by to-json. Balances may be
given either as {"amount": n} or as bare integers. Use - to read standard
input. The ledger is created when it does not exist yet.`,
		Args: usageArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if src := args[0]; src != "-" {
				f, err := os.Open(src)
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			var snap ledger.Snapshot
			dec := json.NewDecoder(r)
			dec.DisallowUnknownFields()
			if err := dec.Decode(&snap); err != nil {
				return fmt.Errorf("%w: decode snapshot: %v", ledger.ErrInvalidArgument, err)
			}
			if err := a.service().Import(cmd.Context(), snap); err != nil {
				return err
			}
			a.printf("Imported %d boxes from %s.\n", len(snap.Partition), args[0])
			return nil
		},
	}
}

func newExportSheetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export-sheet",
		Short: "Write balances, goals and recurring deposits to a Google spreadsheet",
		Long: `Write balances, goals and recurring deposits to the Balances, Goals and
Periodic sheets of GOOGLE_SPREADSHEET_ID, replacing their contents. A service
account is read from GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
or GOOGLE_APPLICATION_CREDENTIALS.`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.cfg.ValidateSheetsExport(); err != nil {
				return err
			}
			client, err := google.New(cmd.Context(), google.Options{
				SpreadsheetID:      a.cfg.GoogleSpreadsheetID,
				ServiceAccountJSON: a.cfg.GoogleServiceAccountJSON,
				ServiceAccountFile: a.cfg.GoogleServiceAccountFile,
			})
			if err != nil {
				return err
			}
			if err := a.service().Export(cmd.Context(), client, a.now()); err != nil {
				return err
			}
			a.printf("Exported ledger to spreadsheet %s.\n", a.cfg.GoogleSpreadsheetID)
			return nil
		},
	}
}
