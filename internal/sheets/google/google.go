package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"budget/internal/ledger"
	"budget/internal/log"
	ports "budget/internal/sheets"
)

// Default sheet names inside the spreadsheet.
const (
	BalancesSheet = "Balances"
	GoalsSheet    = "Goals"
	PeriodicSheet = "Periodic"
)

// Options configure a Client. Credentials are taken from ServiceAccountJSON,
// then ServiceAccountFile, then GOOGLE_APPLICATION_CREDENTIALS.
type Options struct {
	SpreadsheetID      string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	balancesSheet string
	goalsSheet    string
	periodicSheet string
}

var _ ports.SnapshotWriter = (*Client)(nil)

// New creates a Sheets client authenticated with a service account.
func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}

	credentialsJSON, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	return NewWithService(svc, spreadsheetID), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID string) *Client {
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		balancesSheet: BalancesSheet,
		goalsSheet:    GoalsSheet,
		periodicSheet: PeriodicSheet,
	}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(opts.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(opts.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		logger(ctx).DebugContext(ctx, "Using inline JSON credentials")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		logger(ctx).DebugContext(ctx, "Reading credentials from file", log.FieldPath, serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// WriteSnapshot replaces the contents of the three ledger sheets. The sheets
// are written concurrently; the first failure cancels the others.
func (c *Client) WriteSnapshot(ctx context.Context, p *ledger.Partition, now ledger.Period) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	writes := map[string][][]any{
		c.balancesSheet: balanceRows(p),
		c.goalsSheet:    goalRows(p, now),
		c.periodicSheet: periodicRows(p),
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for sheet, rows := range writes {
		g.Go(func() error {
			return c.replaceSheet(gctx, sheet, rows)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	logger(ctx).InfoContext(ctx, "Ledger exported to Google Sheets",
		"spreadsheet_id", c.spreadsheetID,
		log.FieldBoxes, len(p.Boxes()),
		log.FieldDuration, time.Since(start).Milliseconds())
	return nil
}

func logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentSheets)
}

func (c *Client) replaceSheet(ctx context.Context, sheet string, rows [][]any) error {
	_, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, sheet, &gsheet.ClearValuesRequest{}).
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to clear sheet %s: %w", sheet, err)
	}

	rng := fmt.Sprintf("%s!A1", sheet)
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update sheet %s: %w", sheet, err)
	}
	logger(ctx).DebugContext(ctx, "Sheet replaced", log.FieldSheet, sheet, "rows", len(rows))
	return nil
}

func balanceRows(p *ledger.Partition) [][]any {
	rows := [][]any{{"Box", "Amount"}}
	for _, b := range p.Boxes() {
		rows = append(rows, []any{b.Name, b.Amount})
	}
	t := p.Totals()
	rows = append(rows,
		[]any{},
		[]any{"Total", p.Total()},
		[]any{"Deposited", t.Deposited},
		[]any{"Spent", t.Spent},
	)
	return rows
}

func goalRows(p *ledger.Partition, now ledger.Period) [][]any {
	rows := [][]any{{"Box", "Goal", "Due", "Balance", "Monthly need"}}
	for _, name := range p.GoalNames() {
		g, _ := p.Goal(name)
		bal, _ := p.Balance(name)
		rows = append(rows, []any{name, g.Target, g.Due.String(), bal, p.GoalMonthlyNeed(name, now)})
	}
	return rows
}

func periodicRows(p *ledger.Partition) [][]any {
	rows := [][]any{{"Box", "Amount", "Remaining", "Kind", "Months left"}}
	for _, name := range p.RecurringNames() {
		r, _ := p.Recurring(name)
		var left any = "open-ended"
		if n := p.MonthsLeft(name); n >= 0 {
			left = n
		}
		rows = append(rows, []any{name, r.Periodic, r.Remaining, string(r.Kind), left})
	}
	return rows
}
