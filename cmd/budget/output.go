package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"budget/internal/ledger"
)

// Styles degrade to plain text when the writer is not a terminal.
type styles struct {
	title   lipgloss.Style
	muted   lipgloss.Style
	warning lipgloss.Style
}

func newStyles(w io.Writer) styles {
	r := lipgloss.NewRenderer(w)
	return styles{
		title:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("#20B9B4")),
		muted:   r.NewStyle().Faint(true),
		warning: r.NewStyle().Foreground(lipgloss.Color("#F4D03F")),
	}
}

func heading(w io.Writer, st styles, title string) {
	fmt.Fprintln(w, st.title.Render(title))
	fmt.Fprintln(w, strings.Repeat("=", len(title)))
}

func printSummary(w io.Writer, p *ledger.Partition, now ledger.Period) {
	st := newStyles(w)

	heading(w, st, "Balances:")
	for _, b := range p.Boxes() {
		fmt.Fprintf(w, "%-20s %d\n", b.Name, b.Amount)
	}
	t := p.Totals()
	fmt.Fprintf(w, "\nTotal: %d\n", p.Total())
	fmt.Fprintln(w, st.muted.Render(fmt.Sprintf("Deposited: %d  Spent: %d", t.Deposited, t.Spent)))
	fmt.Fprintln(w)

	heading(w, st, "Targets:")
	for _, name := range p.GoalNames() {
		g, _ := p.Goal(name)
		fmt.Fprintf(w, "%-20s %-10d %-10s %d/month\n", name, g.Target, g.Due, p.GoalMonthlyNeed(name, now))
	}
	fmt.Fprintln(w)

	heading(w, st, "Recurring deposits:")
	for _, name := range p.RecurringNames() {
		r, _ := p.Recurring(name)
		left := "open-ended"
		if n := p.MonthsLeft(name); n >= 0 {
			left = fmt.Sprintf("%d months left", n)
		}
		fmt.Fprintf(w, "%-20s %-10d %-10d %-11s %s\n", name, r.Periodic, r.Remaining, r.Kind, left)
	}
}
