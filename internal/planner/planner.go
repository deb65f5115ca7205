// Package planner proposes how to spread free money across boxes that have an
// open goal or a recurring allocation, and optionally applies the proposal.
package planner

import (
	"iter"
	"math"
	"slices"
	"sort"

	"budget/internal/ledger"
)

type (
	// Suggestion is the amount a box should receive this period.
	Suggestion struct {
		Box    string
		Amount int64
		Due    ledger.Period
	}

	// Allocation is an amount actually moved from free by Apply.
	Allocation struct {
		Box    string
		Amount int64
	}

	// Options tune a plan. The zero value plans for the current period with
	// the default strategy.
	Options struct {
		Now      ledger.Period
		Skip     []string
		Strategy Strategy
	}
)

func (o Options) now() ledger.Period {
	if o.Now.IsZero() {
		return ledger.CurrentPeriod()
	}
	return o.Now
}

func (o Options) strategy() Strategy {
	if o.Strategy != nil {
		return o.Strategy
	}
	s, _ := Lookup(DefaultStrategy)
	return s
}

// Plan yields box name and suggested amount pairs in strategy order. The
// partition is read when the sequence is ranged over, so every range reflects
// its current state. Plan never modifies p.
func Plan(p *ledger.Partition, opts Options) iter.Seq2[string, int64] {
	return func(yield func(string, int64) bool) {
		for _, s := range Suggestions(p, opts) {
			if !yield(s.Box, s.Amount) {
				return
			}
		}
	}
}

// Suggestions computes the ordered plan.
//
// Goals that are not overdue ask for their monthly need. Recurring
// allocations ask for their next draw and count as due now. Instalment boxes
// are funded up front and never appear. A box with both a goal and an
// allocation gets a single suggestion for the sum.
func Suggestions(p *ledger.Partition, opts Options) []Suggestion {
	now := opts.now()
	byBox := make(map[string]*Suggestion)
	var out []*Suggestion
	add := func(box string, amount int64, due ledger.Period) {
		if s, ok := byBox[box]; ok {
			s.Amount = addSaturating(s.Amount, amount)
			if due.Before(s.Due) {
				s.Due = due
			}
			return
		}
		s := &Suggestion{Box: box, Amount: amount, Due: due}
		byBox[box] = s
		out = append(out, s)
	}

	for _, name := range p.GoalNames() {
		if slices.Contains(opts.Skip, name) {
			continue
		}
		g, _ := p.Goal(name)
		if g.Due.Before(now) {
			continue
		}
		if need := p.GoalMonthlyNeed(name, now); need > 0 {
			add(name, need, g.Due)
		}
	}
	for _, name := range p.RecurringNames() {
		if slices.Contains(opts.Skip, name) {
			continue
		}
		r, _ := p.Recurring(name)
		if r.Kind != ledger.Allocation {
			continue
		}
		if draw := r.Draw(); draw > 0 {
			add(name, draw, now)
		}
	}

	strategy := opts.strategy()
	sort.Slice(out, func(i, j int) bool { return strategy.Less(*out[i], *out[j]) })

	result := make([]Suggestion, len(out))
	for i, s := range out {
		result[i] = *s
	}
	return result
}

// Apply budgets min(amount, free) and walks the plan, moving each box its
// suggestion or whatever is left of the budget. It stops once the budget is
// spent and returns what was moved.
func Apply(p *ledger.Partition, amount int64, opts Options) ([]Allocation, error) {
	const op = "plan-and-apply"
	if amount < 0 {
		return nil, &ledger.OpError{Op: op, Err: ledger.ErrNegativeAmount}
	}
	free, _ := p.Balance(ledger.FreeBox)
	budget := min(amount, max(free, 0))

	var applied []Allocation
	for box, need := range Plan(p, opts) {
		if budget == 0 {
			break
		}
		if need <= 0 {
			continue
		}
		give := min(need, budget)
		if err := p.Transfer(ledger.FreeBox, box, give); err != nil {
			return applied, err
		}
		budget -= give
		applied = append(applied, Allocation{Box: box, Amount: give})
	}
	return applied, nil
}

// addSaturating adds two non-negative amounts, capping at math.MaxInt64.
func addSaturating(a, b int64) int64 {
	if a > math.MaxInt64-b {
		return math.MaxInt64
	}
	return a + b
}
