// Package ledger implements the envelope-budgeting model: a Partition of named
// boxes holding integer amounts, savings goals and recurring draws attached to
// those boxes, and the operations that move money between them.
//
// Every operation validates its arguments before touching state, so a failed
// call leaves the Partition exactly as it was. Money only enters through
// Deposit and only leaves through cash spends and Withdraw; everything else
// moves it between boxes, which keeps
//
//	sum(box amounts) + Spent == Deposited
//
// true after every call.
package ledger

import (
	"fmt"
	"sort"
)

// Partition is the aggregate root of the ledger.
type Partition struct {
	order     []string
	balances  map[string]int64
	goals     map[string]Goal
	recurring map[string]Recurring
	totals    Totals
}

// New returns an empty Partition holding only the reserved boxes.
func New() *Partition {
	return &Partition{
		order:     []string{FreeBox, CreditSpentBox},
		balances:  map[string]int64{FreeBox: 0, CreditSpentBox: 0},
		goals:     make(map[string]Goal),
		recurring: make(map[string]Recurring),
	}
}

// Restore rebuilds a Partition from stored state. Missing reserved boxes are
// added with a zero balance. When totals is nil the deposited total is taken
// to be the current sum of all boxes, which is how state written before totals
// were tracked is read back.
func Restore(boxes []Box, goals map[string]Goal, recurring map[string]Recurring, totals *Totals) (*Partition, error) {
	const op = "restore"
	p := New()
	p.order = p.order[:0]
	delete(p.balances, FreeBox)
	delete(p.balances, CreditSpentBox)

	for _, b := range boxes {
		if err := ValidateBoxName(b.Name); err != nil {
			return nil, opErr(op, b.Name, err)
		}
		if _, dup := p.balances[b.Name]; dup {
			return nil, opErr(op, b.Name, ErrDuplicateBox)
		}
		if b.Amount < 0 && !IsReserved(b.Name) {
			return nil, opErr(op, b.Name, ErrNegativeAmount)
		}
		p.order = append(p.order, b.Name)
		p.balances[b.Name] = b.Amount
	}
	for _, name := range []string{CreditSpentBox, FreeBox} {
		if _, ok := p.balances[name]; !ok {
			p.order = append([]string{name}, p.order...)
			p.balances[name] = 0
		}
	}

	for name, g := range goals {
		if _, ok := p.balances[name]; !ok {
			return nil, opErr(op, name, fmt.Errorf("goal: %w", ErrUnknownBox))
		}
		if err := g.Validate(); err != nil {
			return nil, opErr(op, name, err)
		}
		p.goals[name] = g
	}
	for name, r := range recurring {
		if _, ok := p.balances[name]; !ok {
			return nil, opErr(op, name, fmt.Errorf("recurring: %w", ErrUnknownBox))
		}
		if r.Kind == "" {
			r.Kind = Allocation
		}
		if err := r.Validate(); err != nil {
			return nil, opErr(op, name, err)
		}
		p.recurring[name] = r
	}

	sum := p.Total()
	if totals == nil {
		p.totals = Totals{Deposited: sum}
		return p, nil
	}
	if sum+totals.Spent != totals.Deposited {
		return nil, opErr(op, "", fmt.Errorf("%w: balances %d plus spent %d do not match deposited %d",
			ErrInvalidArgument, sum, totals.Spent, totals.Deposited))
	}
	p.totals = *totals
	return p, nil
}

// Clone returns a deep copy.
func (p *Partition) Clone() *Partition {
	c := &Partition{
		order:     append([]string(nil), p.order...),
		balances:  make(map[string]int64, len(p.balances)),
		goals:     make(map[string]Goal, len(p.goals)),
		recurring: make(map[string]Recurring, len(p.recurring)),
		totals:    p.totals,
	}
	for k, v := range p.balances {
		c.balances[k] = v
	}
	for k, v := range p.goals {
		c.goals[k] = v
	}
	for k, v := range p.recurring {
		c.recurring[k] = v
	}
	return c
}

// Has reports whether a box exists.
func (p *Partition) Has(name string) bool {
	_, ok := p.balances[name]
	return ok
}

// Balance returns the amount held by a box.
func (p *Partition) Balance(name string) (int64, bool) {
	v, ok := p.balances[name]
	return v, ok
}

// Boxes returns all boxes in creation order.
func (p *Partition) Boxes() []Box {
	out := make([]Box, 0, len(p.order))
	for _, name := range p.order {
		out = append(out, Box{Name: name, Amount: p.balances[name]})
	}
	return out
}

// Total returns the sum of all boxes.
func (p *Partition) Total() int64 {
	var sum int64
	for _, v := range p.balances {
		sum += v
	}
	return sum
}

func (p *Partition) Totals() Totals { return p.totals }

// Goal returns the goal attached to a box.
func (p *Partition) Goal(name string) (Goal, bool) {
	g, ok := p.goals[name]
	return g, ok
}

// Recurring returns the recurring entry attached to a box.
func (p *Partition) Recurring(name string) (Recurring, bool) {
	r, ok := p.recurring[name]
	return r, ok
}

// GoalNames returns the names of boxes with a goal, in box order.
func (p *Partition) GoalNames() []string {
	return p.namesIn(func(name string) bool { _, ok := p.goals[name]; return ok })
}

// RecurringNames returns the names of boxes with a recurring entry, in box
// order.
func (p *Partition) RecurringNames() []string {
	return p.namesIn(func(name string) bool { _, ok := p.recurring[name]; return ok })
}

func (p *Partition) namesIn(keep func(string) bool) []string {
	var out []string
	for _, name := range p.order {
		if keep(name) {
			out = append(out, name)
		}
	}
	return out
}

// GoalMonthlyNeed returns how much the box should receive this period to
// reach its goal on time. Goals already reached need nothing; goals due this
// period or earlier need the whole gap.
func (p *Partition) GoalMonthlyNeed(name string, now Period) int64 {
	g, ok := p.goals[name]
	if !ok {
		return 0
	}
	gap := g.Target - p.balances[name]
	if gap <= 0 {
		return 0
	}
	months := now.MonthsUntil(g.Due)
	if months <= 0 {
		return gap
	}
	need := gap / int64(months)
	if need == 0 {
		need = 1
	}
	return need
}

// MonthsLeft returns how many more rollovers a recurring entry will draw, or
// -1 when it never ends.
func (p *Partition) MonthsLeft(name string) int {
	r, ok := p.recurring[name]
	if !ok {
		return 0
	}
	if r.Periodic == 0 || (r.Remaining == 0 && r.Kind == Allocation) {
		return -1
	}
	left := int((r.Remaining + r.Periodic - 1) / r.Periodic)
	if r.Kind == Instalment {
		left++
	}
	return left
}

// ReservedAmount sums the balances of goal boxes whose goal falls due at
// least months periods after now. That money is locked away for the long
// term and should not be counted as available.
func (p *Partition) ReservedAmount(now Period, months int) int64 {
	var sum int64
	for _, name := range p.GoalNames() {
		if now.MonthsUntil(p.goals[name].Due) < months {
			continue
		}
		if bal := p.balances[name]; bal > 0 {
			sum += bal
		}
	}
	return sum
}

// sortedRecurring returns recurring entries of one kind ordered by less.
func (p *Partition) sortedRecurring(kind RecurringKind, less func(a, b string) bool) []string {
	var names []string
	for name, r := range p.recurring {
		if r.Kind == kind {
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return less(names[i], names[j]) })
	return names
}
