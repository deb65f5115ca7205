package ledger

import "strconv"

// SpendMode selects how a spend leaves the box.
type SpendMode int

const (
	// SpendCredit moves the spent amount into credit-spent; it is reconciled
	// into free by the next monthly deposit.
	SpendCredit SpendMode = iota
	// SpendCash takes the amount out of the ledger immediately.
	SpendCash
)

func (m SpendMode) String() string {
	if m == SpendCash {
		return "cash"
	}
	return "credit"
}

// Withdraw takes money out of free. A zero amount empties free.
func (p *Partition) Withdraw(amount int64) error {
	const op = "withdraw"
	if amount < 0 {
		return opErr(op, itoa(amount), ErrNegativeAmount)
	}
	free := p.balances[FreeBox]
	if amount == 0 {
		if free <= 0 {
			return nil
		}
		amount = free
	}
	if amount > free {
		return opErr(op, itoa(amount), &FundsError{Box: FreeBox, Available: free, Required: amount})
	}
	p.balances[FreeBox] -= amount
	p.totals.Spent += amount
	return nil
}

// Spend uses amount from a box. A zero amount spends the whole balance.
//
// The part the box can cover is moved to credit-spent (SpendCredit) or leaves
// the ledger (SpendCash). Anything beyond the box balance is drawn against
// future income: it moves from free into credit-spent, free may go negative,
// and the box ends at zero.
func (p *Partition) Spend(name string, amount int64, mode SpendMode) error {
	const op = "spend"
	if amount < 0 {
		return opErr(op, itoa(amount), ErrNegativeAmount)
	}
	if name == CreditSpentBox {
		return opErr(op, name, ErrReservedBox)
	}
	bal, ok := p.balances[name]
	if !ok {
		return opErr(op, name, ErrUnknownBox)
	}
	if amount == 0 {
		amount = max(bal, 0)
		if amount == 0 {
			return nil
		}
	}
	p.spend(name, amount, mode)
	return nil
}

func (p *Partition) spend(name string, amount int64, mode SpendMode) {
	covered := min(max(p.balances[name], 0), amount)
	shortfall := amount - covered

	p.balances[name] -= covered
	if mode == SpendCash {
		p.totals.Spent += covered
	} else {
		p.balances[CreditSpentBox] += covered
	}
	if shortfall > 0 {
		p.balances[FreeBox] -= shortfall
		p.balances[CreditSpentBox] += shortfall
	}
}

// AddToBalance moves amount from free into a box.
func (p *Partition) AddToBalance(name string, amount int64) error {
	return p.Transfer(FreeBox, name, amount)
}

// Transfer moves amount between two boxes. The source must hold at least
// amount. Transferring a box to itself changes nothing.
func (p *Partition) Transfer(from, to string, amount int64) error {
	const op = "transfer"
	if amount <= 0 {
		return opErr(op, itoa(amount), ErrNonPositiveAmount)
	}
	bal, ok := p.balances[from]
	if !ok {
		return opErr(op, from, ErrUnknownBox)
	}
	if _, ok := p.balances[to]; !ok {
		return opErr(op, to, ErrUnknownBox)
	}
	if from == to {
		return nil
	}
	if bal < amount {
		return opErr(op, from, &FundsError{Box: from, Available: bal, Required: amount})
	}
	p.balances[from] -= amount
	p.balances[to] += amount
	return nil
}

// NewBox creates an empty box.
func (p *Partition) NewBox(name string) error {
	const op = "new-box"
	if err := p.checkNewName(name); err != nil {
		return opErr(op, name, err)
	}
	p.addBox(name)
	return nil
}

func (p *Partition) checkNewName(name string) error {
	if err := ValidateBoxName(name); err != nil {
		return err
	}
	if _, exists := p.balances[name]; exists {
		return ErrDuplicateBox
	}
	return nil
}

func (p *Partition) addBox(name string) {
	p.order = append(p.order, name)
	p.balances[name] = 0
}

// NewInstalment creates a box for a purchase paid in count instalments of
// per each. The full price is moved from source into the new box, and every
// monthly rollover charges one instalment from it until all are paid.
func (p *Partition) NewInstalment(name, source string, count, per int64) error {
	const op = "new-instalment"
	if count <= 0 {
		return opErr(op, itoa(count), ErrNonPositiveAmount)
	}
	if per <= 0 {
		return opErr(op, itoa(per), ErrNonPositiveAmount)
	}
	price, err := mulAmount(count, per)
	if err != nil {
		return opErr(op, itoa(count)+"x"+itoa(per), err)
	}
	if err := p.checkNewName(name); err != nil {
		return opErr(op, name, err)
	}
	bal, ok := p.balances[source]
	if !ok {
		return opErr(op, source, ErrUnknownBox)
	}
	if bal < price {
		return opErr(op, source, &FundsError{Box: source, Available: bal, Required: price})
	}

	p.addBox(name)
	p.balances[source] -= price
	p.balances[name] += price
	p.recurring[name] = Recurring{Periodic: per, Remaining: price - per, Kind: Instalment}
	return nil
}

// SetTarget attaches or replaces the goal of a box.
func (p *Partition) SetTarget(name string, target int64, due Period) error {
	const op = "set-target"
	if _, ok := p.balances[name]; !ok {
		return opErr(op, name, ErrUnknownBox)
	}
	g := Goal{Target: target, Due: due}
	if err := g.Validate(); err != nil {
		value := itoa(target)
		if target > 0 {
			value = due.String()
		}
		return opErr(op, value, err)
	}
	p.goals[name] = g
	return nil
}

// RemoveTarget drops the goal of a box. Boxes without a goal are left alone.
func (p *Partition) RemoveTarget(name string) {
	delete(p.goals, name)
}

// SetRecurring attaches or replaces a recurring allocation. A zero remaining
// amount means the allocation never ends.
func (p *Partition) SetRecurring(name string, periodic, remaining int64) error {
	const op = "set-recurring"
	if _, ok := p.balances[name]; !ok {
		return opErr(op, name, ErrUnknownBox)
	}
	r := Recurring{Periodic: periodic, Remaining: remaining, Kind: Allocation}
	if err := r.Validate(); err != nil {
		return opErr(op, itoa(min(periodic, remaining)), err)
	}
	p.recurring[name] = r
	return nil
}

// RemoveRecurring drops the recurring entry of a box, if any.
func (p *Partition) RemoveRecurring(name string) {
	delete(p.recurring, name)
}

func itoa(v int64) string { return strconv.FormatInt(v, 10) }
