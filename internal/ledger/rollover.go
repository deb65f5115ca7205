package ledger

// Movement is an amount moved for one box during a rollover.
type Movement struct {
	Box    string
	Amount int64
}

// RolloverReport describes what a monthly deposit did.
type RolloverReport struct {
	Monthly    bool
	Deposited  int64
	Charged    []Movement // instalments charged to credit-spent
	Reconciled int64      // credit-spent merged back into free
	Funded     []Movement // allocations moved from free
	Completed  []string   // recurring entries that finished
	Shortfall  int64      // allocation amounts free could not cover
}

// Deposit adds amount to free.
//
// A monthly deposit first charges one instalment from every instalment box,
// then reconciles credit-spent into free, credits the deposit and finally
// funds recurring allocations from free. Allocations closest to completion are
// funded first; open-ended ones come last. When free cannot cover every
// allocation the remaining ones are funded partially or not at all, and the
// applied report is returned together with an error matching
// ErrInsufficientFunds.
//
// A monthly deposit may be zero, which performs the rollover alone.
func (p *Partition) Deposit(amount int64, monthly bool) (RolloverReport, error) {
	const op = "deposit"
	if amount < 0 || (amount == 0 && !monthly) {
		return RolloverReport{}, opErr(op, itoa(amount), ErrNonPositiveAmount)
	}
	if _, err := addAmount(p.balances[FreeBox], amount); err != nil {
		return RolloverReport{}, opErr(op, itoa(amount), err)
	}
	if _, err := addAmount(p.totals.Deposited, amount); err != nil {
		return RolloverReport{}, opErr(op, itoa(amount), err)
	}

	if !monthly {
		p.credit(amount)
		return RolloverReport{Deposited: amount}, nil
	}

	rep := p.rollover(amount)
	if rep.Shortfall > 0 {
		var funded int64
		for _, m := range rep.Funded {
			funded += m.Amount
		}
		return rep, opErr(op, itoa(amount), &FundsError{
			Box:       FreeBox,
			Available: funded,
			Required:  funded + rep.Shortfall,
		})
	}
	return rep, nil
}

func (p *Partition) credit(amount int64) {
	p.balances[FreeBox] += amount
	p.totals.Deposited += amount
}

func (p *Partition) rollover(amount int64) RolloverReport {
	rep := RolloverReport{Monthly: true, Deposited: amount}

	byName := func(a, b string) bool { return a < b }
	for _, name := range p.sortedRecurring(Instalment, byName) {
		r := p.recurring[name]
		if r.Periodic > 0 {
			p.spend(name, r.Periodic, SpendCredit)
			rep.Charged = append(rep.Charged, Movement{Box: name, Amount: r.Periodic})
		}
		if r.Remaining == 0 {
			delete(p.recurring, name)
			rep.Completed = append(rep.Completed, name)
			continue
		}
		r.Remaining -= min(r.Periodic, r.Remaining)
		p.recurring[name] = r
	}

	rep.Reconciled = p.balances[CreditSpentBox]
	p.balances[FreeBox] += rep.Reconciled
	p.balances[CreditSpentBox] = 0

	p.credit(amount)

	closestFirst := func(a, b string) bool {
		ra, rb := p.recurring[a].Remaining, p.recurring[b].Remaining
		switch {
		case ra == rb:
			return a < b
		case ra == 0:
			return false
		case rb == 0:
			return true
		default:
			return ra < rb
		}
	}
	available := max(p.balances[FreeBox], 0)
	for _, name := range p.sortedRecurring(Allocation, closestFirst) {
		r := p.recurring[name]
		draw := r.Draw()
		if draw == 0 {
			continue
		}
		give := min(draw, available)
		rep.Shortfall += draw - give
		if give > 0 {
			available -= give
			p.balances[FreeBox] -= give
			p.balances[name] += give
			rep.Funded = append(rep.Funded, Movement{Box: name, Amount: give})
		}
		if r.Remaining == 0 {
			continue
		}
		r.Remaining -= give
		if r.Remaining == 0 {
			delete(p.recurring, name)
			rep.Completed = append(rep.Completed, name)
			continue
		}
		p.recurring[name] = r
	}
	return rep
}
