package ledger

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Snapshot is the exported form of a Partition.
type Snapshot struct {
	Partition map[string]BoxSnapshot      `json:"partition"`
	Goals     map[string]GoalSnapshot     `json:"goals"`
	Periodic  map[string]PeriodicSnapshot `json:"periodic"`
	Totals    *TotalsSnapshot             `json:"totals,omitempty"`
}

type BoxSnapshot struct {
	Amount int64 `json:"amount"`
}

// UnmarshalJSON also accepts a bare integer, the layout older exports used.
func (b *BoxSnapshot) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] != '{' {
		return json.Unmarshal(data, &b.Amount)
	}
	type plain BoxSnapshot
	return json.Unmarshal(data, (*plain)(b))
}

type GoalSnapshot struct {
	Goal int64  `json:"goal"`
	Due  string `json:"due"`
}

type PeriodicSnapshot struct {
	Amount int64         `json:"amount"`
	Target int64         `json:"target"`
	Kind   RecurringKind `json:"kind,omitempty"`
}

type TotalsSnapshot struct {
	Deposited int64 `json:"deposited"`
	Spent     int64 `json:"spent"`
}

// Snapshot exports the partition.
func (p *Partition) Snapshot() Snapshot {
	s := Snapshot{
		Partition: make(map[string]BoxSnapshot, len(p.balances)),
		Goals:     make(map[string]GoalSnapshot, len(p.goals)),
		Periodic:  make(map[string]PeriodicSnapshot, len(p.recurring)),
		Totals:    &TotalsSnapshot{Deposited: p.totals.Deposited, Spent: p.totals.Spent},
	}
	for name, amount := range p.balances {
		s.Partition[name] = BoxSnapshot{Amount: amount}
	}
	for name, g := range p.goals {
		s.Goals[name] = GoalSnapshot{Goal: g.Target, Due: g.Due.String()}
	}
	for name, r := range p.recurring {
		ps := PeriodicSnapshot{Amount: r.Periodic, Target: r.Remaining}
		if r.Kind == Instalment {
			ps.Kind = Instalment
		}
		s.Periodic[name] = ps
	}
	return s
}

// FromSnapshot rebuilds a Partition from an exported snapshot. Box order is
// not part of the snapshot; the reserved boxes come first and the rest follow
// by name.
func FromSnapshot(s Snapshot) (*Partition, error) {
	names := make([]string, 0, len(s.Partition))
	for name := range s.Partition {
		if !IsReserved(name) {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	boxes := []Box{
		{Name: FreeBox, Amount: s.Partition[FreeBox].Amount},
		{Name: CreditSpentBox, Amount: s.Partition[CreditSpentBox].Amount},
	}
	for _, name := range names {
		boxes = append(boxes, Box{Name: name, Amount: s.Partition[name].Amount})
	}

	goals := make(map[string]Goal, len(s.Goals))
	for name, g := range s.Goals {
		due, err := ParsePeriod(g.Due)
		if err != nil {
			return nil, opErr("import", name, fmt.Errorf("goal due %q: %w", g.Due, err))
		}
		goals[name] = Goal{Target: g.Goal, Due: due}
	}

	recurring := make(map[string]Recurring, len(s.Periodic))
	for name, ps := range s.Periodic {
		kind := ps.Kind
		if kind == "" {
			kind = Allocation
		}
		recurring[name] = Recurring{Periodic: ps.Amount, Remaining: ps.Target, Kind: kind}
	}

	var totals *Totals
	if s.Totals != nil {
		totals = &Totals{Deposited: s.Totals.Deposited, Spent: s.Totals.Spent}
	}
	return Restore(boxes, goals, recurring, totals)
}
