package planner

import (
	"fmt"
	"sort"
)

// Strategy orders suggestions. Less must be a strict weak ordering and break
// every tie, so that a plan is reproducible.
type Strategy interface {
	Less(a, b Suggestion) bool
}

// StrategyFunc adapts a plain function to Strategy.
type StrategyFunc func(a, b Suggestion) bool

func (f StrategyFunc) Less(a, b Suggestion) bool { return f(a, b) }

const (
	SteepestRate = "steepest-rate"
	NearestDue   = "nearest-due"
	Alphabetical = "alphabetical"

	DefaultStrategy = SteepestRate
)

// steepestRate funds the largest monthly need first.
func steepestRate(a, b Suggestion) bool {
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	if a.Due != b.Due {
		return a.Due.Before(b.Due)
	}
	return a.Box < b.Box
}

// nearestDue funds whatever falls due first.
func nearestDue(a, b Suggestion) bool {
	if a.Due != b.Due {
		return a.Due.Before(b.Due)
	}
	if a.Amount != b.Amount {
		return a.Amount > b.Amount
	}
	return a.Box < b.Box
}

func alphabetical(a, b Suggestion) bool { return a.Box < b.Box }

// strategies maps strategy names to their orderings.
var strategies = map[string]Strategy{
	SteepestRate: StrategyFunc(steepestRate),
	NearestDue:   StrategyFunc(nearestDue),
	Alphabetical: StrategyFunc(alphabetical),
}

// Lookup returns the strategy registered under name. An empty name selects
// the default strategy.
func Lookup(name string) (Strategy, error) {
	if name == "" {
		name = DefaultStrategy
	}
	s, ok := strategies[name]
	if !ok {
		return nil, fmt.Errorf("unknown plan strategy: %s", name)
	}
	return s, nil
}

// Register adds or replaces a named strategy.
func Register(name string, s Strategy) {
	strategies[name] = s
}

// Names lists the registered strategies in sorted order.
func Names() []string {
	names := make([]string, 0, len(strategies))
	for name := range strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
