package ledger

import (
	"strings"
	"unicode"
)

// Reserved box names. Both always exist in a Partition.
const (
	FreeBox        = "free"
	CreditSpentBox = "credit-spent"
)

const (
	Allocation RecurringKind = "allocation"
	Instalment RecurringKind = "instalment"
)

type (
	RecurringKind string

	Box struct {
		Name   string
		Amount int64
	}

	Goal struct {
		Target int64
		Due    Period
	}

	// Recurring is a monthly draw attached to a box. Remaining == 0 means the
	// draw has no cap.
	Recurring struct {
		Periodic  int64
		Remaining int64
		Kind      RecurringKind
	}

	// Totals tracks money entering and leaving the ledger.
	Totals struct {
		Deposited int64
		Spent     int64
	}
)

// IsReserved reports whether name is one of the boxes that can never be
// created or removed by the user.
func IsReserved(name string) bool {
	return name == FreeBox || name == CreditSpentBox
}

// ValidateBoxName checks that a box name can be stored and parsed back.
func ValidateBoxName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrEmptyBoxName
	}
	if len(name) > 64 {
		return ErrBoxNameTooLong
	}
	for _, r := range name {
		if unicode.IsSpace(r) || r == '#' || !unicode.IsPrint(r) {
			return ErrBadBoxName
		}
	}
	return nil
}

func (k RecurringKind) Valid() bool {
	switch k {
	case Allocation, Instalment:
		return true
	default:
		return false
	}
}

// Draw returns the amount moved by the next monthly rollover.
func (r Recurring) Draw() int64 {
	if r.Remaining == 0 || r.Periodic < r.Remaining {
		return r.Periodic
	}
	return r.Remaining
}

func (r Recurring) Validate() error {
	if r.Periodic < 0 || r.Remaining < 0 {
		return ErrNegativeAmount
	}
	if !r.Kind.Valid() {
		return ErrUnknownKind
	}
	return nil
}

func (g Goal) Validate() error {
	if g.Target <= 0 {
		return ErrNonPositiveAmount
	}
	return g.Due.Validate()
}
