package ledger

import (
	"errors"
	"fmt"
)

// Error kinds. Every error returned by a Partition operation wraps exactly one
// of them.
var (
	ErrUnknownBox        = errors.New("unknown box")
	ErrDuplicateBox      = errors.New("duplicate box")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrInvalidArgument   = errors.New("invalid argument")
)

// Argument problems, each an ErrInvalidArgument.
var (
	ErrNonPositiveAmount = fmt.Errorf("%w: amount must be positive", ErrInvalidArgument)
	ErrNegativeAmount    = fmt.Errorf("%w: amount must not be negative", ErrInvalidArgument)
	ErrInvalidAmount     = fmt.Errorf("%w: not an integer amount", ErrInvalidArgument)
	ErrAmountOverflow    = fmt.Errorf("%w: amount too large", ErrInvalidArgument)
	ErrInvalidPeriod     = fmt.Errorf("%w: period must be YYYY-MM", ErrInvalidArgument)
	ErrEmptyBoxName      = fmt.Errorf("%w: empty box name", ErrInvalidArgument)
	ErrBoxNameTooLong    = fmt.Errorf("%w: box name too long (max 64 characters)", ErrInvalidArgument)
	ErrBadBoxName        = fmt.Errorf("%w: box name must not contain spaces or '#'", ErrInvalidArgument)
	ErrReservedBox       = fmt.Errorf("%w: operation not allowed on reserved box", ErrInvalidArgument)
	ErrUnknownKind       = fmt.Errorf("%w: unknown recurring kind", ErrInvalidArgument)
)

// OpError records the failing operation and the value that caused it.
type OpError struct {
	Op    string
	Value string
	Err   error
}

func (e *OpError) Error() string {
	if e.Value == "" {
		return e.Op + ": " + e.Err.Error()
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Value, e.Err)
}

func (e *OpError) Unwrap() error { return e.Err }

// FundsError describes a box that cannot cover a requested amount.
type FundsError struct {
	Box       string
	Available int64
	Required  int64
}

func (e *FundsError) Error() string {
	return fmt.Sprintf("insufficient funds in %q: available %d, required %d", e.Box, e.Available, e.Required)
}

func (e *FundsError) Is(target error) bool { return target == ErrInsufficientFunds }

func opErr(op, value string, err error) error {
	return &OpError{Op: op, Value: value, Err: err}
}
