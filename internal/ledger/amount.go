package ledger

import (
	"math"
	"strconv"
	"strings"
)

// ParseAmount converts a whole-unit amount such as "1200" to an int64.
//
// Amounts are integers throughout the ledger, so decimal separators, signs
// and exponents are rejected. A leading "+" is tolerated. Zero is accepted;
// callers that need a positive value check it themselves.
func ParseAmount(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "+")
	if s == "" {
		return 0, ErrInvalidAmount
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			if r == '-' {
				return 0, ErrNegativeAmount
			}
			return 0, ErrInvalidAmount
		}
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, ErrAmountOverflow
	}
	return v, nil
}

// ParsePositiveAmount is ParseAmount restricted to values greater than zero.
func ParsePositiveAmount(s string) (int64, error) {
	v, err := ParseAmount(s)
	if err != nil {
		return 0, err
	}
	if v == 0 {
		return 0, ErrNonPositiveAmount
	}
	return v, nil
}

// mulAmount multiplies two non-negative amounts, reporting overflow.
func mulAmount(a, b int64) (int64, error) {
	if a != 0 && b > math.MaxInt64/a {
		return 0, ErrAmountOverflow
	}
	return a * b, nil
}

// addAmount adds two amounts, reporting overflow.
func addAmount(a, b int64) (int64, error) {
	if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}
