package planner

import (
	"math/bits"
	"slices"
	"sort"
)

// ScaleToTotal rescales suggestions so that their amounts add up to exactly
// total, keeping their order. Each amount gets its proportional share rounded
// down, and the units lost to rounding go to the largest remainders, ties
// broken by box name. A non-positive total or an all-zero plan yields zeros.
// Plans whose amounts sum past 64 bits are shifted down until they fit.
func ScaleToTotal(suggestions []Suggestion, total int64) []Suggestion {
	out := slices.Clone(suggestions)
	w, sum := weights(out)
	if total <= 0 || sum == 0 {
		for i := range out {
			out[i].Amount = 0
		}
		return out
	}

	rem := make([]uint64, len(out))
	var assigned int64
	for i := range out {
		// w[i] <= sum and total < 2^63, so hi < sum and the quotient fits.
		hi, lo := bits.Mul64(w[i], uint64(total))
		q, r := bits.Div64(hi, lo, sum)
		out[i].Amount = int64(q)
		rem[i] = r
		assigned += int64(q)
	}

	idx := make([]int, len(out))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool {
		ia, ib := idx[a], idx[b]
		if rem[ia] != rem[ib] {
			return rem[ia] > rem[ib]
		}
		return out[ia].Box < out[ib].Box
	})
	for left := total - assigned; left > 0; left-- {
		out[idx[0]].Amount++
		idx = idx[1:]
	}
	return out
}


// weights returns the non-negative amounts and their sum, all shifted right
// by the smallest count that keeps the sum within a uint64.
func weights(suggestions []Suggestion) ([]uint64, uint64) {
	w := make([]uint64, len(suggestions))
	for shift := uint(0); ; shift++ {
		var sum, carry uint64
		for i, s := range suggestions {
			w[i] = uint64(max(s.Amount, 0)) >> shift
			sum, carry = bits.Add64(sum, w[i], 0)
			if carry != 0 {
				break
			}
		}
		if carry == 0 {
			return w, sum
		}
	}
}
