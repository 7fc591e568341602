package split_engine

import (
	"github.com/shopspring/decimal"
)

// distribute splits total across weights in proportion to each weight. Every
// share is floored with an exact quotient and the leftover units go one each to
// the first entries, in order, whose weight is non-zero. The result always sums
// to total when at least one weight is positive.
func distribute(total int64, weights []int64) []int64 {
	shares := make([]int64, len(weights))

	var weightSum int64
	for _, w := range weights {
		weightSum += w
	}
	if total == 0 || weightSum == 0 {
		return shares
	}

	divisor := decimal.NewFromInt(weightSum)
	amount := decimal.NewFromInt(total)

	var allocated int64
	for i, w := range weights {
		if w == 0 {
			continue
		}
		q, _ := amount.Mul(decimal.NewFromInt(w)).QuoRem(divisor, 0)
		shares[i] = q.IntPart()
		allocated += shares[i]
	}

	remainder := total - allocated
	for i := 0; remainder > 0 && i < len(weights); i++ {
		if weights[i] == 0 {
			continue
		}
		shares[i]++
		remainder--
	}

	return shares
}

// distributeOrEqual behaves like distribute, but spreads total evenly across
// every slot when all weights are zero, so nothing is lost.
func distributeOrEqual(total int64, weights []int64) []int64 {
	for _, w := range weights {
		if w > 0 {
			return distribute(total, weights)
		}
	}

	even := make([]int64, len(weights))
	for i := range even {
		even[i] = 1
	}
	return distribute(total, even)
}
