package split_engine

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/tabsplit/internal/domain/split"
)

var hundred = decimal.NewFromInt(100)

// Tip is either a fixed amount in minor units or a percentage of the subtotal.
// Exactly one field may be set; a zero Tip means no tip.
type Tip struct {
	Amount     *int64           `json:"amount,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

// TipAmount returns a fixed-amount tip
func TipAmount(amount int64) Tip {
	return Tip{Amount: &amount}
}

// TipPercentage returns a percentage tip
func TipPercentage(pct decimal.Decimal) Tip {
	return Tip{Percentage: &pct}
}

// Resolve returns the tip total for a bill with the given subtotal
func (t Tip) Resolve(subtotal int64) (int64, error) {
	switch {
	case t.Amount != nil && t.Percentage != nil:
		return 0, split.ErrInvalidSplit{Reason: "tip amount and percentage are mutually exclusive"}
	case t.Amount != nil:
		if *t.Amount < 0 {
			return 0, split.ErrInvalidSplit{Reason: fmt.Sprintf("negative tip amount %d", *t.Amount)}
		}
		return *t.Amount, nil
	case t.Percentage != nil:
		return TipFromPercentage(subtotal, *t.Percentage)
	default:
		return 0, nil
	}
}

// TipFromPercentage computes round(subtotal * pct / 100), rounding halves up
func TipFromPercentage(subtotal int64, pct decimal.Decimal) (int64, error) {
	if pct.IsNegative() {
		return 0, split.ErrInvalidSplit{Reason: "negative tip percentage " + pct.String()}
	}
	return decimal.NewFromInt(subtotal).Mul(pct).Div(hundred).Round(0).IntPart(), nil
}

// AllocateTip returns a copy of result with tipTotal spread across the shares
// in proportion to each base amount. The input result is never modified.
func AllocateTip(result *split.Result, tipTotal int64) (*split.Result, error) {
	if result == nil {
		return nil, split.ErrInvalidSplit{Reason: "split result is required"}
	}
	if tipTotal < 0 {
		return nil, split.ErrInvalidSplit{Reason: fmt.Sprintf("negative tip amount %d", tipTotal)}
	}

	out := result.Clone()
	weights := make([]int64, len(out.Shares))
	for i, s := range out.Shares {
		weights[i] = s.BaseAmount
	}

	tips := distributeOrEqual(tipTotal, weights)
	for i := range out.Shares {
		out.Shares[i].TipAmount = tips[i]
		out.Shares[i].TotalAmount = out.Shares[i].Owed() + tips[i]
	}
	out.TipTotal = tipTotal

	return out, nil
}

// AllocateTipPercentage resolves pct against the result's subtotal and allocates it
func AllocateTipPercentage(result *split.Result, pct decimal.Decimal) (*split.Result, error) {
	if result == nil {
		return nil, split.ErrInvalidSplit{Reason: "split result is required"}
	}
	total, err := TipFromPercentage(result.Subtotal, pct)
	if err != nil {
		return nil, err
	}
	return AllocateTip(result, total)
}

// ApplyTip allocates t on result
func ApplyTip(result *split.Result, t Tip) (*split.Result, error) {
	if result == nil {
		return nil, split.ErrInvalidSplit{Reason: "split result is required"}
	}
	total, err := t.Resolve(result.Subtotal)
	if err != nil {
		return nil, err
	}
	return AllocateTip(result, total)
}
