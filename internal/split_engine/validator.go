package split_engine

import (
	"errors"
	"fmt"

	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/split"
)

// Validate recomputes the split of b independently and compares it with the
// proposed result. Differences beyond one minor unit per participant, or beyond
// the participant count in total, are errors. Zero totals are warnings.
func Validate(b *bill.Bill, participants []split.Participant, strategy split.Strategy, proposed *split.Result) split.ValidationResult {
	v := split.ValidationResult{Valid: true, Errors: []string{}, Warnings: []string{}}
	if b != nil {
		v.TotalCheck.Expected = b.Chargeable()
	}

	if proposed == nil {
		v.AddError("split result is required")
		return v
	}
	v.TotalCheck.Calculated = proposed.OwedTotal()
	v.TotalCheck.Difference = v.TotalCheck.Expected - v.TotalCheck.Calculated

	expected, err := Compute(b, participants, strategy)
	if err != nil {
		var mismatch split.ErrAmountMismatch
		if errors.As(err, &mismatch) {
			v.TotalCheck = split.TotalCheck{
				Expected:   mismatch.Expected,
				Calculated: mismatch.Calculated,
				Difference: mismatch.Difference(),
			}
		}
		v.AddError(err.Error())
		return v
	}

	if proposed.BillID != b.ID {
		v.AddError(fmt.Sprintf("split belongs to bill %q, not %q", proposed.BillID, b.ID))
	}
	if len(proposed.Shares) != len(expected.Shares) {
		v.AddError(fmt.Sprintf("split has %d shares for %d participants", len(proposed.Shares), len(expected.Shares)))
	}

	tolerance := int64(len(participants)) * bill.RoundingTolerance
	if !withinTolerance(v.TotalCheck.Calculated, v.TotalCheck.Expected, tolerance) {
		v.AddError(fmt.Sprintf("shares add up to %d, bill requires %d", v.TotalCheck.Calculated, v.TotalCheck.Expected))
	}

	// the proposed tip total is re-spread over the recomputed bases
	tipped, err := AllocateTip(expected, proposed.TipTotal)
	if err != nil {
		v.AddError(err.Error())
	}

	for _, want := range expected.Shares {
		got, ok := proposed.Share(want.PersonID)
		if !ok {
			v.AddError("missing share for participant " + want.PersonID)
			continue
		}
		if !withinTolerance(got.Owed(), want.Owed(), bill.RoundingTolerance) {
			v.AddError(fmt.Sprintf("participant %s owes %d, expected %d", got.PersonID, got.Owed(), want.Owed()))
		}
		checkComponent(&v, got.PersonID, "base amount", got.BaseAmount, want.BaseAmount)
		checkComponent(&v, got.PersonID, "tax share", got.TaxShare, want.TaxShare)
		checkComponent(&v, got.PersonID, "service fee share", got.ServiceFeeShare, want.ServiceFeeShare)
		if got.TipAmount < 0 {
			v.AddError(fmt.Sprintf("participant %s has a negative tip", got.PersonID))
		} else if tipped != nil {
			if wantTip, ok := tipped.Share(want.PersonID); ok {
				checkComponent(&v, got.PersonID, "tip", got.TipAmount, wantTip.TipAmount)
			}
		}
		if got.TotalAmount != got.Owed()+got.TipAmount {
			v.AddError(fmt.Sprintf("participant %s total %d does not match its components", got.PersonID, got.TotalAmount))
		}
		if got.TotalAmount == 0 {
			v.AddWarning(fmt.Sprintf("participant %s owes nothing", got.PersonID))
		}
	}
	for _, got := range proposed.Shares {
		if _, ok := expected.Share(got.PersonID); !ok {
			v.AddError(fmt.Sprintf("share for unknown participant %s", got.PersonID))
		}
	}

	if tips := proposed.TipSum(); tips != proposed.TipTotal {
		v.AddError(fmt.Sprintf("tips add up to %d, tip total is %d", tips, proposed.TipTotal))
	}

	return v
}

func checkComponent(v *split.ValidationResult, personID, name string, got, want int64) {
	if !withinTolerance(got, want, bill.RoundingTolerance) {
		v.AddError(fmt.Sprintf("participant %s %s is %d, expected %d", personID, name, got, want))
	}
}

// Check runs Validate and converts a failed validation into ErrInvalidSplit
func Check(b *bill.Bill, participants []split.Participant, strategy split.Strategy, proposed *split.Result) (split.ValidationResult, error) {
	v := Validate(b, participants, strategy, proposed)
	if !v.Valid {
		return v, split.ErrInvalidSplit{Reason: v.Errors[0], Validation: &v}
	}
	return v, nil
}
