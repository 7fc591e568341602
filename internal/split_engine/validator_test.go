package split_engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/split"
)

func TestValidate_AcceptsComputedSplit(t *testing.T) {
	b := newBill(3000, 240, 150)
	participants := people("a", "b", "c")
	strategy := split.Equal()

	result, err := Compute(b, participants, strategy)
	require.NoError(t, err)
	result, err = AllocateTip(result, 450)
	require.NoError(t, err)

	v := Validate(b, participants, strategy, result)

	assert.True(t, v.Valid)
	assert.Empty(t, v.Errors)
	assert.Empty(t, v.Warnings)
	assert.Equal(t, split.TotalCheck{Expected: 3390, Calculated: 3390, Difference: 0}, v.TotalCheck)
}

func TestValidate_ToleratesOneUnitPerParticipant(t *testing.T) {
	b := newBill(1000, 0, 0)
	participants := people("a", "b", "c")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)
	result.Shares[0].BaseAmount--
	result.Shares[0].TotalAmount--

	v := Validate(b, participants, split.Equal(), result)
	assert.True(t, v.Valid, v.Errors)
	assert.Equal(t, int64(1), v.TotalCheck.Difference)
}

func TestValidate_RejectsTamperedShare(t *testing.T) {
	b := newBill(1000, 0, 0)
	participants := people("a", "b")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)
	result.Shares[0].BaseAmount += 200
	result.Shares[0].TotalAmount += 200

	v := Validate(b, participants, split.Equal(), result)
	assert.False(t, v.Valid)
	assert.Equal(t, int64(1000), v.TotalCheck.Expected)
	assert.Equal(t, int64(1200), v.TotalCheck.Calculated)
	assert.Equal(t, int64(-200), v.TotalCheck.Difference)
	assert.NotEmpty(t, v.Errors)
}

func TestValidate_RejectsInconsistentTips(t *testing.T) {
	b := newBill(1000, 0, 0)
	participants := people("a", "b")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)
	result, err = AllocateTip(result, 100)
	require.NoError(t, err)
	result.Shares[1].TipAmount = 10

	v := Validate(b, participants, split.Equal(), result)
	assert.False(t, v.Valid)
	assert.GreaterOrEqual(t, len(v.Errors), 2)
}

func TestValidate_RejectsMisallocatedTip(t *testing.T) {
	b := newBill(3000, 0, 0)
	participants := people("a", "b", "c")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)
	result, err = AllocateTip(result, 300)
	require.NoError(t, err)
	require.Equal(t, int64(100), result.Shares[0].TipAmount)

	// whole tip on the first person, totals kept consistent
	tips := []int64{300, 0, 0}
	for i := range result.Shares {
		result.Shares[i].TipAmount = tips[i]
		result.Shares[i].TotalAmount = result.Shares[i].Owed() + tips[i]
	}
	require.Equal(t, result.TipTotal, result.TipSum())

	v := Validate(b, participants, split.Equal(), result)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 3)
	assert.Contains(t, v.Errors[0], "participant a tip is 300, expected 100")

	_, err = Check(b, participants, split.Equal(), result)
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))
}

func TestValidate_RejectsShiftedComponents(t *testing.T) {
	b := newBill(3000, 300, 0)
	participants := people("a", "b")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)
	require.Equal(t, int64(150), result.Shares[0].TaxShare)

	// same amount owed, but tax moved into the base
	result.Shares[0].BaseAmount += 150
	result.Shares[0].TaxShare = 0

	v := Validate(b, participants, split.Equal(), result)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 2)
	assert.Contains(t, v.Errors[0], "base amount")
	assert.Contains(t, v.Errors[1], "tax share")
}

func TestValidate_WarnsOnZeroTotal(t *testing.T) {
	b := newBill(900, 0, 0, bill.LineItem{ID: "x", UnitPrice: 900, Quantity: 1})
	participants := people("a", "b")
	strategy := split.ItemBased(map[string][]string{"a": {"x"}})

	result, err := Compute(b, participants, strategy)
	require.NoError(t, err)

	v := Validate(b, participants, strategy, result)
	assert.True(t, v.Valid)
	assert.Len(t, v.Warnings, 1)
	assert.Contains(t, v.Warnings[0], "b")
}

func TestValidate_ReportsCalculatorErrors(t *testing.T) {
	b := newBill(3000, 0, 0)
	participants := people("a", "b")
	strategy := split.Custom(map[string]int64{"a": 1200, "b": 1700})

	v := Validate(b, participants, strategy, &split.Result{BillID: b.ID})
	assert.False(t, v.Valid)
	assert.Equal(t, split.TotalCheck{Expected: 3000, Calculated: 2900, Difference: 100}, v.TotalCheck)

	v = Validate(b, participants, strategy, nil)
	assert.False(t, v.Valid)
}

func TestValidate_RejectsMissingAndExtraShares(t *testing.T) {
	b := newBill(1000, 0, 0)

	result, err := Compute(b, people("a", "b"), split.Equal())
	require.NoError(t, err)
	result.Shares[1].PersonID = "z"

	v := Validate(b, people("a", "b"), split.Equal(), result)
	assert.False(t, v.Valid)
	assert.Len(t, v.Errors, 2)
}

func TestCheck(t *testing.T) {
	b := newBill(1000, 0, 0)
	participants := people("a", "b")

	result, err := Compute(b, participants, split.Equal())
	require.NoError(t, err)

	_, err = Check(b, participants, split.Equal(), result)
	assert.NoError(t, err)

	result.BillID = "other"
	v, err := Check(b, participants, split.Equal(), result)
	require.Error(t, err)

	var invalid split.ErrInvalidSplit
	require.True(t, errors.As(err, &invalid))
	require.NotNil(t, invalid.Validation)
	assert.Equal(t, v.Errors, invalid.Validation.Errors)
}
