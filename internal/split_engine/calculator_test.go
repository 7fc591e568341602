package split_engine

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/split"
)

func newBill(subtotal, tax, fee int64, items ...bill.LineItem) *bill.Bill {
	return &bill.Bill{
		ID:               "bill-1",
		Currency:         "USD",
		Items:            items,
		Subtotal:         subtotal,
		TaxAmount:        tax,
		ServiceFeeAmount: fee,
		TotalAmount:      subtotal + tax + fee,
	}
}

func people(ids ...string) []split.Participant {
	out := make([]split.Participant, len(ids))
	for i, id := range ids {
		out[i] = split.Participant{PersonID: id, DisplayName: "Person " + id}
	}
	return out
}

func bases(r *split.Result) []int64 {
	out := make([]int64, len(r.Shares))
	for i, s := range r.Shares {
		out[i] = s.BaseAmount
	}
	return out
}

func TestCompute_EqualEvenBill(t *testing.T) {
	b := newBill(3000, 240, 150)

	result, err := Compute(b, people("a", "b", "c"), split.Equal())
	require.NoError(t, err)

	require.Len(t, result.Shares, 3)
	for _, s := range result.Shares {
		assert.Equal(t, int64(1000), s.BaseAmount)
		assert.Equal(t, int64(80), s.TaxShare)
		assert.Equal(t, int64(50), s.ServiceFeeShare)
		assert.Equal(t, int64(1130), s.TotalAmount)
	}
	assert.Equal(t, b.Chargeable(), result.OwedTotal())
}

func TestCompute_EqualRemainderGoesToFirst(t *testing.T) {
	b := newBill(1000, 0, 0)

	result, err := Compute(b, people("a", "b", "c"), split.Equal())
	require.NoError(t, err)

	assert.Equal(t, []int64{334, 333, 333}, bases(result))
}

func TestCompute_EqualSubset(t *testing.T) {
	b := newBill(1000, 100, 0)

	result, err := Compute(b, people("a", "b", "c"), split.Equal("b", "c"))
	require.NoError(t, err)

	assert.Equal(t, []int64{0, 500, 500}, bases(result))
	assert.Equal(t, int64(0), result.Shares[0].TaxShare)
	assert.Equal(t, int64(50), result.Shares[1].TaxShare)
}

func TestCompute_EqualErrors(t *testing.T) {
	b := newBill(1000, 0, 0)

	_, err := Compute(b, people("a", "b"), split.Equal("a", "z"))
	assert.True(t, errors.Is(err, split.ErrUnknownParticipant{PersonID: "z"}))

	_, err = Compute(b, people("a", "b"), split.Equal("a", "a"))
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))

	_, err = Compute(b, nil, split.Equal())
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))

	_, err = Compute(b, people("a", "a"), split.Equal())
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))
}

func TestCompute_CustomMatchesSubtotal(t *testing.T) {
	b := newBill(3000, 240, 150)

	result, err := Compute(b, people("a", "b"), split.Custom(map[string]int64{"a": 1200, "b": 1800}))
	require.NoError(t, err)

	assert.Equal(t, []int64{1200, 1800}, bases(result))
	assert.Equal(t, int64(96), result.Shares[0].TaxShare)
	assert.Equal(t, int64(144), result.Shares[1].TaxShare)
	assert.Equal(t, int64(60), result.Shares[0].ServiceFeeShare)
	assert.Equal(t, int64(90), result.Shares[1].ServiceFeeShare)
	assert.Equal(t, b.Chargeable(), result.OwedTotal())
}

func TestCompute_CustomMismatch(t *testing.T) {
	b := newBill(3000, 240, 150)

	_, err := Compute(b, people("a", "b"), split.Custom(map[string]int64{"a": 1200, "b": 1700}))
	require.Error(t, err)

	var mismatch split.ErrAmountMismatch
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, int64(3000), mismatch.Expected)
	assert.Equal(t, int64(2900), mismatch.Calculated)
	assert.Equal(t, int64(100), mismatch.Difference())
}

func TestCompute_CustomWithinTolerance(t *testing.T) {
	b := newBill(3000, 0, 0)

	_, err := Compute(b, people("a", "b"), split.Custom(map[string]int64{"a": 1200, "b": 1799}))
	assert.NoError(t, err)
}

func TestCompute_CustomErrors(t *testing.T) {
	b := newBill(3000, 0, 0)

	_, err := Compute(b, people("a"), split.Custom(map[string]int64{"a": 3000, "x": 0}))
	assert.True(t, errors.Is(err, split.ErrUnknownParticipant{}))

	_, err = Compute(b, people("a", "b"), split.Custom(map[string]int64{"a": 3100, "b": -100}))
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))

	_, err = Compute(b, people("a"), split.Custom(nil))
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))
}

func TestCompute_ItemSharedByTwo(t *testing.T) {
	b := newBill(1500, 150, 0,
		bill.LineItem{ID: "x", Name: "Pizza", UnitPrice: 900, Quantity: 1},
		bill.LineItem{ID: "y", Name: "Soda", UnitPrice: 300, Quantity: 2},
	)

	result, err := Compute(b, people("a", "b"), split.ItemBased(map[string][]string{
		"a": {"x", "y"},
		"b": {"x"},
	}))
	require.NoError(t, err)

	assert.Equal(t, []int64{1050, 450}, bases(result))

	a := result.Shares[0]
	require.Len(t, a.Items, 2)
	assert.Equal(t, split.ItemShare{ItemID: "x", Name: "Pizza", Amount: 450, Quantity: 1, SharedWith: 2}, a.Items[0])
	assert.Equal(t, split.ItemShare{ItemID: "y", Name: "Soda", Amount: 600, Quantity: 2, SharedWith: 1}, a.Items[1])

	assert.Equal(t, int64(105), a.TaxShare)
	assert.Equal(t, int64(45), result.Shares[1].TaxShare)
}

func TestCompute_ItemErrors(t *testing.T) {
	b := newBill(1200, 0, 0,
		bill.LineItem{ID: "x", UnitPrice: 900, Quantity: 1},
		bill.LineItem{ID: "y", UnitPrice: 300, Quantity: 1},
	)

	_, err := Compute(b, people("a"), split.ItemBased(map[string][]string{"a": {"x"}}))
	assert.True(t, errors.Is(err, split.ErrUnassignedItem{ItemID: "y"}))

	_, err = Compute(b, people("a"), split.ItemBased(map[string][]string{"a": {"x", "y", "nope"}}))
	assert.True(t, errors.Is(err, split.ErrUnknownItem{ItemID: "nope"}))

	_, err = Compute(b, people("a"), split.ItemBased(map[string][]string{"a": {"x", "y"}, "ghost": {"x"}}))
	assert.True(t, errors.Is(err, split.ErrUnknownParticipant{PersonID: "ghost"}))

	mismatched := newBill(1500, 0, 0,
		bill.LineItem{ID: "x", UnitPrice: 900, Quantity: 1},
	)
	_, err = Compute(mismatched, people("a"), split.ItemBased(map[string][]string{"a": {"x"}}))
	assert.True(t, errors.Is(err, split.ErrAmountMismatch{}))
}

func TestCompute_ItemParticipantWithoutItems(t *testing.T) {
	b := newBill(900, 90, 0, bill.LineItem{ID: "x", UnitPrice: 900, Quantity: 1})

	result, err := Compute(b, people("a", "b"), split.ItemBased(map[string][]string{"a": {"x"}}))
	require.NoError(t, err)

	assert.Equal(t, int64(0), result.Shares[1].TotalAmount)
	assert.Equal(t, int64(90), result.Shares[0].TaxShare)
}

func TestCompute_InvalidInput(t *testing.T) {
	_, err := Compute(nil, people("a"), split.Equal())
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))

	broken := newBill(1000, 0, 0)
	broken.TotalAmount = 5000
	_, err = Compute(broken, people("a"), split.Equal())
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))

	_, err = Compute(newBill(1000, 0, 0), people("a"), split.Strategy{Type: "RANDOM"})
	assert.True(t, errors.Is(err, split.ErrInvalidSplit{}))
}

// randomCase builds a consistent bill with items and a strategy of every kind
func randomCase(rng *rand.Rand) (*bill.Bill, []split.Participant, []split.Strategy) {
	n := 1 + rng.Intn(7)
	ids := make([]string, n)
	for i := range ids {
		ids[i] = string(rune('a' + i))
	}
	participants := people(ids...)

	itemCount := 1 + rng.Intn(6)
	items := make([]bill.LineItem, itemCount)
	for i := range items {
		items[i] = bill.LineItem{
			ID:        string(rune('A' + i)),
			UnitPrice: int64(1 + rng.Intn(4000)),
			Quantity:  int64(1 + rng.Intn(3)),
		}
	}
	b := newBill(0, int64(rng.Intn(900)), int64(rng.Intn(500)), items...)
	b.Subtotal = b.ItemsTotal()
	b.TotalAmount = b.Chargeable()

	amounts := make(map[string]int64, n)
	left := b.Subtotal
	for i, id := range ids {
		if i == n-1 {
			amounts[id] = left
			break
		}
		v := rng.Int63n(left + 1)
		amounts[id] = v
		left -= v
	}

	assignment := make(map[string][]string, n)
	for _, item := range items {
		owners := 1 + rng.Intn(n)
		for _, k := range rng.Perm(n)[:owners] {
			assignment[ids[k]] = append(assignment[ids[k]], item.ID)
		}
	}

	return b, participants, []split.Strategy{
		split.Equal(),
		split.Custom(amounts),
		split.ItemBased(assignment),
	}
}

func TestCompute_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 300; i++ {
		b, participants, strategies := randomCase(rng)
		tolerance := int64(len(participants))

		for _, strategy := range strategies {
			first, err := Compute(b, participants, strategy)
			require.NoError(t, err, "case %d %s", i, strategy.Type)

			// conservation
			diff := first.OwedTotal() - b.Chargeable()
			assert.LessOrEqual(t, diff, tolerance)
			assert.GreaterOrEqual(t, diff, -tolerance)

			// determinism
			second, err := Compute(b, participants, strategy)
			require.NoError(t, err)
			assert.Equal(t, first, second)

			// tip exactness
			tip := int64(rng.Intn(3000))
			tipped, err := AllocateTip(first, tip)
			require.NoError(t, err)
			assert.Equal(t, tip, tipped.TipSum())

			v := Validate(b, participants, strategy, tipped)
			assert.True(t, v.Valid, "case %d %s: %v", i, strategy.Type, v.Errors)
		}
	}
}
