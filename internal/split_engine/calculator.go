// Package split_engine turns a bill and a split strategy into per-person
// obligations, allocates tips and validates proposed splits. Every function
// is pure: same inputs, same output, no I/O.
package split_engine

import (
	"fmt"
	"sort"

	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/split"
)

// Compute derives the split of b among participants using strategy. The
// participant order fixes the order of the shares and breaks every rounding tie.
func Compute(b *bill.Bill, participants []split.Participant, strategy split.Strategy) (*split.Result, error) {
	if b == nil {
		return nil, split.ErrInvalidSplit{Reason: "bill is required"}
	}
	if err := b.Validate(); err != nil {
		return nil, split.ErrInvalidSplit{Reason: err.Error()}
	}

	index, err := indexParticipants(participants)
	if err != nil {
		return nil, err
	}

	var (
		base  []int64
		items [][]split.ItemShare
	)
	switch strategy.Type {
	case split.StrategyEqual:
		base, err = equalBase(b, participants, index, strategy.ParticipantIDs)
	case split.StrategyCustom:
		base, err = customBase(b, participants, index, strategy.Amounts)
	case split.StrategyItemBased:
		base, items, err = itemBase(b, participants, index, strategy.Items)
	default:
		return nil, split.ErrInvalidSplit{Reason: fmt.Sprintf("unknown strategy type %q", strategy.Type)}
	}
	if err != nil {
		return nil, err
	}

	// Tax and fee follow the base amounts, except for equal splits where they
	// are divided per head.
	weights := base
	if strategy.Type == split.StrategyEqual {
		weights = equalWeights(participants, index, strategy.ParticipantIDs)
	}
	tax := distributeOrEqual(b.TaxAmount, weights)
	fee := distributeOrEqual(b.ServiceFeeAmount, weights)

	result := &split.Result{
		BillID:           b.ID,
		Strategy:         strategy.Type,
		Currency:         b.Currency,
		Subtotal:         b.Subtotal,
		TaxAmount:        b.TaxAmount,
		ServiceFeeAmount: b.ServiceFeeAmount,
		Shares:           make([]split.PersonShare, len(participants)),
	}
	for i, p := range participants {
		share := split.PersonShare{
			PersonID:        p.PersonID,
			DisplayName:     p.DisplayName,
			BaseAmount:      base[i],
			TaxShare:        tax[i],
			ServiceFeeShare: fee[i],
		}
		if items != nil {
			share.Items = items[i]
		}
		share.TotalAmount = share.Owed()
		result.Shares[i] = share
	}

	return result, nil
}

func indexParticipants(participants []split.Participant) (map[string]int, error) {
	if len(participants) == 0 {
		return nil, split.ErrInvalidSplit{Reason: "at least one participant is required"}
	}
	index := make(map[string]int, len(participants))
	for i, p := range participants {
		if p.PersonID == "" {
			return nil, split.ErrInvalidSplit{Reason: fmt.Sprintf("participant %d has no person id", i)}
		}
		if _, dup := index[p.PersonID]; dup {
			return nil, split.ErrInvalidSplit{Reason: "duplicate participant " + p.PersonID}
		}
		index[p.PersonID] = i
	}
	return index, nil
}

func equalWeights(participants []split.Participant, index map[string]int, ids []string) []int64 {
	weights := make([]int64, len(participants))
	if len(ids) == 0 {
		for i := range weights {
			weights[i] = 1
		}
		return weights
	}
	for _, id := range ids {
		weights[index[id]] = 1
	}
	return weights
}

func equalBase(b *bill.Bill, participants []split.Participant, index map[string]int, ids []string) ([]int64, error) {
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		if _, ok := index[id]; !ok {
			return nil, split.ErrUnknownParticipant{PersonID: id}
		}
		if _, dup := seen[id]; dup {
			return nil, split.ErrInvalidSplit{Reason: "participant listed twice: " + id}
		}
		seen[id] = struct{}{}
	}
	return distribute(b.Subtotal, equalWeights(participants, index, ids)), nil
}

func customBase(b *bill.Bill, participants []split.Participant, index map[string]int, amounts map[string]int64) ([]int64, error) {
	if len(amounts) == 0 {
		return nil, split.ErrInvalidSplit{Reason: "custom split requires amounts"}
	}
	for _, id := range sortedKeys(amounts) {
		if _, ok := index[id]; !ok {
			return nil, split.ErrUnknownParticipant{PersonID: id}
		}
		if amounts[id] < 0 {
			return nil, split.ErrInvalidSplit{Reason: fmt.Sprintf("negative amount for %s", id)}
		}
	}

	base := make([]int64, len(participants))
	for i, p := range participants {
		base[i] = amounts[p.PersonID]
	}

	if sum := sumOf(base); !withinTolerance(sum, b.Subtotal, bill.RoundingTolerance) {
		return nil, split.ErrAmountMismatch{Expected: b.Subtotal, Calculated: sum}
	}
	return base, nil
}

func itemBase(b *bill.Bill, participants []split.Participant, index map[string]int, assignments map[string][]string) ([]int64, [][]split.ItemShare, error) {
	for _, id := range sortedKeys(assignments) {
		if _, ok := index[id]; !ok {
			return nil, nil, split.ErrUnknownParticipant{PersonID: id}
		}
		for _, itemID := range assignments[id] {
			if _, ok := b.Item(itemID); !ok {
				return nil, nil, split.ErrUnknownItem{ItemID: itemID}
			}
		}
	}

	// assignees[item][participant] marks membership, in participant order
	assignees := make(map[string][]int64, len(b.Items))
	for i, p := range participants {
		for _, itemID := range assignments[p.PersonID] {
			weights, ok := assignees[itemID]
			if !ok {
				weights = make([]int64, len(participants))
				assignees[itemID] = weights
			}
			weights[i] = 1
		}
	}

	base := make([]int64, len(participants))
	items := make([][]split.ItemShare, len(participants))
	for _, item := range b.Items {
		weights, ok := assignees[item.ID]
		if !ok {
			return nil, nil, split.ErrUnassignedItem{ItemID: item.ID}
		}
		sharedWith := int(sumOf(weights))
		costs := distribute(item.Cost(), weights)
		for i, w := range weights {
			if w == 0 {
				continue
			}
			base[i] += costs[i]
			items[i] = append(items[i], split.ItemShare{
				ItemID:     item.ID,
				Name:       item.Name,
				Amount:     costs[i],
				Quantity:   item.Quantity,
				SharedWith: sharedWith,
			})
		}
	}

	if sum := b.ItemsTotal(); !withinTolerance(sum, b.Subtotal, bill.RoundingTolerance) {
		return nil, nil, split.ErrAmountMismatch{Expected: b.Subtotal, Calculated: sum}
	}

	return base, items, nil
}

func sumOf(values []int64) int64 {
	var total int64
	for _, v := range values {
		total += v
	}
	return total
}

func withinTolerance(a, b, tolerance int64) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tolerance
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
