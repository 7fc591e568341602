package bill

import (
	"errors"
	"fmt"
)

// Common errors
var (
	ErrEmptyBillID           = errors.New("bill id cannot be empty")
	ErrNegativeAmount        = errors.New("bill amounts cannot be negative")
	ErrInvalidQuantity       = errors.New("line item quantity must be positive")
	ErrDuplicateLineItem     = errors.New("line item ids must be unique")
	ErrInvalidCurrencyFormat = errors.New("currency must be a 3-letter code")
)

// RoundingTolerance is the tolerance, in minor units, allowed between a bill's
// total and the sum of its components.
const RoundingTolerance int64 = 1

// LineItem is a single priced line on a bill
type LineItem struct {
	ID        string `json:"id" bson:"id"`
	Name      string `json:"name" bson:"name"`
	UnitPrice int64  `json:"unit_price" bson:"unit_price"` // Stored in cents/minor units
	Quantity  int64  `json:"quantity" bson:"quantity"`
}

// Cost returns the line total in minor units
func (li LineItem) Cost() int64 {
	return li.UnitPrice * li.Quantity
}

// Bill is a restaurant tab as provided by the point-of-sale. It is read-only for
// the duration of a split session.
type Bill struct {
	ID               string     `json:"bill_id" bson:"bill_id"`
	BusinessID       string     `json:"business_id,omitempty" bson:"business_id,omitempty"`
	TableCode        string     `json:"table_code,omitempty" bson:"table_code,omitempty"`
	Currency         string     `json:"currency" bson:"currency"`
	Items            []LineItem `json:"items" bson:"items"`
	Subtotal         int64      `json:"subtotal" bson:"subtotal"`
	TaxAmount        int64      `json:"tax_amount" bson:"tax_amount"`
	ServiceFeeAmount int64      `json:"service_fee_amount" bson:"service_fee_amount"`
	TotalAmount      int64      `json:"total_amount" bson:"total_amount"`
}

// ErrInconsistentTotal indicates total != subtotal + tax + service fee
type ErrInconsistentTotal struct {
	Expected int64
	Actual   int64
}

func (e ErrInconsistentTotal) Error() string {
	return fmt.Sprintf("bill total %d does not match subtotal+tax+fee %d", e.Actual, e.Expected)
}

// Validate checks the bill invariants
func (b *Bill) Validate() error {
	if b.ID == "" {
		return ErrEmptyBillID
	}
	if b.Currency != "" && len(b.Currency) != 3 {
		return ErrInvalidCurrencyFormat
	}
	if b.Subtotal < 0 || b.TaxAmount < 0 || b.ServiceFeeAmount < 0 || b.TotalAmount < 0 {
		return ErrNegativeAmount
	}

	seen := make(map[string]struct{}, len(b.Items))
	for _, item := range b.Items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
		if item.UnitPrice < 0 {
			return ErrNegativeAmount
		}
		if _, dup := seen[item.ID]; dup {
			return ErrDuplicateLineItem
		}
		seen[item.ID] = struct{}{}
	}

	expected := b.Chargeable()
	if diff := b.TotalAmount - expected; diff > RoundingTolerance || diff < -RoundingTolerance {
		return ErrInconsistentTotal{Expected: expected, Actual: b.TotalAmount}
	}
	return nil
}

// Chargeable returns subtotal + tax + service fee, the amount every split must reconstruct
func (b *Bill) Chargeable() int64 {
	return b.Subtotal + b.TaxAmount + b.ServiceFeeAmount
}

// ItemsTotal returns the sum of all line item costs
func (b *Bill) ItemsTotal() int64 {
	var total int64
	for _, item := range b.Items {
		total += item.Cost()
	}
	return total
}

// Item looks up a line item by id
func (b *Bill) Item(id string) (LineItem, bool) {
	for _, item := range b.Items {
		if item.ID == id {
			return item, true
		}
	}
	return LineItem{}, false
}
