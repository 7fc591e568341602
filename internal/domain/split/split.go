// Package split defines split strategies, split results and the arithmetic error
// taxonomy shared by the split engine and the reconciliation store.
package split

// StrategyType selects how a bill is divided
type StrategyType string

const (
	StrategyEqual     StrategyType = "EQUAL"
	StrategyCustom    StrategyType = "CUSTOM"
	StrategyItemBased StrategyType = "ITEM_BASED"
)

// Participant is one paying party within a split session
type Participant struct {
	PersonID    string `json:"person_id" bson:"person_id"`
	DisplayName string `json:"display_name" bson:"display_name"`
}

// Strategy is a tagged variant: exactly one of the payload fields is read,
// depending on Type. Map payloads are always walked in participant order.
type Strategy struct {
	Type StrategyType `json:"type" bson:"type"`

	// Equal: people sharing equally. Empty means every participant.
	ParticipantIDs []string `json:"participant_ids,omitempty" bson:"participant_ids,omitempty"`

	// Custom: base (pre-tax, pre-fee) amount per person, in minor units.
	Amounts map[string]int64 `json:"amounts,omitempty" bson:"amounts,omitempty"`

	// ItemBased: line item ids assigned to each person.
	Items map[string][]string `json:"items,omitempty" bson:"items,omitempty"`
}

// Equal builds an equal split strategy
func Equal(personIDs ...string) Strategy {
	return Strategy{Type: StrategyEqual, ParticipantIDs: personIDs}
}

// Custom builds a custom amount strategy
func Custom(amounts map[string]int64) Strategy {
	return Strategy{Type: StrategyCustom, Amounts: amounts}
}

// ItemBased builds an item assignment strategy
func ItemBased(items map[string][]string) Strategy {
	return Strategy{Type: StrategyItemBased, Items: items}
}

// ItemShare is a person's portion of one line item. The person holds
// Quantity/SharedWith units of the item.
type ItemShare struct {
	ItemID     string `json:"item_id" bson:"item_id"`
	Name       string `json:"name" bson:"name"`
	Amount     int64  `json:"amount" bson:"amount"`
	Quantity   int64  `json:"quantity" bson:"quantity"`
	SharedWith int    `json:"shared_with" bson:"shared_with"`
}

// PersonShare is one participant's obligation. All amounts are minor units.
type PersonShare struct {
	PersonID        string      `json:"person_id" bson:"person_id"`
	DisplayName     string      `json:"display_name" bson:"display_name"`
	BaseAmount      int64       `json:"base_amount" bson:"base_amount"`
	TaxShare        int64       `json:"tax_share" bson:"tax_share"`
	ServiceFeeShare int64       `json:"service_fee_share" bson:"service_fee_share"`
	TipAmount       int64       `json:"tip_amount" bson:"tip_amount"`
	TotalAmount     int64       `json:"total_amount" bson:"total_amount"`
	Items           []ItemShare `json:"items,omitempty" bson:"items,omitempty"`
}

// Owed returns base + tax + service fee, excluding tip
func (p PersonShare) Owed() int64 {
	return p.BaseAmount + p.TaxShare + p.ServiceFeeShare
}

// Result is the derived split of one bill. Shares are ordered like the
// participant list the result was computed from.
type Result struct {
	BillID           string        `json:"bill_id" bson:"bill_id"`
	Strategy         StrategyType  `json:"strategy" bson:"strategy"`
	Currency         string        `json:"currency,omitempty" bson:"currency,omitempty"`
	Subtotal         int64         `json:"subtotal" bson:"subtotal"`
	TaxAmount        int64         `json:"tax_amount" bson:"tax_amount"`
	ServiceFeeAmount int64         `json:"service_fee_amount" bson:"service_fee_amount"`
	TipTotal         int64         `json:"tip_total" bson:"tip_total"`
	Shares           []PersonShare `json:"shares" bson:"shares"`
}

// Share looks up a participant's share
func (r *Result) Share(personID string) (PersonShare, bool) {
	for _, s := range r.Shares {
		if s.PersonID == personID {
			return s, true
		}
	}
	return PersonShare{}, false
}

// OwedTotal sums base + tax + fee over all shares
func (r *Result) OwedTotal() int64 {
	var total int64
	for _, s := range r.Shares {
		total += s.Owed()
	}
	return total
}

// TipSum sums the tip over all shares
func (r *Result) TipSum() int64 {
	var total int64
	for _, s := range r.Shares {
		total += s.TipAmount
	}
	return total
}

// Clone returns a deep copy
func (r *Result) Clone() *Result {
	if r == nil {
		return nil
	}
	out := *r
	out.Shares = make([]PersonShare, len(r.Shares))
	for i, s := range r.Shares {
		out.Shares[i] = s
		if s.Items != nil {
			out.Shares[i].Items = append([]ItemShare(nil), s.Items...)
		}
	}
	return &out
}
