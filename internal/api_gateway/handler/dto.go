package handler

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
	"github.com/tabsplit/internal/split_engine"
)

// ParticipantRequest is one paying party. List order breaks rounding ties.
type ParticipantRequest struct {
	PersonID    string `json:"person_id" binding:"required"`
	DisplayName string `json:"display_name"`
}

// TipRequest carries either a fixed amount in minor units or a percentage of the subtotal
type TipRequest struct {
	Amount     *int64           `json:"amount,omitempty"`
	Percentage *decimal.Decimal `json:"percentage,omitempty"`
}

func (t *TipRequest) toTip() *split_engine.Tip {
	if t == nil {
		return nil
	}
	return &split_engine.Tip{Amount: t.Amount, Percentage: t.Percentage}
}

// EqualSplitRequest divides the bill evenly. ParticipantIDs defaults to every participant.
type EqualSplitRequest struct {
	BillID         string               `json:"bill_id" binding:"required"`
	Participants   []ParticipantRequest `json:"participants" binding:"required,min=1,dive"`
	ParticipantIDs []string             `json:"participant_ids"`
	Tip            *TipRequest          `json:"tip,omitempty"`
}

// CustomSplitRequest assigns a base amount, in minor units, to each person
type CustomSplitRequest struct {
	BillID       string               `json:"bill_id" binding:"required"`
	Participants []ParticipantRequest `json:"participants" binding:"required,min=1,dive"`
	Amounts      map[string]int64     `json:"amounts" binding:"required"`
	Tip          *TipRequest          `json:"tip,omitempty"`
}

// ItemSplitRequest assigns line items to people
type ItemSplitRequest struct {
	BillID       string               `json:"bill_id" binding:"required"`
	Participants []ParticipantRequest `json:"participants" binding:"required,min=1,dive"`
	Assignments  map[string][]string  `json:"assignments" binding:"required"`
	Tip          *TipRequest          `json:"tip,omitempty"`
}

// TipAllocationRequest re-allocates a tip over a computed split
type TipAllocationRequest struct {
	Split *split.Result `json:"split" binding:"required"`
	Tip   TipRequest    `json:"tip"`
}

// ProposedSplitRequest is a split proposed for validation or execution
type ProposedSplitRequest struct {
	BillID       string               `json:"bill_id" binding:"required"`
	Participants []ParticipantRequest `json:"participants" binding:"required,min=1,dive"`
	Strategy     split.Strategy       `json:"strategy"`
	Split        *split.Result        `json:"split" binding:"required"`
}

// PaymentRequest reports a payment lifecycle step for one participant
type PaymentRequest struct {
	EventID             string     `json:"event_id" binding:"omitempty,uuid"`
	PersonID            string     `json:"person_id" binding:"required"`
	Amount              int64      `json:"amount" binding:"min=0"`
	TipAmount           int64      `json:"tip_amount" binding:"min=0"`
	SettlementReference string     `json:"settlement_reference,omitempty"`
	Reason              string     `json:"reason,omitempty"`
	OccurredAt          *time.Time `json:"occurred_at,omitempty"`
}

// SplitStateResponse is the committed split session of a bill
type SplitStateResponse struct {
	BillID       string                         `json:"bill_id"`
	SplitID      string                         `json:"split_id"`
	BusinessID   string                         `json:"business_id,omitempty"`
	TableCode    string                         `json:"table_code,omitempty"`
	Status       shared.SessionStatus           `json:"status"`
	Version      int64                          `json:"version"`
	Strategy     split.StrategyType             `json:"strategy"`
	Participants []split.Participant            `json:"participants"`
	Split        *split.Result                  `json:"split"`
	Payments     []reconciliation.PaymentRecord `json:"payments"`
	Progress     reconciliation.Progress        `json:"progress"`
	ReconciledAt string                         `json:"reconciled_at,omitempty"`
	CreatedAt    string                         `json:"created_at"`
	UpdatedAt    string                         `json:"updated_at"`
}

// ProgressResponse summarizes how much of the bill has been paid
type ProgressResponse struct {
	BillID  string               `json:"bill_id"`
	Status  shared.SessionStatus `json:"status"`
	Version int64                `json:"version"`
	reconciliation.Progress
}

// PaymentResponse is the outcome of a submitted payment event
type PaymentResponse struct {
	Duplicate bool                `json:"duplicate"`
	State     *SplitStateResponse `json:"state"`
}

// PaginationParams represents pagination parameters for list endpoints
type PaginationParams struct {
	Page    int `form:"page,default=1" binding:"min=1"`
	PerPage int `form:"per_page,default=20" binding:"min=1,max=100"`
}

func toParticipants(reqs []ParticipantRequest) []split.Participant {
	out := make([]split.Participant, len(reqs))
	for i, r := range reqs {
		out[i] = split.Participant{PersonID: r.PersonID, DisplayName: r.DisplayName}
	}
	return out
}

func mapStateToResponse(state *reconciliation.BillSplitState) *SplitStateResponse {
	resp := &SplitStateResponse{
		BillID:       state.BillID,
		SplitID:      state.SplitID.String(),
		BusinessID:   state.BusinessID,
		TableCode:    state.TableCode,
		Status:       state.Status,
		Version:      state.Version,
		Strategy:     state.Strategy.Type,
		Participants: state.Participants,
		Split:        state.Split,
		Payments:     state.OrderedRecords(),
		Progress:     state.Progress(),
		CreatedAt:    state.CreatedAt.Format(time.RFC3339),
		UpdatedAt:    state.UpdatedAt.Format(time.RFC3339),
	}
	if state.ReconciledAt != nil {
		resp.ReconciledAt = state.ReconciledAt.Format(time.RFC3339)
	}
	return resp
}
