package handler

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/tabsplit/internal/api_gateway/middleware"
	"github.com/tabsplit/internal/api_gateway/service"
	"github.com/tabsplit/internal/domain/shared"
)

// PaymentHandler accepts payment lifecycle events over HTTP
type PaymentHandler struct {
	paymentService service.PaymentService
	logger         *slog.Logger
	now            func() time.Time
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(logger *slog.Logger, paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{
		paymentService: paymentService,
		logger:         logger,
		now:            time.Now,
	}
}

// Started reports that a participant began paying
func (h *PaymentHandler) Started(c *gin.Context) {
	h.submit(c, shared.PaymentEventStarted)
}

// Completed reports a settled payment
func (h *PaymentHandler) Completed(c *gin.Context) {
	h.submit(c, shared.PaymentEventCompleted)
}

// Failed reports a failed payment attempt
func (h *PaymentHandler) Failed(c *gin.Context) {
	h.submit(c, shared.PaymentEventFailed)
}

func (h *PaymentHandler) submit(c *gin.Context, eventType shared.PaymentEventType) {
	var req PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Info("Invalid payment request body", "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	eventID := uuid.New()
	if req.EventID != "" {
		parsed, err := uuid.Parse(req.EventID)
		if err != nil {
			RespondBadRequest(c, "Invalid event ID")
			return
		}
		eventID = parsed
	}
	occurredAt := h.now().UTC()
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	event := &shared.PaymentEvent{
		EventID:             eventID,
		Type:                eventType,
		BillID:              c.Param("id"),
		PersonID:            req.PersonID,
		Amount:              req.Amount,
		TipAmount:           req.TipAmount,
		SettlementReference: req.SettlementReference,
		Reason:              req.Reason,
		CorrelationID:       middleware.GetCorrelationID(c),
		OccurredAt:          occurredAt,
	}

	state, duplicate, err := h.paymentService.Submit(c.Request.Context(), event)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, PaymentResponse{Duplicate: duplicate, State: mapStateToResponse(state)})
}
