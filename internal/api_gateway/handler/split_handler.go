package handler

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tabsplit/internal/api_gateway/middleware"
	"github.com/tabsplit/internal/api_gateway/service"
	"github.com/tabsplit/internal/domain/split"
	"github.com/tabsplit/internal/split_engine"
)

// SplitHandler handles split calculation and split session requests
type SplitHandler struct {
	splitService service.SplitService
	logger       *slog.Logger
}

// NewSplitHandler creates a new split handler
func NewSplitHandler(logger *slog.Logger, splitService service.SplitService) *SplitHandler {
	return &SplitHandler{
		splitService: splitService,
		logger:       logger,
	}
}

// Equal computes an equal split
func (h *SplitHandler) Equal(c *gin.Context) {
	var req EqualSplitRequest
	if !h.bind(c, &req) {
		return
	}
	h.calculate(c, req.BillID, req.Participants, split.Equal(req.ParticipantIDs...), req.Tip)
}

// Custom computes a split from per-person base amounts
func (h *SplitHandler) Custom(c *gin.Context) {
	var req CustomSplitRequest
	if !h.bind(c, &req) {
		return
	}
	h.calculate(c, req.BillID, req.Participants, split.Custom(req.Amounts), req.Tip)
}

// Items computes a split from line item assignments
func (h *SplitHandler) Items(c *gin.Context) {
	var req ItemSplitRequest
	if !h.bind(c, &req) {
		return
	}
	h.calculate(c, req.BillID, req.Participants, split.ItemBased(req.Assignments), req.Tip)
}

func (h *SplitHandler) calculate(c *gin.Context, billID string, participants []ParticipantRequest, strategy split.Strategy, tip *TipRequest) {
	result, err := h.splitService.Calculate(c.Request.Context(), billID, toParticipants(participants), strategy, tip.toTip())
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, result)
}

// Tip re-allocates a tip over a supplied split
func (h *SplitHandler) Tip(c *gin.Context) {
	var req TipAllocationRequest
	if !h.bind(c, &req) {
		return
	}

	result, err := h.splitService.AllocateTip(c.Request.Context(), req.Split, split_engine.Tip{
		Amount:     req.Tip.Amount,
		Percentage: req.Tip.Percentage,
	})
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, result)
}

// Validate diagnoses a proposed split. An invalid split is still a 200; the
// verdict is in the body.
func (h *SplitHandler) Validate(c *gin.Context) {
	var req ProposedSplitRequest
	if !h.bind(c, &req) {
		return
	}

	v, err := h.splitService.Validate(c.Request.Context(), req.BillID, toParticipants(req.Participants), req.Strategy, req.Split)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, v)
}

// Execute commits a validated split as the bill's session split
func (h *SplitHandler) Execute(c *gin.Context) {
	var req ProposedSplitRequest
	if !h.bind(c, &req) {
		return
	}

	state, err := h.splitService.Execute(
		c.Request.Context(),
		req.BillID,
		toParticipants(req.Participants),
		req.Strategy,
		req.Split,
		middleware.GetCorrelationID(c),
	)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondCreated(c, mapStateToResponse(state))
}

// GetSplit returns the bill's committed split session
func (h *SplitHandler) GetSplit(c *gin.Context) {
	state, err := h.splitService.GetSplit(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapStateToResponse(state))
}

// GetProgress returns the bill's payment progress
func (h *SplitHandler) GetProgress(c *gin.Context) {
	state, progress, err := h.splitService.GetProgress(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, ProgressResponse{
		BillID:   state.BillID,
		Status:   state.Status,
		Version:  state.Version,
		Progress: progress,
	})
}

// GetHistory pages the bill's change journal
func (h *SplitHandler) GetHistory(c *gin.Context) {
	var pagination PaginationParams
	if err := c.ShouldBindQuery(&pagination); err != nil {
		RespondBadRequest(c, "Invalid pagination parameters")
		return
	}

	entries, total, err := h.splitService.GetHistory(c.Request.Context(), c.Param("id"), pagination.Page, pagination.PerPage)
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondWithPaginatedData(c, http.StatusOK, entries, pagination.Page, pagination.PerPage, int(total))
}

// Cancel closes the bill's split session after an upstream cancellation
func (h *SplitHandler) Cancel(c *gin.Context) {
	state, err := h.splitService.Cancel(c.Request.Context(), c.Param("id"), middleware.GetCorrelationID(c))
	if err != nil {
		RespondDomainError(c, h.logger, err)
		return
	}
	RespondOK(c, mapStateToResponse(state))
}

func (h *SplitHandler) bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		h.logger.Info("Invalid request body", "path", c.FullPath(), "error", err)
		RespondBadRequest(c, "Invalid request body: "+err.Error())
		return false
	}
	return true
}
