package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tabsplit/internal/api_gateway/middleware"
	"github.com/tabsplit/internal/domain/bill"
	"github.com/tabsplit/internal/domain/reconciliation"
	"github.com/tabsplit/internal/domain/shared"
	"github.com/tabsplit/internal/domain/split"
)

// Response is the envelope every JSON endpoint answers with
type Response struct {
	Data          any        `json:"data,omitempty"`
	Error         *ErrorInfo `json:"error,omitempty"`
	CorrelationID string     `json:"correlation_id,omitempty"`
	Meta          *MetaInfo  `json:"meta,omitempty"`
}

// ErrorInfo describes a failed request. TotalCheck is set when a split
// does not add up to the bill.
type ErrorInfo struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Details    []string          `json:"details,omitempty"`
	TotalCheck *split.TotalCheck `json:"total_check,omitempty"`
}

// MetaInfo carries history pagination
type MetaInfo struct {
	Page       int `json:"page,omitempty"`
	PerPage    int `json:"per_page,omitempty"`
	TotalPages int `json:"total_pages,omitempty"`
	TotalItems int `json:"total_items,omitempty"`
}

func pageMeta(page, perPage, totalItems int) *MetaInfo {
	meta := &MetaInfo{Page: page, PerPage: perPage, TotalItems: totalItems}
	if perPage > 0 {
		meta.TotalPages = (totalItems + perPage - 1) / perPage
	}
	return meta
}

func send(c *gin.Context, status int, resp *Response) {
	resp.CorrelationID = middleware.GetCorrelationID(c)
	c.JSON(status, resp)
}

func RespondOK(c *gin.Context, data any) {
	send(c, http.StatusOK, &Response{Data: data})
}

func RespondCreated(c *gin.Context, data any) {
	send(c, http.StatusCreated, &Response{Data: data})
}

// RespondWithPaginatedData answers with one page of a longer listing
func RespondWithPaginatedData(c *gin.Context, status int, data any, page, perPage, totalItems int) {
	send(c, status, &Response{Data: data, Meta: pageMeta(page, perPage, totalItems)})
}

func RespondWithError(c *gin.Context, status int, code, message string) {
	send(c, status, &Response{Error: &ErrorInfo{Code: code, Message: message}})
}

func RespondBadRequest(c *gin.Context, message string) {
	RespondWithError(c, http.StatusBadRequest, "BAD_REQUEST", message)
}

func RespondNotFound(c *gin.Context, message string) {
	RespondWithError(c, http.StatusNotFound, "NOT_FOUND", message)
}

// RespondUnprocessable answers a split the bill cannot accept
func RespondUnprocessable(c *gin.Context, info *ErrorInfo) {
	send(c, http.StatusUnprocessableEntity, &Response{Error: info})
}

func RespondInternalError(c *gin.Context) {
	RespondWithError(c, http.StatusInternalServerError, "INTERNAL_SERVER_ERROR", "An internal server error occurred")
}

// RespondDomainError maps split, reconciliation and lookup errors onto the
// response envelope. Anything unrecognized is logged and answered with a 500.
func RespondDomainError(c *gin.Context, logger *slog.Logger, err error) {
	var (
		mismatch   split.ErrAmountMismatch
		invalid    split.ErrInvalidSplit
		unassigned split.ErrUnassignedItem
		unknownIt  split.ErrUnknownItem
		unknownPer split.ErrUnknownParticipant
	)

	switch {
	case errors.As(err, &mismatch):
		RespondUnprocessable(c, &ErrorInfo{
			Code:    "AMOUNT_MISMATCH",
			Message: err.Error(),
			TotalCheck: &split.TotalCheck{
				Expected:   mismatch.Expected,
				Calculated: mismatch.Calculated,
				Difference: mismatch.Difference(),
			},
		})
	case errors.As(err, &invalid):
		info := &ErrorInfo{Code: "INVALID_SPLIT", Message: err.Error()}
		if invalid.Validation != nil {
			info.Details = invalid.Validation.Errors
			tc := invalid.Validation.TotalCheck
			info.TotalCheck = &tc
		}
		RespondUnprocessable(c, info)
	case errors.As(err, &unassigned):
		RespondUnprocessable(c, &ErrorInfo{Code: "UNASSIGNED_ITEM", Message: err.Error()})
	case errors.As(err, &unknownIt):
		RespondUnprocessable(c, &ErrorInfo{Code: "UNKNOWN_ITEM", Message: err.Error()})
	case errors.As(err, &unknownPer):
		RespondUnprocessable(c, &ErrorInfo{Code: "UNKNOWN_PARTICIPANT", Message: err.Error()})
	case errors.Is(err, reconciliation.ErrSplitLocked{}):
		RespondWithError(c, http.StatusConflict, "SPLIT_LOCKED", err.Error())
	case errors.Is(err, reconciliation.ErrInvalidTransition{}):
		RespondWithError(c, http.StatusConflict, "INVALID_TRANSITION", err.Error())
	case errors.Is(err, reconciliation.ErrSessionClosed{}):
		RespondWithError(c, http.StatusConflict, "SESSION_CLOSED", err.Error())
	case errors.Is(err, reconciliation.ErrStateNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, bill.ErrBillNotFound{}):
		RespondNotFound(c, err.Error())
	case errors.Is(err, shared.ErrInvalidEventType),
		errors.Is(err, shared.ErrMissingBillID),
		errors.Is(err, shared.ErrMissingPersonID),
		errors.Is(err, shared.ErrNegativeAmount):
		RespondBadRequest(c, err.Error())
	default:
		logger.Error("Request failed", "path", c.FullPath(), "correlation_id", middleware.GetCorrelationID(c), "error", err)
		RespondInternalError(c)
	}
}
