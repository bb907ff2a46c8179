package rest

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/logger"
)

// ErrorCode represents a standardized error code
type ErrorCode string

const (
	// Client errors (4xx)
	errCodeBadRequest          ErrorCode = "bad_request"
	errCodeNotFound            ErrorCode = "not_found"
	errCodeValidationFailed    ErrorCode = "validation_failed"
	errCodeInvalidState        ErrorCode = "invalid_state"
	errCodeAlreadyFinalized    ErrorCode = "already_finalized"
	errCodeInsufficientBalance ErrorCode = "insufficient_balance"
	errCodeConflict            ErrorCode = "conflict"

	// Server errors (5xx)
	errCodeInternalError ErrorCode = "internal_error"
)

// errorResponse represents a standardized error response
type errorResponse struct {
	Error errorDetail `json:"error"`
}

// errorDetail contains error information
type errorDetail struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

// respondError maps a domain error to its HTTP status and error code
func respondError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, errCodeInternalError

	switch {
	case errors.Is(err, domain.ErrUserNotFound),
		errors.Is(err, domain.ErrRecordNotFound),
		errors.Is(err, domain.ErrReviewRequestNotFound):
		status, code = http.StatusNotFound, errCodeNotFound
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusUnprocessableEntity, errCodeValidationFailed
	case errors.Is(err, domain.ErrRecordNotLive),
		errors.Is(err, domain.ErrReviewNotOpen):
		status, code = http.StatusConflict, errCodeInvalidState
	case errors.Is(err, domain.ErrAlreadyFinalized):
		status, code = http.StatusConflict, errCodeAlreadyFinalized
	case errors.Is(err, domain.ErrInsufficientBalance):
		status, code = http.StatusConflict, errCodeInsufficientBalance
	case errors.Is(err, domain.ErrConflict):
		status, code = http.StatusConflict, errCodeConflict
	}

	if status == http.StatusInternalServerError {
		logger.ErrorCtx(c.Request.Context(), err)
		c.JSON(status, errorResponse{Error: errorDetail{Code: code, Message: "Internal server error"}})
		return
	}

	c.JSON(status, errorResponse{Error: errorDetail{Code: code, Message: err.Error()}})
}

// respondBadRequest responds with a bad request error
func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: errorDetail{Code: errCodeBadRequest, Message: message}})
}
