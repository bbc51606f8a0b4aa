package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/techcadd/exam-admin-service/internal/services"
	"github.com/techcadd/exam-admin-service/internal/utils"
	"github.com/techcadd/exam-admin-service/internal/validator"
)

// BaseHandler carries the pieces every handler needs
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// ErrorResponse is the JSON error envelope
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse is the JSON success envelope for operations without a
// natural body
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// RespondWithError writes an error response with logging
func (h *BaseHandler) RespondWithError(c *gin.Context, status int, message string, err error) {
	var details interface{}
	if err != nil {
		details = err.Error()
	}
	h.logger.Warn("Request failed",
		"status", status,
		"message", message,
		"error", details,
		"path", c.Request.URL.Path)
	c.JSON(status, ErrorResponse{
		Message: message,
		Details: details,
	})
}

// handleServiceError maps service layer errors onto HTTP status codes:
// missing records are 404, validation failures 400, state preconditions
// 409, everything else 500.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	switch {
	case services.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
			Details: err.Error(),
		})

	case services.IsValidation(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: validationDetails(err),
		})

	case services.IsPrecondition(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Operation not allowed in current state",
			Details: err.Error(),
		})

	default:
		h.logger.Error("Internal error", "error", err, "path", c.Request.URL.Path)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// parsePagination reads limit/offset query params with sane defaults
func parsePagination(c *gin.Context) (limit, offset int) {
	limit = 50
	if v, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	if v, err := strconv.Atoi(c.DefaultQuery("offset", "0")); err == nil && v >= 0 {
		offset = v
	}
	return limit, offset
}

// validationDetails preserves structured field errors where available
func validationDetails(err error) interface{} {
	var single *services.ValidationError
	if errors.As(err, &single) {
		return []services.ValidationError{*single}
	}
	var many services.ValidationErrors
	if errors.As(err, &many) {
		return many
	}
	var structErrs validator.ValidationErrors
	if errors.As(err, &structErrs) {
		return structErrs
	}
	return err.Error()
}
