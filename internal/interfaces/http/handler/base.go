// Package handler holds the gin handlers of the recipe API.
package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/resepku/backend/internal/domain/shared"
	"github.com/resepku/backend/internal/infrastructure/logger"
	"github.com/resepku/backend/internal/interfaces/http/dto"
	"github.com/resepku/backend/internal/interfaces/http/middleware"
	"go.uber.org/zap"
)

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	return c.GetString(logger.GinRequestIDKey)
}

// Success sends a 200 response
func (h *BaseHandler) Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(data))
}

// SuccessList sends a 200 response carrying the list size
func (h *BaseHandler) SuccessList(c *gin.Context, data any, total int) {
	c.JSON(http.StatusOK, dto.NewListResponse(data, total))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, data any) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(data))
}

// NoContent sends a 204 no content response
func (h *BaseHandler) NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Error sends an error response with the status derived from code
func (h *BaseHandler) Error(c *gin.Context, code, message string) {
	c.JSON(dto.GetHTTPStatus(code), dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, dto.ErrCodeBadRequest, message)
}

// BindError answers a failed request binding
func (h *BaseHandler) BindError(c *gin.Context, err error) {
	middleware.HandleBindingError(c, err)
}

// PathID parses the :id path parameter. On failure it has already answered
// with 404, since a malformed id cannot name an existing recipe.
func (h *BaseHandler) PathID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, dto.ErrCodeNotFound, "Recipe not found")
		return uuid.Nil, false
	}
	return id, true
}

// HandleError converts an error into the error envelope. Domain errors keep
// their code and message; validation errors carry field details. Store and
// unknown errors are logged and masked.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	requestID := getRequestID(c)

	var domainErr *shared.DomainError
	if !errors.As(err, &domainErr) {
		logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.NewErrorResponseWithRequestID(
			dto.ErrCodeInternal, "An unexpected error occurred", requestID))
		return
	}

	status := dto.GetHTTPStatus(domainErr.Code)
	if status >= http.StatusInternalServerError {
		logger.GetGinLogger(c).Error("Request failed",
			zap.String("code", domainErr.Code),
			zap.Error(err),
		)
	}

	if domainErr.Code == shared.CodeValidation {
		c.JSON(status, dto.NewValidationErrorResponse(domainErr.Message, requestID, dto.DetailsFromMap(domainErr.Details)))
		return
	}

	message := domainErr.Message
	if status == http.StatusInternalServerError && domainErr.Code != shared.CodeStore {
		message = "An unexpected error occurred"
	}
	c.JSON(status, dto.NewErrorResponseWithRequestID(domainErr.Code, message, requestID))
}
