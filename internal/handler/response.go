package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"wasterescue/internal/domain"
	"wasterescue/internal/middleware"
)

// APIResponse wraps every JSON body the API returns.
type APIResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *APIError   `json:"error,omitempty"`
	Meta    *ListMeta   `json:"meta,omitempty"`
}

// APIError is set on failed responses.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ListMeta accompanies list responses.
type ListMeta struct {
	Total int `json:"total"`
}

// RespondOK sends a 200 success response.
func RespondOK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data})
}

// RespondList sends a 200 success response with list metadata.
func RespondList(c *gin.Context, data interface{}, total int) {
	c.JSON(http.StatusOK, APIResponse{Success: true, Data: data, Meta: &ListMeta{Total: total}})
}

// RespondError sends an error response with the given status code.
func RespondError(c *gin.Context, status int, code, msg string) {
	c.JSON(status, APIResponse{
		Success: false,
		Error:   &APIError{Code: code, Message: msg},
	})
}

type errorMapping struct {
	target error
	status int
	code   string
	msg    string // empty means use err.Error()
}

// errorMappings is checked in order; the more specific review error comes
// before the generic not-found.
var errorMappings = []errorMapping{
	{domain.ErrReviewNotFound, http.StatusNotFound, "REVIEW_NOT_FOUND", "review entry not found"},
	{domain.ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"},
	{domain.ErrInvalidTransition, http.StatusConflict, "INVALID_TRANSITION", "document is not in a state that allows this action"},
	{domain.ErrInvalidResult, http.StatusUnprocessableEntity, "INVALID_RESULT", ""},
	{domain.ErrUnsupportedFileType, http.StatusBadRequest, "UNSUPPORTED_FILE_TYPE", "unsupported file type"},
	{domain.ErrUploadFailed, http.StatusBadGateway, "UPLOAD_FAILED", "upload to processed storage failed"},
	{domain.ErrDeleteFailed, http.StatusBadGateway, "DELETE_FAILED", "removing the source document failed; retry the approval"},
}

// MapDomainError translates domain errors to an HTTP status and error code.
func MapDomainError(err error) (status int, code, msg string) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.target) {
			continue
		}
		if m.msg == "" {
			return m.status, m.code, err.Error()
		}
		return m.status, m.code, m.msg
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR", "an internal error occurred"
}

// HandleError maps a domain error and sends the appropriate error response.
func HandleError(c *gin.Context, logger *slog.Logger, err error) {
	status, code, msg := MapDomainError(err)
	if status >= 500 {
		if logger == nil {
			logger = slog.Default()
		}
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		logger.Error("request failed", "request_id", requestID, "path", c.Request.URL.Path, "error", err)
	}
	RespondError(c, status, code, msg)
}
