package handler

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"wasterescue/internal/domain"
	"wasterescue/internal/export"
	"wasterescue/internal/middleware"
	"wasterescue/internal/service"
)

// ReviewHandler handles the human review endpoints.
type ReviewHandler struct {
	reviewService service.ReviewService
	logger        *slog.Logger
	now           func() time.Time
}

// NewReviewHandler creates a new ReviewHandler.
func NewReviewHandler(reviewService service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{reviewService: reviewService, logger: logger, now: time.Now}
}

type approveRequest struct {
	Rows []domain.CleanedRow `json:"rows"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

// List handles GET /api/v1/reviews?status=pending_review
func (h *ReviewHandler) List(c *gin.Context) {
	var status domain.DocumentStatus
	if raw := strings.TrimSpace(c.Query("status")); raw != "" {
		parsed, err := domain.ParseDocumentStatus(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "INVALID_STATUS", err.Error())
			return
		}
		status = parsed
	}

	entries, err := h.reviewService.List(c.Request.Context(), status)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondList(c, entries, len(entries))
}

// Get handles GET /api/v1/reviews/:id
func (h *ReviewHandler) Get(c *gin.Context) {
	entry, err := h.reviewService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, entry)
}

// Approve handles POST /api/v1/reviews/:id/approve. The body is optional;
// when it carries rows they replace the extracted ones.
func (h *ReviewHandler) Approve(c *gin.Context) {
	reviewer, err := middleware.GetReviewer(c)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	entry, err := h.reviewService.Approve(c.Request.Context(), &service.ApproveInput{
		DocumentID: c.Param("id"),
		ReviewedBy: reviewer,
		Rows:       req.Rows,
	})
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, entry)
}

// Reject handles POST /api/v1/reviews/:id/reject
func (h *ReviewHandler) Reject(c *gin.Context) {
	reviewer, err := middleware.GetReviewer(c)
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	var req rejectRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		RespondError(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		return
	}

	entry, err := h.reviewService.Reject(c.Request.Context(), &service.RejectInput{
		DocumentID: c.Param("id"),
		ReviewedBy: reviewer,
		Reason:     req.Reason,
	})
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, entry)
}

// Export handles GET /api/v1/reviews/:id/export?format=csv|xlsx
func (h *ReviewHandler) Export(c *gin.Context) {
	format := strings.ToLower(c.DefaultQuery("format", "csv"))
	if format != "csv" && format != "xlsx" {
		RespondError(c, http.StatusBadRequest, "INVALID_FORMAT", "format must be csv or xlsx")
		return
	}

	entry, err := h.reviewService.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}

	filename := export.BuildFilename(strings.TrimSuffix(entry.Filename, filepath.Ext(entry.Filename)), format, h.now())
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	switch format {
	case "xlsx":
		c.Header("Content-Type", domain.ContentTypes["xlsx"])
		c.Status(http.StatusOK)
		err = export.WriteXLSX(c.Writer, &entry.ExtractionResult)
	default:
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		err = export.WriteCSV(c.Writer, &entry.ExtractionResult)
	}
	if err != nil {
		// Headers are already sent; only log.
		requestID, _ := c.Get(middleware.ContextKeyRequestID)
		logger := h.logger
		if logger == nil {
			logger = slog.Default()
		}
		logger.Error("export failed", "request_id", requestID, "document_id", entry.DocumentID, "error", err)
	}
}

