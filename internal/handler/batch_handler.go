package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"wasterescue/internal/domain"
	"wasterescue/internal/service"
)

// BatchHandler triggers orchestrator cycles on demand.
type BatchHandler struct {
	orchestrator     service.Orchestrator
	defaultBatchSize int
	logger           *slog.Logger
}

// NewBatchHandler creates a new BatchHandler.
func NewBatchHandler(orchestrator service.Orchestrator, defaultBatchSize int, logger *slog.Logger) *BatchHandler {
	return &BatchHandler{orchestrator: orchestrator, defaultBatchSize: defaultBatchSize, logger: logger}
}

// Run handles POST /api/v1/batches?size=N
func (h *BatchHandler) Run(c *gin.Context) {
	size := h.defaultBatchSize
	if raw := c.Query("size"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			RespondError(c, http.StatusBadRequest, "INVALID_SIZE", "size must be a positive integer")
			return
		}
		size = n
	}

	report, err := h.orchestrator.RunBatch(c.Request.Context(), size)
	if errors.Is(err, domain.ErrNoDocuments) {
		RespondOK(c, gin.H{"status": domain.BatchStatusNoFiles})
		return
	}
	if err != nil {
		HandleError(c, h.logger, err)
		return
	}
	RespondOK(c, report)
}
