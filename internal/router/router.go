package router

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"wasterescue/internal/handler"
	"wasterescue/internal/middleware"
)

// Handlers groups the HTTP handlers mounted by Setup.
type Handlers struct {
	Health *handler.HealthHandler
	Review *handler.ReviewHandler
	Batch  *handler.BatchHandler
}

// Setup configures the Gin engine with all routes and middleware.
func Setup(tokens middleware.TokenValidator, h Handlers, allowedOrigins []string, logger *slog.Logger) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.CORS(allowedOrigins))

	// Health checks
	r.GET("/healthz", h.Health.Liveness)
	r.GET("/readyz", h.Health.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.ReviewerAuth(tokens))

	reviews := v1.Group("/reviews")
	reviews.GET("", h.Review.List)
	reviews.GET("/:id", h.Review.Get)
	reviews.GET("/:id/export", h.Review.Export)
	reviews.POST("/:id/approve", h.Review.Approve)
	reviews.POST("/:id/reject", h.Review.Reject)

	v1.POST("/batches", h.Batch.Run)

	return r
}
