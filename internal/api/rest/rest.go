package rest

import (
	"github.com/gin-gonic/gin"
)

// SetupRoutes configures all REST API routes
func SetupRoutes(router *gin.Engine, handler Handler) {
	// Health check endpoint (no version prefix)
	router.GET("/health", handler.HealthCheck)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		// User endpoints
		v1.POST("/users", handler.RegisterUser)
		v1.GET("/users/:id/balance", handler.GetBalance)

		// Record endpoints
		v1.POST("/records", handler.CreateRecord)
		v1.GET("/records/:id", handler.GetRecord)
		v1.POST("/records/:id/review-requests", handler.CreateReviewRequest)

		// Feed endpoints (records grouped by lifecycle stage)
		v1.GET("/feed/:bucket", handler.ListFeed)

		// Resolution preview endpoint
		v1.GET("/resolution/preview", handler.PreviewResolution)

		// Manually triggered expiry sweep
		v1.POST("/reviews/sweep", handler.SweepExpired)
	}
}
