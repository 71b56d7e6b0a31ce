package router

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reportworks/report-be/internal/api/handler"
)

// Options holds router tuning knobs
type Options struct {
	RateLimitRPS   float64
	RateLimitBurst int
}

// SetupRouter configures and returns the Gin router with all routes
func SetupRouter(deps *handler.Dependencies, opts Options) *gin.Engine {
	r := gin.New()

	// Middleware
	r.Use(gin.Recovery())
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORSMiddleware())
	r.Use(RateLimitMiddleware(opts.RateLimitRPS, opts.RateLimitBurst))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "report-api-service",
		})
	})

	reportHandler := handler.NewReportHandler(deps)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		reports := v1.Group("/reports")
		{
			// POST /api/v1/reports - Create a report and enqueue processing
			reports.POST("", reportHandler.CreateReport)

			// GET /api/v1/reports - List report summaries
			reports.GET("", reportHandler.ListReports)

			// GET /api/v1/reports/:report_id - Tiered report retrieval
			reports.GET("/:report_id", reportHandler.GetReport)

			// POST /api/v1/reports/:report_id/retry - Retry a failed report
			reports.POST("/:report_id/retry", reportHandler.RetryReport)

			// POST /api/v1/reports/:report_id/promote - Save cache data permanently
			reports.POST("/:report_id/promote", reportHandler.PromoteReport)

			// DELETE /api/v1/reports/:report_id - Delete a report
			reports.DELETE("/:report_id", reportHandler.DeleteReport)

			// GET /api/v1/reports/:report_id/events - SSE status stream
			reports.GET("/:report_id/events", reportHandler.StreamReportStatus)
		}
	}

	return r
}
