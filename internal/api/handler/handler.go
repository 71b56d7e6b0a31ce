package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/reportworks/report-be/internal/api/domain"
	"github.com/reportworks/report-be/internal/api/service"
	"github.com/reportworks/report-be/internal/notify"
)

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Logger      *slog.Logger
	Service     *service.ReportService
	Broadcaster *notify.Broadcaster
}

// ReportHandler handles report-related HTTP requests
type ReportHandler struct {
	logger      *slog.Logger
	service     *service.ReportService
	broadcaster *notify.Broadcaster
}

// NewReportHandler creates a new ReportHandler instance
func NewReportHandler(deps *Dependencies) *ReportHandler {
	return &ReportHandler{
		logger:      deps.Logger,
		service:     deps.Service,
		broadcaster: deps.Broadcaster,
	}
}

// respondError maps the error taxonomy onto HTTP statuses: not-found errors
// to 404, business errors to 400 with their stable code, the rest to 500.
func (h *ReportHandler) respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, domain.ErrReportNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Report not found",
			"entity": "report",
		})
	case errors.Is(err, domain.ErrCacheEntryNotFound):
		c.JSON(http.StatusNotFound, gin.H{
			"error":  "Report data not found or expired",
			"entity": "report_cache_entry",
		})
	default:
		var bizErr *domain.BusinessError
		if errors.As(err, &bizErr) {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": bizErr.Message,
				"code":  bizErr.Code,
			})
			return
		}
		h.logger.Error("Unhandled error",
			slog.String("path", c.Request.URL.Path),
			slog.Any("error", err),
		)
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Internal server error",
		})
	}
}
