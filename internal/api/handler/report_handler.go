package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/reportworks/report-be/internal/api/dto"
)

// CreateReport handles POST /api/v1/reports
// Inserts a report row and enqueues a processing request
func (h *ReportHandler) CreateReport(c *gin.Context) {
	var req dto.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Error("Invalid request body", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request body",
		})
		return
	}

	report, err := h.service.CreateReport(c.Request.Context(), req.Kind, req.Parameters)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.CreateReportResponse{
		ReportID:    report.ReportID,
		Status:      report.Status,
		RequestedAt: report.RequestedAt.Format(time.RFC3339),
	})
}

// GetReport handles GET /api/v1/reports/:report_id
// Serves the tiered read: cache, then durable detail rows, then metadata only
func (h *ReportHandler) GetReport(c *gin.Context) {
	reportID := c.Param("report_id")
	if !h.validReportID(c, reportID) {
		return
	}

	resp, err := h.service.GetReportByID(c.Request.Context(), reportID)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListReports handles GET /api/v1/reports
func (h *ReportHandler) ListReports(c *gin.Context) {
	items, err := h.service.ListReports(c.Request.Context())
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ListReportsResponse{
		Reports: items,
		Total:   len(items),
	})
}

// RetryReport handles POST /api/v1/reports/:report_id/retry
// Legal only for failed reports
func (h *ReportHandler) RetryReport(c *gin.Context) {
	reportID := c.Param("report_id")
	if !h.validReportID(c, reportID) {
		return
	}

	if err := h.service.RetryReport(c.Request.Context(), reportID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Report re-enqueued for processing",
		"report_id": reportID,
	})
}

// PromoteReport handles POST /api/v1/reports/:report_id/promote
// Moves the cache payload into durable detail rows
func (h *ReportHandler) PromoteReport(c *gin.Context) {
	reportID := c.Param("report_id")
	if !h.validReportID(c, reportID) {
		return
	}

	if err := h.service.SaveReportPermanently(c.Request.Context(), reportID); err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Report saved permanently",
		"report_id": reportID,
	})
}

// DeleteReport handles DELETE /api/v1/reports/:report_id
func (h *ReportHandler) DeleteReport(c *gin.Context) {
	reportID := c.Param("report_id")
	if !h.validReportID(c, reportID) {
		return
	}

	if err := h.service.DeleteReport(c.Request.Context(), reportID); err != nil {
		h.respondError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *ReportHandler) validReportID(c *gin.Context, reportID string) bool {
	if _, err := uuid.Parse(reportID); err != nil {
		h.logger.Error("Invalid report_id format",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()),
		)
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "report_id must be a valid UUID",
		})
		return false
	}
	return true
}
