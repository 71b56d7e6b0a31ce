package handler

import (
	"io"
	"log/slog"

	"github.com/gin-gonic/gin"
)

// StreamReportStatus handles GET /api/v1/reports/:report_id/events
// Pushes status-change events over SSE for as long as the client stays
// connected. Events are a latency optimization only: a client that connects
// after a broadcast must poll GetReport for the current state.
func (h *ReportHandler) StreamReportStatus(c *gin.Context) {
	reportID := c.Param("report_id")
	if !h.validReportID(c, reportID) {
		return
	}

	sub := h.broadcaster.Subscribe(c.Request.Context(), reportID)
	defer sub.Close()

	h.logger.Info("Status stream opened",
		slog.String("report_id", reportID),
		slog.String("client", c.ClientIP()),
	)

	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-sub.Events():
			if !ok {
				return false
			}
			c.SSEvent("status", event)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})

	h.logger.Info("Status stream closed",
		slog.String("report_id", reportID),
	)
}
