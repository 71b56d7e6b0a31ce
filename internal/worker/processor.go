package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/reportworks/report-be/internal/cache"
	"github.com/reportworks/report-be/internal/notify"
	"github.com/reportworks/report-be/internal/worker/domain"
)

// reportParameters is the request parameters blob stored on the report
type reportParameters struct {
	Filters []string `json:"filters"`
}

// reportSummary is the summary blob written to the cache payload and the
// report row on completion
type reportSummary struct {
	ReportKind          string   `json:"reportKind"`
	Filters             []string `json:"filters"`
	TotalPersonCount    int      `json:"totalPersonCount"`
	TotalSecondaryCount int      `json:"totalSecondaryCount"`
	TotalTertiaryCount  int      `json:"totalTertiaryCount"`
	TotalGroupCount     int      `json:"totalGroupCount"`
	TopGroups           []string `json:"topGroups"`
}

// processReport runs one report request end to end. A returned error means
// the report was marked FAILED (or could not be touched at all); the caller
// ACKs either way.
func (w *Worker) processReport(ctx context.Context, task *domain.ReportTask) error {
	reportID := task.Message.ReportID

	w.logger.Info("Processing report",
		slog.String("report_id", reportID),
		slog.String("kind", task.Message.Kind),
	)

	if err := w.store.MarkPreparing(ctx, reportID); err != nil {
		if errors.Is(err, domain.ErrReportNotFound) {
			// Report was deleted while queued, nothing to do
			w.logger.Warn("Report no longer exists, skipping",
				slog.String("report_id", reportID),
			)
			return nil
		}
		return fmt.Errorf("failed to mark report preparing: %w", err)
	}

	w.publishStatus(ctx, reportID, domain.ReportStatusPreparing, "Report processing started.")

	filters, err := parseFilters(task.Message.Parameters)
	if err != nil {
		return w.failReport(ctx, reportID, fmt.Errorf("%w: %v", domain.ErrInvalidParameters, err))
	}

	data, err := w.directory.FetchReportData(ctx, task.Message.Kind, filters)
	if err != nil {
		return w.failReport(ctx, reportID, fmt.Errorf("failed to fetch report data: %w", err))
	}

	summary := reportSummary{
		ReportKind:          task.Message.Kind,
		Filters:             filters,
		TotalPersonCount:    data.TotalPersonCount,
		TotalSecondaryCount: data.TotalSecondaryCount,
		TotalTertiaryCount:  data.TotalTertiaryCount,
		TotalGroupCount:     data.TotalGroupCount,
		TopGroups:           data.TopGroups,
	}

	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return w.failReport(ctx, reportID, fmt.Errorf("failed to marshal summary: %w", err))
	}

	details := make([]cache.DetailRow, 0, len(data.Details))
	for _, row := range data.Details {
		details = append(details, cache.DetailRow{
			Group:          row.Group,
			PersonCount:    row.PersonCount,
			SecondaryCount: row.SecondaryCount,
			TertiaryCount:  row.TertiaryCount,
		})
	}

	payload := &cache.ReportPayload{
		ReportID:   reportID,
		Kind:       task.Message.Kind,
		Parameters: task.Message.Parameters,
		Summary:    string(summaryJSON),
		Details:    details,
	}

	if err := w.cache.SetReport(ctx, payload); err != nil {
		return w.failReport(ctx, reportID, fmt.Errorf("failed to cache report result: %w", err))
	}

	if err := w.store.CompleteReport(ctx, reportID, string(summaryJSON)); err != nil {
		// Result is already cached; surface the error but keep the completion event
		w.logger.Error("Failed to persist report completion",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()),
		)
	}

	w.publishStatus(ctx, reportID, domain.ReportStatusCompleted, "Report is ready.")

	w.logger.Info("Report completed",
		slog.String("report_id", reportID),
		slog.Int("detail_rows", len(details)),
	)

	return nil
}

// failReport records the failure on the report row and notifies subscribers
func (w *Worker) failReport(ctx context.Context, reportID string, cause error) error {
	if err := w.store.FailReport(ctx, reportID); err != nil {
		w.logger.Error("Failed to mark report as FAILED",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()),
		)
	}

	w.publishStatus(ctx, reportID, domain.ReportStatusFailed, "Report generation failed. Retry the report.")

	return cause
}

// publishStatus pushes a status event, logging on failure. Notification is
// best effort; the report row stays the source of truth.
func (w *Worker) publishStatus(ctx context.Context, reportID, status, message string) {
	event := notify.StatusEvent{
		ReportID: reportID,
		Status:   status,
		Message:  message,
	}

	if err := w.notifier.Publish(ctx, event); err != nil {
		w.logger.Warn("Failed to publish status event",
			slog.String("report_id", reportID),
			slog.String("status", status),
			slog.String("error", err.Error()),
		)
	}
}

// parseFilters extracts filter values from the parameters blob. An empty blob
// means no filters; a blob that is present but unparseable is an error.
func parseFilters(parameters string) ([]string, error) {
	if parameters == "" {
		return nil, nil
	}

	var params reportParameters
	if err := json.Unmarshal([]byte(parameters), &params); err != nil {
		return nil, err
	}

	return params.Filters, nil
}
