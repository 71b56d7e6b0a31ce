package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/reportworks/report-be/internal/api/domain"
	"github.com/reportworks/report-be/internal/api/dto"
	"github.com/reportworks/report-be/internal/api/model"
	"github.com/reportworks/report-be/internal/cache"
)

// ReportStore is the durable record of reports and promoted detail rows
type ReportStore interface {
	CreateReport(ctx context.Context, report *model.Report) error
	GetReportByID(ctx context.Context, reportID string) (*model.Report, error)
	ListReports(ctx context.Context) ([]model.Report, error)
	UpdateStatus(ctx context.Context, reportID, status string) error
	AppendDetailRows(ctx context.Context, reportID string, rows []model.ReportDetail) error
	GetDetailRows(ctx context.Context, reportID string) ([]model.ReportDetail, error)
	DeleteReport(ctx context.Context, reportID string) error
}

// ResultCache is the short-lived store of computed report payloads
type ResultCache interface {
	GetReport(ctx context.Context, reportID string) (*cache.ReportPayload, error)
	DeleteReport(ctx context.Context, reportID string) error
}

// MessagePublisher enqueues report request messages for the processor
type MessagePublisher interface {
	PublishWithRetry(ctx context.Context, routingKey string, body []byte, contentType string) error
}

// ReportService orchestrates report submission, tiered retrieval, retry,
// promotion and deletion.
type ReportService struct {
	store     ReportStore
	cache     ResultCache
	publisher MessagePublisher
	logger    *slog.Logger
}

// NewReportService creates a new report service
func NewReportService(store ReportStore, resultCache ResultCache, publisher MessagePublisher, logger *slog.Logger) *ReportService {
	return &ReportService{
		store:     store,
		cache:     resultCache,
		publisher: publisher,
		logger:    logger,
	}
}

// CreateReport inserts a report row and enqueues a processing request. When
// the enqueue fails the row is kept and a business error is surfaced; the
// caller can submit again.
func (s *ReportService) CreateReport(ctx context.Context, kind, parameters string) (*model.Report, error) {
	if !domain.ValidKind(kind) {
		return nil, domain.NewBusinessError(domain.CodeInvalidKind,
			fmt.Sprintf("unknown report kind: %s", kind))
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate report id: %w", err)
	}

	now := time.Now().UTC()
	report := &model.Report{
		ReportID:    id.String(),
		Kind:        kind,
		Parameters:  parameters,
		Status:      domain.ReportStatusPreparing,
		RequestedAt: now,
		UpdatedAt:   now,
	}

	if err := s.store.CreateReport(ctx, report); err != nil {
		return nil, err
	}

	if err := s.publishRequest(ctx, report); err != nil {
		s.logger.Error("Failed to enqueue report request",
			slog.String("report_id", report.ReportID),
			slog.Any("error", err),
		)
		return nil, domain.NewBusinessError(domain.CodeEnqueueFailed,
			"Report processing is currently unavailable. Please try again later.")
	}

	s.logger.Info("Report created and enqueued",
		slog.String("report_id", report.ReportID),
		slog.String("kind", kind),
	)

	return report, nil
}

// GetReportByID implements the tiered read: a live cache entry wins, then
// durable detail rows, then metadata only.
func (s *ReportService) GetReportByID(ctx context.Context, reportID string) (*dto.SmartReportResponse, error) {
	report, err := s.store.GetReportByID(ctx, reportID)
	if err != nil {
		return nil, err
	}

	resp := &dto.SmartReportResponse{
		ReportID:    report.ReportID,
		Kind:        report.Kind,
		Status:      report.Status,
		RequestedAt: report.RequestedAt.Format(time.RFC3339),
		Parameters:  report.Parameters,
		Summary:     report.Summary,
		Details:     []dto.DetailRowDTO{},
	}

	if report.Status != domain.ReportStatusCompleted {
		resp.DataSource = domain.DataSourceNone
		resp.Message = domain.StatusMessage(report.Status)
		return resp, nil
	}

	payload, err := s.cache.GetReport(ctx, reportID)
	if err == nil {
		for _, row := range payload.Details {
			resp.Details = append(resp.Details, dto.DetailRowDTO{
				Group:          row.Group,
				PersonCount:    row.PersonCount,
				SecondaryCount: row.SecondaryCount,
				TertiaryCount:  row.TertiaryCount,
			})
		}
		resp.Summary = payload.Summary
		resp.DataSource = domain.DataSourceCache
		resp.Message = "Report data served from cache."
		createdAt := payload.CreatedAt
		expiresAt := payload.ExpiresAt
		resp.CacheCreatedAt = &createdAt
		resp.CacheExpiresAt = &expiresAt
		return resp, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// A cache outage must not take retrieval down; fall through to the
		// durable tiers.
		s.logger.Warn("Cache lookup failed, falling back to database",
			slog.String("report_id", reportID),
			slog.Any("error", err),
		)
	}

	rows, err := s.store.GetDetailRows(ctx, reportID)
	if err != nil {
		return nil, err
	}

	if len(rows) > 0 {
		for _, row := range rows {
			resp.Details = append(resp.Details, dto.DetailRowDTO{
				DetailID:       row.DetailID,
				Group:          row.GroupKey,
				PersonCount:    row.PersonCount,
				SecondaryCount: row.SecondaryCount,
				TertiaryCount:  row.TertiaryCount,
			})
		}
		resp.DataSource = domain.DataSourceDatabase
		resp.Message = "Report data is stored permanently."
		return resp, nil
	}

	resp.DataSource = domain.DataSourceNone
	resp.Message = "Report details not found. The cache entry expired and the report was never saved permanently."
	return resp, nil
}

// ListReports returns summaries of all reports, newest first
func (s *ReportService) ListReports(ctx context.Context) ([]dto.ReportListItem, error) {
	reports, err := s.store.ListReports(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.ReportListItem, len(reports))
	for i, report := range reports {
		items[i] = dto.ReportListItem{
			ReportID:    report.ReportID,
			RequestedAt: report.RequestedAt.Format(time.RFC3339),
			Status:      report.Status,
			Kind:        report.Kind,
		}
	}

	return items, nil
}

// RetryReport re-enqueues a failed report. When the republish fails the
// status is rolled back to FAILED so the report is never left PREPARING with
// no in-flight message.
func (s *ReportService) RetryReport(ctx context.Context, reportID string) error {
	report, err := s.store.GetReportByID(ctx, reportID)
	if err != nil {
		return err
	}

	if report.Status != domain.ReportStatusFailed {
		return domain.NewBusinessError(domain.CodeRetryInvalidState,
			"Only failed reports can be retried.")
	}

	if err := s.store.UpdateStatus(ctx, reportID, domain.ReportStatusPreparing); err != nil {
		return err
	}

	if err := s.publishRequest(ctx, report); err != nil {
		s.logger.Error("Failed to re-enqueue report request, rolling back status",
			slog.String("report_id", reportID),
			slog.Any("error", err),
		)
		if rbErr := s.store.UpdateStatus(ctx, reportID, domain.ReportStatusFailed); rbErr != nil {
			s.logger.Error("Failed to roll back report status to FAILED",
				slog.String("report_id", reportID),
				slog.Any("error", rbErr),
			)
		}
		return domain.NewBusinessError(domain.CodeEnqueueFailed,
			"Report processing is currently unavailable. Please try again later.")
	}

	s.logger.Info("Report re-enqueued for processing",
		slog.String("report_id", reportID),
	)

	return nil
}

// SaveReportPermanently promotes the report's cache payload into durable
// detail rows, then removes the cache entry. This is the only path by which
// ephemeral data becomes durable.
func (s *ReportService) SaveReportPermanently(ctx context.Context, reportID string) error {
	if _, err := s.store.GetReportByID(ctx, reportID); err != nil {
		return err
	}

	payload, err := s.cache.GetReport(ctx, reportID)
	if err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return domain.ErrCacheEntryNotFound
		}
		return err
	}

	rows := make([]model.ReportDetail, len(payload.Details))
	for i, row := range payload.Details {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("failed to generate detail id: %w", err)
		}
		rows[i] = model.ReportDetail{
			DetailID:       id.String(),
			ReportID:       reportID,
			GroupKey:       row.Group,
			PersonCount:    row.PersonCount,
			SecondaryCount: row.SecondaryCount,
			TertiaryCount:  row.TertiaryCount,
		}
	}

	if err := s.store.AppendDetailRows(ctx, reportID, rows); err != nil {
		return err
	}

	if err := s.cache.DeleteReport(ctx, reportID); err != nil {
		return fmt.Errorf("report promoted but cache entry not removed: %w", err)
	}

	s.logger.Info("Report saved permanently",
		slog.String("report_id", reportID),
		slog.Int("detail_rows", len(rows)),
	)

	return nil
}

// DeleteReport removes the report and its durable detail rows; the cache
// entry is deleted best-effort.
func (s *ReportService) DeleteReport(ctx context.Context, reportID string) error {
	if err := s.store.DeleteReport(ctx, reportID); err != nil {
		return err
	}

	if err := s.cache.DeleteReport(ctx, reportID); err != nil {
		s.logger.Warn("Failed to delete cache entry for removed report",
			slog.String("report_id", reportID),
			slog.Any("error", err),
		)
	}

	s.logger.Info("Report deleted",
		slog.String("report_id", reportID),
	)

	return nil
}

func (s *ReportService) publishRequest(ctx context.Context, report *model.Report) error {
	msg := domain.ReportRequestMessage{
		ReportID:    report.ReportID,
		Kind:        report.Kind,
		Parameters:  report.Parameters,
		RequestedAt: report.RequestedAt,
	}

	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal report request: %w", err)
	}

	// The report id rides in the routing key so it serves as the ordering key
	routingKey := "report.request." + report.ReportID

	return s.publisher.PublishWithRetry(ctx, routingKey, body, "application/json")
}
