package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"github.com/reportworks/report-be/internal/worker/domain"
)

// Storage handles all database operations for the worker
type Storage struct {
	db     *sqlx.DB
	logger *slog.Logger
}

// NewStorage creates a new Storage instance
func NewStorage(db *sqlx.DB, logger *slog.Logger) *Storage {
	return &Storage{
		db:     db,
		logger: logger,
	}
}

// MarkPreparing sets the report to PREPARING. Safe to call on a report that is
// already PREPARING, which happens on redelivery.
func (s *Storage) MarkPreparing(ctx context.Context, reportID string) error {
	query := `
		UPDATE reports
		SET status = $1, updated_at = NOW()
		WHERE report_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, domain.ReportStatusPreparing, reportID)
	if err != nil {
		return fmt.Errorf("failed to mark report preparing: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return domain.ErrReportNotFound
	}

	return nil
}

// CompleteReport stores the summary and moves a PREPARING report to COMPLETED.
// The status guard keeps a late redelivery from disturbing a report the retry
// path already put back in flight.
func (s *Storage) CompleteReport(ctx context.Context, reportID, summary string) error {
	query := `
		UPDATE reports
		SET status = $1, summary = $2, updated_at = NOW()
		WHERE report_id = $3 AND status = $4
	`

	result, err := s.db.ExecContext(ctx, query, domain.ReportStatusCompleted, summary, reportID, domain.ReportStatusPreparing)
	if err != nil {
		return fmt.Errorf("failed to complete report: %w", err)
	}

	s.warnIfNoRows(result, reportID, domain.ReportStatusCompleted)
	return nil
}

// FailReport moves a PREPARING report to FAILED, guarded like CompleteReport
func (s *Storage) FailReport(ctx context.Context, reportID string) error {
	query := `
		UPDATE reports
		SET status = $1, updated_at = NOW()
		WHERE report_id = $2 AND status = $3
	`

	result, err := s.db.ExecContext(ctx, query, domain.ReportStatusFailed, reportID, domain.ReportStatusPreparing)
	if err != nil {
		return fmt.Errorf("failed to mark report failed: %w", err)
	}

	s.warnIfNoRows(result, reportID, domain.ReportStatusFailed)
	return nil
}

func (s *Storage) warnIfNoRows(result sql.Result, reportID, status string) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected for status update",
			slog.String("report_id", reportID),
			slog.String("error", err.Error()),
		)
		return
	}

	if rowsAffected == 0 {
		s.logger.Warn("Report status update matched no rows (report gone or not preparing)",
			slog.String("report_id", reportID),
			slog.String("status", status),
		)
	}
}
