package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/reportworks/report-be/internal/api/domain"
	"github.com/reportworks/report-be/internal/api/model"
	"github.com/reportworks/report-be/shared/postgresql"
)

type Storage struct {
	db *sqlx.DB
}

func NewStorage(pg *postgresql.Client) *Storage {
	return &Storage{
		db: pg.GetDB(),
	}
}

func (s *Storage) CreateReport(ctx context.Context, report *model.Report) error {
	query := `
		INSERT INTO reports (
			report_id, kind, parameters, summary,
			status, requested_at, updated_at
		) VALUES (
			$1, $2, $3, $4,
			$5, $6, $7
		)
	`

	_, err := s.db.ExecContext(
		ctx,
		query,
		report.ReportID,
		report.Kind,
		report.Parameters,
		report.Summary,
		report.Status,
		report.RequestedAt,
		report.UpdatedAt,
	)

	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}

	return nil
}

func (s *Storage) GetReportByID(ctx context.Context, reportID string) (*model.Report, error) {
	var report model.Report
	query := `
		SELECT
			report_id, kind, parameters, summary,
			status, requested_at, updated_at
		FROM reports
		WHERE report_id = $1
	`

	err := s.db.GetContext(ctx, &report, query, reportID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrReportNotFound
		}
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	return &report, nil
}

func (s *Storage) ListReports(ctx context.Context) ([]model.Report, error) {
	query := `
		SELECT
			report_id, kind, parameters, summary,
			status, requested_at, updated_at
		FROM reports
		ORDER BY requested_at DESC, report_id DESC
	`

	var reports []model.Report
	if err := s.db.SelectContext(ctx, &reports, query); err != nil {
		return nil, fmt.Errorf("failed to list reports: %w", err)
	}

	return reports, nil
}

func (s *Storage) UpdateStatus(ctx context.Context, reportID, status string) error {
	query := `
		UPDATE reports
		SET status = $1, updated_at = NOW()
		WHERE report_id = $2
	`

	result, err := s.db.ExecContext(ctx, query, status, reportID)
	if err != nil {
		return fmt.Errorf("failed to update report status: %w", err)
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

// AppendDetailRows inserts durable detail rows for a report in one transaction.
// Fails with ErrReportNotFound when the report row is gone.
func (s *Storage) AppendDetailRows(ctx context.Context, reportID string, rows []model.ReportDetail) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var exists bool
	if err := tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM reports WHERE report_id = $1)`, reportID); err != nil {
		return fmt.Errorf("failed to check report existence: %w", err)
	}
	if !exists {
		return domain.ErrReportNotFound
	}

	query := `
		INSERT INTO report_details (
			detail_id, report_id, group_key,
			person_count, secondary_count, tertiary_count
		) VALUES (
			:detail_id, :report_id, :group_key,
			:person_count, :secondary_count, :tertiary_count
		)
	`

	if _, err := tx.NamedExecContext(ctx, query, rows); err != nil {
		return fmt.Errorf("failed to insert detail rows: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit detail rows: %w", err)
	}

	return nil
}

func (s *Storage) GetDetailRows(ctx context.Context, reportID string) ([]model.ReportDetail, error) {
	query := `
		SELECT
			detail_id, report_id, group_key,
			person_count, secondary_count, tertiary_count
		FROM report_details
		WHERE report_id = $1
		ORDER BY group_key
	`

	var rows []model.ReportDetail
	if err := s.db.SelectContext(ctx, &rows, query, reportID); err != nil {
		return nil, fmt.Errorf("failed to get detail rows: %w", err)
	}

	return rows, nil
}

// DeleteReport removes a report; detail rows go with it via FK cascade
func (s *Storage) DeleteReport(ctx context.Context, reportID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE report_id = $1`, reportID)
	if err != nil {
		return fmt.Errorf("failed to delete report: %w", err)
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
