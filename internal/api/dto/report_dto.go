package dto

import "time"

type CreateReportRequest struct {
	Kind       string `json:"kind" binding:"required"`
	Parameters string `json:"parameters"`
}

type CreateReportResponse struct {
	ReportID    string `json:"report_id"`
	Status      string `json:"status"`
	RequestedAt string `json:"requested_at"`
}

type ReportListItem struct {
	ReportID    string `json:"report_id"`
	RequestedAt string `json:"requested_at"`
	Status      string `json:"status"`
	Kind        string `json:"kind"`
}

type ListReportsResponse struct {
	Reports []ReportListItem `json:"reports"`
	Total   int              `json:"total"`
}

type DetailRowDTO struct {
	DetailID       string `json:"detail_id,omitempty"`
	Group          string `json:"group"`
	PersonCount    int    `json:"person_count"`
	SecondaryCount int    `json:"secondary_count"`
	TertiaryCount  int    `json:"tertiary_count"`
}

// SmartReportResponse covers every retrieval outcome: an in-flight or failed
// report, a cache hit, durable detail rows, or metadata only.
type SmartReportResponse struct {
	ReportID       string         `json:"report_id"`
	Kind           string         `json:"kind"`
	Status         string         `json:"status"`
	RequestedAt    string         `json:"requested_at"`
	Parameters     string         `json:"parameters"`
	Summary        string         `json:"summary"`
	Details        []DetailRowDTO `json:"details"`
	DataSource     string         `json:"data_source"`
	Message        string         `json:"message"`
	CacheCreatedAt *time.Time     `json:"cache_created_at,omitempty"`
	CacheExpiresAt *time.Time     `json:"cache_expires_at,omitempty"`
}
