package domain

import "time"

// Report status constants
const (
	ReportStatusPreparing = "PREPARING"
	ReportStatusCompleted = "COMPLETED"
	ReportStatusFailed    = "FAILED"
)

// Report kind constants
const (
	ReportKindLocationBased = "LOCATION_BASED"
	ReportKindCompanyBased  = "COMPANY_BASED"
	ReportKindGeneral       = "GENERAL"
)

// Data source constants for the tiered read path
const (
	DataSourceCache    = "CACHE"
	DataSourceDatabase = "DATABASE"
	DataSourceNone     = "NONE"
)

// ValidKind reports whether kind is a known report kind
func ValidKind(kind string) bool {
	switch kind {
	case ReportKindLocationBased, ReportKindCompanyBased, ReportKindGeneral:
		return true
	}
	return false
}

// StatusMessage returns the user-facing message for a non-completed report
func StatusMessage(status string) string {
	switch status {
	case ReportStatusPreparing:
		return "Report is still being prepared."
	case ReportStatusFailed:
		return "Report generation failed. Retry the report."
	default:
		return "Report status is unknown."
	}
}

// ReportRequestMessage is the wire representation of a processing request
type ReportRequestMessage struct {
	ReportID    string    `json:"report_id"`
	Kind        string    `json:"kind"`
	Parameters  string    `json:"parameters"`
	RequestedAt time.Time `json:"requested_at"`
}
