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

// ReportRequestMessage is a processing request consumed from the transport
type ReportRequestMessage struct {
	ReportID    string    `json:"report_id"`
	Kind        string    `json:"kind"`
	Parameters  string    `json:"parameters"`
	RequestedAt time.Time `json:"requested_at"`
}

// ReportTask pairs a decoded request with its delivery tag for ack/nack
type ReportTask struct {
	Message     ReportRequestMessage
	DeliveryTag uint64
}
