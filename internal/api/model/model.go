package model

import "time"

type Report struct {
	ReportID    string    `db:"report_id"`
	Kind        string    `db:"kind"`
	Parameters  string    `db:"parameters"`
	Summary     string    `db:"summary"`
	Status      string    `db:"status"`
	RequestedAt time.Time `db:"requested_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

type ReportDetail struct {
	DetailID       string `db:"detail_id"`
	ReportID       string `db:"report_id"`
	GroupKey       string `db:"group_key"`
	PersonCount    int    `db:"person_count"`
	SecondaryCount int    `db:"secondary_count"`
	TertiaryCount  int    `db:"tertiary_count"`
}
