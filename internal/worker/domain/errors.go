package domain

import "errors"

var (
	// ErrReportNotFound is returned when a report row no longer exists
	ErrReportNotFound = errors.New("report not found")

	// ErrInvalidParameters is returned when a report's parameters blob cannot be parsed
	ErrInvalidParameters = errors.New("invalid report parameters")
)
