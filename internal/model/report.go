package model

import "time"

// Report log statuses. Status transitions past IN_PROGRESS are owned by
// a downstream consumer; this service only records the initial request.
const (
	ReportStatusInProgress = "IN_PROGRESS"
)

// ReportLog tracks an asynchronous report job requested from the remote API.
type ReportLog struct {
	ID          int64     `json:"id"`
	ReportType  string    `json:"report_type"`
	RequestedAt time.Time `json:"requested_at"`
	Status      string    `json:"status"`
	ReportID    string    `json:"report_id"`
}
