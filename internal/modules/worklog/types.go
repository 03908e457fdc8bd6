package worklog

import "errors"

type CreateEntryDTO struct {
	InstanceID   string  `json:"instance_id" binding:"required"`
	Text         string  `json:"text" binding:"required"`
	ReportID     *string `json:"report_id"`
	ClosesReport bool    `json:"closes_report"`
	Attribution  string  `json:"attribution"`
}

type UpdateEntryDTO struct {
	Text        *string `json:"text"`
	Attribution *string `json:"attribution"`
}

var (
	ErrEntryNotFound      = errors.New("log entry not found")
	ErrInstanceNotFound   = errors.New("machine instance not found")
	ErrReportNotFound     = errors.New("linked problem report not found")
	ErrReportMismatch     = errors.New("linked report belongs to a different instance")
	ErrReportClosed       = errors.New("linked report is already resolved")
	ErrCloseWithoutReport = errors.New("closes_report requires a linked report")
	ErrNeedsAttribution   = errors.New("shared terminal entries need an attribution name")
)
