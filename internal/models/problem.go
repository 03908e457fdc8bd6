package models

import "time"

// ReportSeverity grades how badly a problem affects play.
type ReportSeverity string

const (
	SeverityMinor      ReportSeverity = "minor"
	SeverityPlayable   ReportSeverity = "playable"
	SeverityUnplayable ReportSeverity = "unplayable"
)

// ValidReportSeverity reports whether s is one of the accepted grades.
func ValidReportSeverity(s ReportSeverity) bool {
	switch s {
	case SeverityMinor, SeverityPlayable, SeverityUnplayable:
		return true
	}
	return false
}

// ReportStatus is the lifecycle state of a problem report.
type ReportStatus string

const (
	ReportOpen         ReportStatus = "open"
	ReportAcknowledged ReportStatus = "acknowledged"
	ReportResolved     ReportStatus = "resolved"
	ReportWontFix      ReportStatus = "wont_fix"
)

// ValidReportStatus reports whether s is one of the accepted states.
func ValidReportStatus(s ReportStatus) bool {
	switch s {
	case ReportOpen, ReportAcknowledged, ReportResolved, ReportWontFix:
		return true
	}
	return false
}

// ProblemReportModel is a visitor- or maintainer-submitted issue ticket
// against a machine instance.
type ProblemReportModel struct {
	Base
	InstanceID   string                `json:"instance_id" gorm:"index;not null"`
	Instance     *MachineInstanceModel `json:"instance,omitempty" gorm:"foreignKey:InstanceID"`
	ReporterName string                `json:"reporter_name"`
	ReporterIP   string                `json:"-"           gorm:"index"`
	MaintainerID *string               `json:"maintainer_id" gorm:"index"`
	Maintainer   *MaintainerModel      `json:"maintainer,omitempty" gorm:"foreignKey:MaintainerID"`
	Description  string                `json:"description" gorm:"type:text;not null"`
	Severity     ReportSeverity        `json:"severity"    gorm:"index;default:'playable'"`
	Status       ReportStatus          `json:"status"      gorm:"index;default:'open'"`
	Source       EntrySource           `json:"source"      gorm:"index;default:'web'"`
	ResolvedAt   *time.Time            `json:"resolved_at"`
	ResolvedByID *string               `json:"resolved_by_id" gorm:"index"`
}

func (ProblemReportModel) TableName() string { return "problem_reports" }

// Resolved reports whether the ticket has reached a terminal state.
func (p *ProblemReportModel) Resolved() bool {
	return p.Status == ReportResolved || p.Status == ReportWontFix
}
