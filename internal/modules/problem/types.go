package problem

import (
	"errors"

	"github.com/the-flip/core/internal/models"
)

type CreateReportDTO struct {
	InstanceID   string                `json:"instance_id" binding:"required"`
	Description  string                `json:"description" binding:"required"`
	Severity     models.ReportSeverity `json:"severity"`
	ReporterName string                `json:"reporter_name"`
}

type ChangeStatusDTO struct {
	Status models.ReportStatus `json:"status" binding:"required"`
}

var (
	ErrReportNotFound   = errors.New("problem report not found")
	ErrInstanceNotFound = errors.New("machine instance not found")
	ErrBadSeverity      = errors.New("invalid severity")
	ErrBadStatus        = errors.New("invalid report status")
	ErrRateLimited      = errors.New("too many reports for this machine, try again later")
	ErrAnonymousOff     = errors.New("anonymous reports are disabled")
)
