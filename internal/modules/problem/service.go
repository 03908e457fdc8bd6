package problem

import (
	"errors"
	"time"

	"github.com/the-flip/core/internal/models"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/webhook"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	webhooks *webhook.Service
	settings *appsettings.Service
}

func NewService(db *gorm.DB, logger *zap.Logger, webhooks *webhook.Service, settings *appsettings.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger.Named("problem"),
		webhooks: webhooks,
		settings: settings,
	}
}

type ListFilter struct {
	InstanceID string
	Status     string
	Severity   string
	Source     string
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.ProblemReportModel, response.Pagination, error) {
	query := s.db.Model(&models.ProblemReportModel{}).
		Preload("Instance").Preload("Instance.Model")
	if f.InstanceID != "" {
		query = query.Where("instance_id = ?", f.InstanceID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.Severity != "" {
		query = query.Where("severity = ?", f.Severity)
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	query = query.Order("created_at DESC")

	var items []models.ProblemReportModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

func (s *Service) GetByID(id string) (*models.ProblemReportModel, error) {
	var r models.ProblemReportModel
	err := s.db.Preload("Instance").Preload("Instance.Model").Preload("Maintainer").
		Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrReportNotFound
	}
	return &r, err
}

// Create files a report. Anonymous visitors are held to a sliding-window
// quota per IP per instance; authenticated maintainers bypass it.
func (s *Service) Create(dto *CreateReportDTO, reporterIP, maintainerID string, source models.EntrySource) (*models.ProblemReportModel, error) {
	var instCount int64
	s.db.Model(&models.MachineInstanceModel{}).Where("id = ?", dto.InstanceID).Count(&instCount)
	if instCount == 0 {
		return nil, ErrInstanceNotFound
	}

	severity := dto.Severity
	if severity == "" {
		severity = models.SeverityPlayable
	}
	if !models.ValidReportSeverity(severity) {
		return nil, ErrBadSeverity
	}

	if maintainerID == "" && source == models.SourceWeb {
		if err := s.checkVisitorQuota(reporterIP, dto.InstanceID); err != nil {
			return nil, err
		}
	}

	r := models.ProblemReportModel{
		InstanceID:   dto.InstanceID,
		ReporterName: dto.ReporterName,
		ReporterIP:   reporterIP,
		Description:  dto.Description,
		Severity:     severity,
		Status:       models.ReportOpen,
		Source:       source,
	}
	if maintainerID != "" {
		r.MaintainerID = &maintainerID
	}
	if err := s.db.Create(&r).Error; err != nil {
		return nil, err
	}

	s.logger.Info("problem report filed",
		zap.String("report", r.ID),
		zap.String("instance", r.InstanceID),
		zap.String("severity", string(severity)),
		zap.String("source", string(source)))

	full, err := s.GetByID(r.ID)
	if err != nil {
		return &r, nil
	}
	s.webhooks.Dispatch(webhook.EventReportCreated, full)
	return full, nil
}

func (s *Service) checkVisitorQuota(reporterIP, instanceID string) error {
	cfg, err := s.settings.Get()
	if err != nil {
		return err
	}
	if !cfg.ProblemReports.AllowAnonymous {
		return ErrAnonymousOff
	}
	window := time.Duration(cfg.ProblemReports.WindowHours) * time.Hour
	if window <= 0 || cfg.ProblemReports.MaxPerWindow <= 0 {
		return nil
	}

	// Unscoped: deleting a spam report must not refill the sender's window.
	var count int64
	err = s.db.Unscoped().Model(&models.ProblemReportModel{}).
		Where("reporter_ip = ? AND instance_id = ? AND created_at > ?",
			reporterIP, instanceID, time.Now().Add(-window)).
		Count(&count).Error
	if err != nil {
		return err
	}
	if count >= int64(cfg.ProblemReports.MaxPerWindow) {
		return ErrRateLimited
	}
	return nil
}

// ChangeStatus moves a report through its lifecycle. Entering a terminal
// state stamps resolved_at/resolved_by; leaving one clears them.
func (s *Service) ChangeStatus(id string, status models.ReportStatus, maintainerID string) (*models.ProblemReportModel, error) {
	if !models.ValidReportStatus(status) {
		return nil, ErrBadStatus
	}
	r, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if r.Status == status {
		return r, nil
	}
	oldStatus := r.Status

	updates := map[string]interface{}{"status": status}
	nowResolved := status == models.ReportResolved || status == models.ReportWontFix
	if nowResolved && !r.Resolved() {
		now := time.Now()
		updates["resolved_at"] = now
		if maintainerID != "" {
			updates["resolved_by_id"] = maintainerID
		}
	}
	if !nowResolved && r.Resolved() {
		updates["resolved_at"] = nil
		updates["resolved_by_id"] = nil
	}

	if err := s.db.Model(&models.ProblemReportModel{}).Where("id = ?", r.ID).
		Updates(updates).Error; err != nil {
		return nil, err
	}

	r, err = s.GetByID(id)
	if err != nil {
		return nil, err
	}
	payload := map[string]interface{}{
		"report":     r,
		"old_status": oldStatus,
		"new_status": status,
	}
	s.webhooks.Dispatch(webhook.EventReportStatusChanged, payload)
	if nowResolved {
		s.webhooks.Dispatch(webhook.EventReportResolved, payload)
	}
	return r, nil
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.ProblemReportModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrReportNotFound
	}
	return nil
}
