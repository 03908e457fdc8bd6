package worklog

import (
	"errors"
	"time"

	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/modules/webhook"
	"github.com/the-flip/core/internal/pkg/markdown"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	webhooks *webhook.Service
}

func NewService(db *gorm.DB, logger *zap.Logger, webhooks *webhook.Service) *Service {
	return &Service{db: db, logger: logger.Named("worklog"), webhooks: webhooks}
}

type ListFilter struct {
	InstanceID   string
	MaintainerID string
	Source       string
	ReportID     string
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.LogEntryModel, response.Pagination, error) {
	query := s.db.Model(&models.LogEntryModel{}).
		Preload("Maintainer").Preload("Instance").Preload("Instance.Model")
	if f.InstanceID != "" {
		query = query.Where("instance_id = ?", f.InstanceID)
	}
	if f.MaintainerID != "" {
		query = query.Where("maintainer_id = ?", f.MaintainerID)
	}
	if f.Source != "" {
		query = query.Where("source = ?", f.Source)
	}
	if f.ReportID != "" {
		query = query.Where("report_id = ?", f.ReportID)
	}
	query = query.Order("created_at DESC")

	var items []models.LogEntryModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

func (s *Service) GetByID(id string) (*models.LogEntryModel, error) {
	var e models.LogEntryModel
	err := s.db.Preload("Maintainer").Preload("Instance").Preload("Instance.Model").
		Where("id = ?", id).First(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrEntryNotFound
	}
	return &e, err
}

// Create records a work entry. When closes_report is set, the linked report
// is resolved in the same transaction.
func (s *Service) Create(dto *CreateEntryDTO, maintainerID string, source models.EntrySource) (*models.LogEntryModel, error) {
	var instCount int64
	s.db.Model(&models.MachineInstanceModel{}).Where("id = ?", dto.InstanceID).Count(&instCount)
	if instCount == 0 {
		return nil, ErrInstanceNotFound
	}

	if dto.ClosesReport && dto.ReportID == nil {
		return nil, ErrCloseWithoutReport
	}

	var report *models.ProblemReportModel
	if dto.ReportID != nil {
		var r models.ProblemReportModel
		if err := s.db.Where("id = ?", *dto.ReportID).First(&r).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrReportNotFound
			}
			return nil, err
		}
		if r.InstanceID != dto.InstanceID {
			return nil, ErrReportMismatch
		}
		if dto.ClosesReport && r.Resolved() {
			return nil, ErrReportClosed
		}
		report = &r
	}

	if maintainerID != "" && dto.Attribution == "" {
		var m models.MaintainerModel
		if err := s.db.Select("shared_terminal").Where("id = ?", maintainerID).
			First(&m).Error; err == nil && m.SharedTerminal {
			return nil, ErrNeedsAttribution
		}
	}

	entry := models.LogEntryModel{
		InstanceID:   dto.InstanceID,
		Attribution:  dto.Attribution,
		Text:         dto.Text,
		ReportID:     dto.ReportID,
		ClosesReport: dto.ClosesReport,
		Source:       source,
	}
	if maintainerID != "" {
		entry.MaintainerID = &maintainerID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}
		if dto.ClosesReport && report != nil {
			updates := map[string]interface{}{
				"status":      models.ReportResolved,
				"resolved_at": time.Now(),
			}
			if maintainerID != "" {
				updates["resolved_by_id"] = maintainerID
			}
			return tx.Model(&models.ProblemReportModel{}).
				Where("id = ?", report.ID).Updates(updates).Error
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("log entry created",
		zap.String("entry", entry.ID),
		zap.String("instance", entry.InstanceID),
		zap.Bool("closes_report", entry.ClosesReport),
		zap.String("source", string(source)))

	full, err := s.GetByID(entry.ID)
	if err != nil {
		return &entry, nil
	}
	s.webhooks.Dispatch(webhook.EventLogEntryCreated, full)
	if dto.ClosesReport && report != nil {
		if closed, err := s.reloadReport(report.ID); err == nil {
			s.webhooks.Dispatch(webhook.EventReportResolved, map[string]interface{}{
				"report":     closed,
				"old_status": report.Status,
				"new_status": models.ReportResolved,
			})
		}
	}
	return full, nil
}

func (s *Service) reloadReport(id string) (*models.ProblemReportModel, error) {
	var r models.ProblemReportModel
	err := s.db.Preload("Instance").Where("id = ?", id).First(&r).Error
	return &r, err
}

func (s *Service) Update(id string, dto *UpdateEntryDTO) (*models.LogEntryModel, error) {
	e, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	updates := map[string]interface{}{}
	if dto.Text != nil {
		updates["text"] = *dto.Text
	}
	if dto.Attribution != nil {
		updates["attribution"] = *dto.Attribution
	}
	if len(updates) == 0 {
		return e, nil
	}
	if err := s.db.Model(e).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.LogEntryModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrEntryNotFound
	}
	return nil
}

// RenderHTML renders the entry body from markdown.
func (s *Service) RenderHTML(id string) (string, error) {
	e, err := s.GetByID(id)
	if err != nil {
		return "", err
	}
	return markdown.Render(e.Text)
}
