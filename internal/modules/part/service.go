package part

import (
	"errors"

	"github.com/the-flip/core/internal/models"
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
}

func NewService(db *gorm.DB, logger *zap.Logger, webhooks *webhook.Service) *Service {
	return &Service{db: db, logger: logger.Named("part"), webhooks: webhooks}
}

type ListFilter struct {
	InstanceID string
	Status     string
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.PartRequestModel, response.Pagination, error) {
	query := s.db.Model(&models.PartRequestModel{}).
		Preload("Instance").Preload("Instance.Model")
	if f.InstanceID != "" {
		query = query.Where("instance_id = ?", f.InstanceID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	query = query.Order("created_at DESC")

	var items []models.PartRequestModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

func (s *Service) GetByID(id string) (*models.PartRequestModel, error) {
	var r models.PartRequestModel
	err := s.db.Preload("Instance").Preload("Instance.Model").
		Preload("Updates", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at ASC")
		}).
		Where("id = ?", id).First(&r).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRequestNotFound
	}
	return &r, err
}

func (s *Service) Create(dto *CreateRequestDTO, maintainerID string) (*models.PartRequestModel, error) {
	var instCount int64
	s.db.Model(&models.MachineInstanceModel{}).Where("id = ?", dto.InstanceID).Count(&instCount)
	if instCount == 0 {
		return nil, ErrInstanceNotFound
	}

	quantity := dto.Quantity
	if quantity < 1 {
		quantity = 1
	}

	r := models.PartRequestModel{
		InstanceID:  dto.InstanceID,
		PartName:    dto.PartName,
		PartNumber:  dto.PartNumber,
		SupplierURL: dto.SupplierURL,
		Quantity:    quantity,
		Status:      models.PartRequested,
		Notes:       dto.Notes,
	}
	if maintainerID != "" {
		r.MaintainerID = &maintainerID
	}
	if err := s.db.Create(&r).Error; err != nil {
		return nil, err
	}

	s.logger.Info("part request created",
		zap.String("request", r.ID),
		zap.String("instance", r.InstanceID),
		zap.String("part", r.PartName))

	full, err := s.GetByID(r.ID)
	if err != nil {
		return &r, nil
	}
	s.webhooks.Dispatch(webhook.EventPartRequestCreated, full)
	return full, nil
}

func (s *Service) Update(id string, dto *UpdateRequestDTO) (*models.PartRequestModel, error) {
	r, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.PartName != nil {
		updates["part_name"] = *dto.PartName
	}
	if dto.PartNumber != nil {
		updates["part_number"] = *dto.PartNumber
	}
	if dto.SupplierURL != nil {
		updates["supplier_url"] = *dto.SupplierURL
	}
	if dto.Quantity != nil && *dto.Quantity >= 1 {
		updates["quantity"] = *dto.Quantity
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	if len(updates) == 0 {
		return r, nil
	}
	if err := s.db.Model(r).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetByID(id)
}

// ChangeStatus transitions the request and appends the history row in one
// transaction. A no-op transition appends nothing.
func (s *Service) ChangeStatus(id string, dto *ChangeStatusDTO, maintainerID string) (*models.PartRequestModel, error) {
	if !models.ValidPartStatus(dto.Status) {
		return nil, ErrBadStatus
	}
	r, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	if r.Status == dto.Status {
		return r, nil
	}
	oldStatus := r.Status

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.PartRequestModel{}).
			Where("id = ?", r.ID).Update("status", dto.Status).Error; err != nil {
			return err
		}
		update := models.PartUpdateModel{
			RequestID: r.ID,
			Note:      dto.Note,
			OldStatus: oldStatus,
			NewStatus: dto.Status,
		}
		if maintainerID != "" {
			update.MaintainerID = &maintainerID
		}
		return tx.Create(&update).Error
	})
	if err != nil {
		return nil, err
	}

	r, err = s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.webhooks.Dispatch(webhook.EventPartStatusChanged, map[string]interface{}{
		"request":    r,
		"old_status": oldStatus,
		"new_status": dto.Status,
	})
	return r, nil
}

func (s *Service) ListUpdates(requestID string) ([]models.PartUpdateModel, error) {
	if _, err := s.GetByID(requestID); err != nil {
		return nil, err
	}
	var updates []models.PartUpdateModel
	return updates, s.db.Where("request_id = ?", requestID).
		Order("created_at ASC").Find(&updates).Error
}

func (s *Service) Delete(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.PartRequestModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrRequestNotFound
	}
	return nil
}
