package machine

import (
	"errors"
	"fmt"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
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
	// autocomplete results are cached briefly; the catalog changes rarely
	// compared to how often the picker fires.
	cache *gocache.Cache
}

func NewService(db *gorm.DB, logger *zap.Logger, webhooks *webhook.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger.Named("machine"),
		webhooks: webhooks,
		cache:    gocache.New(time.Minute, 5*time.Minute),
	}
}

type ModelListFilter struct {
	Manufacturer string
	MachineType  string
	Search       string
}

func (s *Service) ListModels(q pagination.Query, f ModelListFilter) ([]models.MachineModel, response.Pagination, error) {
	query := s.db.Model(&models.MachineModel{})
	if f.Manufacturer != "" {
		query = query.Where("manufacturer = ?", f.Manufacturer)
	}
	if f.MachineType != "" {
		query = query.Where("machine_type = ?", f.MachineType)
	}
	if f.Search != "" {
		like := "%" + f.Search + "%"
		query = query.Where("name LIKE ? OR manufacturer LIKE ?", like, like)
	}
	query = query.Order("name ASC")

	var items []models.MachineModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

// GetModel fetches by ID first, then slug fallback.
func (s *Service) GetModel(identifier string) (*models.MachineModel, error) {
	var m models.MachineModel
	err := s.db.Preload("Instances").Where("id = ?", identifier).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = s.db.Preload("Instances").Where("slug = ?", identifier).First(&m).Error
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrModelNotFound
	}
	return &m, err
}

func (s *Service) CreateModel(dto *CreateModelDTO) (*models.MachineModel, error) {
	var count int64
	s.db.Model(&models.MachineModel{}).Where("name = ?", dto.Name).Count(&count)
	if count > 0 {
		return nil, ErrNameTaken
	}

	machineType := dto.MachineType
	if machineType == "" {
		machineType = models.MachineSolidState
	}

	base := dto.Slug
	if base == "" {
		base = slugify(dto.Name)
	}

	m := models.MachineModel{
		Name:          dto.Name,
		Slug:          uniquifySlug(s.db, "machine_models", base, ""),
		Manufacturer:  dto.Manufacturer,
		ReleaseYear:   dto.ReleaseYear,
		MachineType:   machineType,
		IPDBID:        dto.IPDBID,
		Abbreviations: dto.Abbreviations,
		Description:   dto.Description,
	}
	if err := s.db.Create(&m).Error; err != nil {
		return nil, err
	}
	s.cache.Flush()
	s.webhooks.Dispatch(webhook.EventMachineCreated, m)
	return &m, nil
}

func (s *Service) UpdateModel(id string, dto *UpdateModelDTO) (*models.MachineModel, error) {
	m, err := s.GetModel(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.Name != nil && *dto.Name != m.Name {
		var count int64
		s.db.Model(&models.MachineModel{}).Where("name = ? AND id <> ?", *dto.Name, m.ID).Count(&count)
		if count > 0 {
			return nil, ErrNameTaken
		}
		updates["name"] = *dto.Name
	}
	if dto.Slug != nil && *dto.Slug != m.Slug {
		updates["slug"] = uniquifySlug(s.db, "machine_models", slugify(*dto.Slug), m.ID)
	}
	if dto.Manufacturer != nil {
		updates["manufacturer"] = *dto.Manufacturer
	}
	if dto.ReleaseYear != nil {
		updates["release_year"] = *dto.ReleaseYear
	}
	if dto.MachineType != nil {
		updates["machine_type"] = *dto.MachineType
	}
	if dto.IPDBID != nil {
		updates["ipdb_id"] = *dto.IPDBID
	}
	if dto.Abbreviations != nil {
		updates["abbreviations"] = models.StringArray(dto.Abbreviations)
	}
	if dto.Description != nil {
		updates["description"] = *dto.Description
	}
	if len(updates) == 0 {
		return m, nil
	}

	if err := s.db.Model(m).Updates(updates).Error; err != nil {
		return nil, err
	}
	s.cache.Flush()

	m, err = s.GetModel(m.ID)
	if err == nil {
		s.webhooks.Dispatch(webhook.EventMachineUpdated, m)
	}
	return m, err
}

// DeleteModel refuses while instances still reference the model.
func (s *Service) DeleteModel(id string) error {
	var count int64
	s.db.Model(&models.MachineInstanceModel{}).Where("model_id = ?", id).Count(&count)
	if count > 0 {
		return ErrHasInstances
	}
	result := s.db.Where("id = ?", id).Delete(&models.MachineModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrModelNotFound
	}
	s.cache.Flush()
	return nil
}

// Autocomplete matches names, slugs, and registered abbreviations.
func (s *Service) Autocomplete(term string) ([]autocompleteEntry, error) {
	term = strings.TrimSpace(strings.ToLower(term))
	if term == "" {
		return []autocompleteEntry{}, nil
	}

	cacheKey := "ac:" + term
	if hit, ok := s.cache.Get(cacheKey); ok {
		return hit.([]autocompleteEntry), nil
	}

	like := "%" + term + "%"
	var rows []models.MachineModel
	if err := s.db.
		Where("LOWER(name) LIKE ? OR slug LIKE ? OR LOWER(abbreviations) LIKE ?", like, like, like).
		Order("name ASC").Limit(10).Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]autocompleteEntry, len(rows))
	for i, r := range rows {
		out[i] = autocompleteEntry{
			ID: r.ID, Name: r.Name, Slug: r.Slug,
			Manufacturer: r.Manufacturer, ReleaseYear: r.ReleaseYear,
		}
	}
	s.cache.SetDefault(cacheKey, out)
	return out, nil
}

type InstanceListFilter struct {
	ModelID string
	Zone    string
	Status  string
	OnFloor *bool
}

func (s *Service) ListInstances(q pagination.Query, f InstanceListFilter) ([]models.MachineInstanceModel, response.Pagination, error) {
	query := s.db.Model(&models.MachineInstanceModel{}).Preload("Model")
	if f.ModelID != "" {
		query = query.Where("model_id = ?", f.ModelID)
	}
	if f.Zone != "" {
		query = query.Where("zone = ?", f.Zone)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.OnFloor != nil {
		query = query.Where("on_floor = ?", *f.OnFloor)
	}
	query = query.Order("asset_tag ASC")

	var items []models.MachineInstanceModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

func (s *Service) GetInstance(id string) (*models.MachineInstanceModel, error) {
	var inst models.MachineInstanceModel
	err := s.db.Preload("Model").Where("id = ?", id).First(&inst).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInstanceNotFound
	}
	return &inst, err
}

func (s *Service) CreateInstance(dto *CreateInstanceDTO) (*models.MachineInstanceModel, error) {
	if _, err := s.GetModel(dto.ModelID); err != nil {
		return nil, err
	}
	var count int64
	s.db.Model(&models.MachineInstanceModel{}).Where("asset_tag = ?", dto.AssetTag).Count(&count)
	if count > 0 {
		return nil, ErrAssetTagTaken
	}

	status := dto.Status
	if status == "" {
		status = models.InstanceOperational
	}
	if !models.ValidInstanceStatus(status) {
		return nil, ErrBadStatus
	}

	onFloor := true
	if dto.OnFloor != nil {
		onFloor = *dto.OnFloor
	}

	inst := models.MachineInstanceModel{
		ModelID:  dto.ModelID,
		AssetTag: dto.AssetTag,
		Zone:     dto.Zone,
		OnFloor:  onFloor,
		Status:   status,
		Notes:    dto.Notes,
	}
	if err := s.db.Create(&inst).Error; err != nil {
		return nil, err
	}
	return s.GetInstance(inst.ID)
}

func (s *Service) UpdateInstance(id string, dto *UpdateInstanceDTO) (*models.MachineInstanceModel, error) {
	inst, err := s.GetInstance(id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	if dto.AssetTag != nil && *dto.AssetTag != inst.AssetTag {
		var count int64
		s.db.Model(&models.MachineInstanceModel{}).
			Where("asset_tag = ? AND id <> ?", *dto.AssetTag, inst.ID).Count(&count)
		if count > 0 {
			return nil, ErrAssetTagTaken
		}
		updates["asset_tag"] = *dto.AssetTag
	}
	if dto.Zone != nil {
		updates["zone"] = *dto.Zone
	}
	if dto.OnFloor != nil {
		updates["on_floor"] = *dto.OnFloor
	}
	if dto.Notes != nil {
		updates["notes"] = *dto.Notes
	}
	if len(updates) == 0 {
		return inst, nil
	}
	if err := s.db.Model(inst).Updates(updates).Error; err != nil {
		return nil, err
	}
	return s.GetInstance(id)
}

// ChangeStatus transitions an instance and records a system log entry for
// the audit trail. A no-op transition records nothing.
func (s *Service) ChangeStatus(id string, dto *ChangeStatusDTO, maintainerID string) (*models.MachineInstanceModel, error) {
	if !models.ValidInstanceStatus(dto.Status) {
		return nil, ErrBadStatus
	}
	inst, err := s.GetInstance(id)
	if err != nil {
		return nil, err
	}
	if inst.Status == dto.Status {
		return inst, nil
	}
	oldStatus := inst.Status

	text := fmt.Sprintf("Status changed from %s to %s", oldStatus, dto.Status)
	if dto.Note != "" {
		text += ": " + dto.Note
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.MachineInstanceModel{}).
			Where("id = ?", inst.ID).Update("status", dto.Status).Error; err != nil {
			return err
		}
		entry := models.LogEntryModel{
			InstanceID: inst.ID,
			Text:       text,
			Source:     models.SourceSystem,
		}
		if maintainerID != "" {
			entry.MaintainerID = &maintainerID
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		return nil, err
	}

	inst, err = s.GetInstance(inst.ID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("instance status changed",
		zap.String("instance", inst.ID),
		zap.String("asset_tag", inst.AssetTag),
		zap.String("from", string(oldStatus)),
		zap.String("to", string(dto.Status)))
	s.webhooks.Dispatch(webhook.EventMachineStatusChanged, map[string]interface{}{
		"instance":   inst,
		"old_status": oldStatus,
		"new_status": dto.Status,
	})
	return inst, nil
}

func (s *Service) DeleteInstance(id string) error {
	result := s.db.Where("id = ?", id).Delete(&models.MachineInstanceModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrInstanceNotFound
	}
	return nil
}

// Zones lists distinct zone names in use, for filter dropdowns.
func (s *Service) Zones() ([]string, error) {
	var zones []string
	err := s.db.Model(&models.MachineInstanceModel{}).
		Where("zone <> ''").Distinct("zone").Order("zone ASC").Pluck("zone", &zones).Error
	return zones, err
}
