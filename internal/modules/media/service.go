package media

import (
	"context"
	"errors"
	"mime/multipart"
	"path/filepath"
	"strings"
	"time"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
	"github.com/the-flip/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TaskTypeTranscode is the queue task type for the video pipeline.
const TaskTypeTranscode = "transcode_video"

// TranscodePayload is the task payload for one attachment.
type TranscodePayload struct {
	AttachmentID string `json:"attachment_id"`
}

type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	store    *Store
	settings *appsettings.Service
	queue    *taskqueue.Service
}

func NewService(db *gorm.DB, logger *zap.Logger, store *Store, settings *appsettings.Service, queue *taskqueue.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger.Named("media"),
		store:    store,
		settings: settings,
		queue:    queue,
	}
}

func (s *Service) Store() *Store { return s.store }

// Upload validates and stores one attachment. Photos become ready at once;
// videos are enqueued for transcoding, deduplicated per attachment id.
func (s *Service) Upload(ctx context.Context, file *multipart.FileHeader, refType models.MediaRefType, refID, uploaderID string) (*models.MediaAttachmentModel, error) {
	if refType != models.MediaRefReport && refType != models.MediaRefLog {
		return nil, ErrBadRefType
	}
	if err := s.checkOwner(refType, refID); err != nil {
		return nil, err
	}

	cfg, err := s.settings.Get()
	if err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	kind, maxBytes, ok := classifyExtension(cfg.Media, ext)
	if !ok {
		return nil, ErrBadExtension
	}
	if file.Size > maxBytes {
		return nil, ErrTooLarge
	}

	storedPath, err := s.store.Save(file, ext)
	if err != nil {
		return nil, err
	}

	attachment := models.MediaAttachmentModel{
		RefType:     refType,
		RefID:       refID,
		Kind:        kind,
		FileName:    file.Filename,
		StoredPath:  storedPath,
		ContentType: file.Header.Get("Content-Type"),
		SizeBytes:   file.Size,
		Status:      models.TranscodeReady,
	}
	if kind == models.MediaVideo {
		attachment.Status = models.TranscodePending
	}
	if uploaderID != "" {
		attachment.UploaderID = &uploaderID
	}

	if err := s.db.Create(&attachment).Error; err != nil {
		s.store.Remove(storedPath)
		return nil, err
	}

	if kind == models.MediaVideo {
		if _, err := s.queue.Enqueue(ctx, TaskTypeTranscode,
			TranscodePayload{AttachmentID: attachment.ID}, attachment.ID); err != nil {
			s.logger.Error("enqueue transcode failed",
				zap.String("attachment", attachment.ID), zap.Error(err))
		}
	}

	s.logger.Info("media uploaded",
		zap.String("attachment", attachment.ID),
		zap.String("kind", string(kind)),
		zap.Int64("bytes", file.Size))
	return &attachment, nil
}

// classifyExtension maps the extension to a media kind and its size cap.
func classifyExtension(opts config.MediaOptions, ext string) (models.MediaKind, int64, bool) {
	for _, allowed := range opts.AllowedPhotoExts {
		if ext == strings.ToLower(allowed) {
			return models.MediaPhoto, opts.MaxPhotoBytes, true
		}
	}
	for _, allowed := range opts.AllowedVideoExts {
		if ext == strings.ToLower(allowed) {
			return models.MediaVideo, opts.MaxVideoBytes, true
		}
	}
	return "", 0, false
}

func (s *Service) checkOwner(refType models.MediaRefType, refID string) error {
	var count int64
	switch refType {
	case models.MediaRefReport:
		s.db.Model(&models.ProblemReportModel{}).Where("id = ?", refID).Count(&count)
	case models.MediaRefLog:
		s.db.Model(&models.LogEntryModel{}).Where("id = ?", refID).Count(&count)
	}
	if count == 0 {
		return ErrOwnerNotFound
	}
	return nil
}

func (s *Service) GetByID(id string) (*models.MediaAttachmentModel, error) {
	var a models.MediaAttachmentModel
	err := s.db.Where("id = ?", id).First(&a).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrAttachmentNotFound
	}
	return &a, err
}

type ListFilter struct {
	RefType string
	RefID   string
	Kind    string
	Status  string
}

func (s *Service) List(q pagination.Query, f ListFilter) ([]models.MediaAttachmentModel, response.Pagination, error) {
	query := s.db.Model(&models.MediaAttachmentModel{})
	if f.RefType != "" {
		query = query.Where("ref_type = ?", f.RefType)
	}
	if f.RefID != "" {
		query = query.Where("ref_id = ?", f.RefID)
	}
	if f.Kind != "" {
		query = query.Where("kind = ?", f.Kind)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	query = query.Order("created_at DESC")

	var items []models.MediaAttachmentModel
	page, err := pagination.Paginate(query, q, &items)
	return items, page, err
}

// FilePath resolves the on-disk location of the original file.
func (s *Service) FilePath(id string) (string, string, error) {
	a, err := s.GetByID(id)
	if err != nil {
		return "", "", err
	}
	abs, err := s.store.Abs(a.StoredPath)
	return abs, a.ContentType, err
}

// PosterPath resolves the on-disk location of a video's poster frame.
func (s *Service) PosterPath(id string) (string, error) {
	a, err := s.GetByID(id)
	if err != nil {
		return "", err
	}
	if a.Kind != models.MediaVideo {
		return "", ErrNotVideo
	}
	if a.PosterPath == "" {
		return "", ErrNoPoster
	}
	return s.store.Abs(a.PosterPath)
}

// Delete removes the row and its files.
func (s *Service) Delete(id string) error {
	a, err := s.GetByID(id)
	if err != nil {
		return err
	}
	if err := s.db.Delete(a).Error; err != nil {
		return err
	}
	if err := s.store.Remove(a.StoredPath); err != nil {
		s.logger.Warn("remove stored file failed", zap.String("attachment", id), zap.Error(err))
	}
	if a.PosterPath != "" {
		if err := s.store.Remove(a.PosterPath); err != nil {
			s.logger.Warn("remove poster failed", zap.String("attachment", id), zap.Error(err))
		}
	}
	return nil
}

// SweepOrphans drops attachments whose owning record was deleted.
// Called from cron.
func (s *Service) SweepOrphans() (int64, error) {
	var removed int64
	var ids []string

	err := s.db.Model(&models.MediaAttachmentModel{}).
		Where("ref_type = ? AND ref_id NOT IN (?)", models.MediaRefReport,
			s.db.Model(&models.ProblemReportModel{}).Select("id")).
		Pluck("id", &ids).Error
	if err != nil {
		return 0, err
	}
	var logIDs []string
	err = s.db.Model(&models.MediaAttachmentModel{}).
		Where("ref_type = ? AND ref_id NOT IN (?)", models.MediaRefLog,
			s.db.Model(&models.LogEntryModel{}).Select("id")).
		Pluck("id", &logIDs).Error
	if err != nil {
		return 0, err
	}
	ids = append(ids, logIDs...)

	for _, id := range ids {
		if err := s.Delete(id); err == nil {
			removed++
		}
	}
	if removed > 0 {
		s.logger.Info("orphaned media swept", zap.Int64("removed", removed))
	}
	return removed, nil
}

// stuckAfter is how long a video may sit in processing without progress
// before the cron treats its worker as dead.
const stuckAfter = 15 * time.Minute

// RequeueStuck re-enqueues videos stuck in processing, typically after a
// crashed worker. In-flight encodes are left alone: only rows untouched for
// stuckAfter qualify. Called from cron.
func (s *Service) RequeueStuck(ctx context.Context) (int64, error) {
	cutoff := time.Now().Add(-stuckAfter)
	var stuck []models.MediaAttachmentModel
	if err := s.db.Where("kind = ? AND status = ? AND updated_at < ?",
		models.MediaVideo, models.TranscodeProcessing, cutoff).
		Find(&stuck).Error; err != nil {
		return 0, err
	}
	var requeued int64
	for _, a := range stuck {
		if err := s.db.Model(&models.MediaAttachmentModel{}).
			Where("id = ?", a.ID).Update("status", models.TranscodePending).Error; err != nil {
			continue
		}
		// The stale task still owns the dedup key; fail it first or the
		// enqueue would return it and push nothing.
		if err := s.queue.Abandon(ctx, TaskTypeTranscode, a.ID); err != nil {
			s.logger.Warn("abandon stale transcode task failed",
				zap.String("attachment", a.ID), zap.Error(err))
		}
		if _, err := s.queue.Enqueue(ctx, TaskTypeTranscode,
			TranscodePayload{AttachmentID: a.ID}, a.ID); err == nil {
			requeued++
		}
	}
	return requeued, nil
}
