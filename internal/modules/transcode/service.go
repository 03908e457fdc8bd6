package transcode

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/modules/media"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/webhook"
	"github.com/the-flip/core/internal/pkg/ffmpeg"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	uploadAttempts = 3
	// backoff doubles per attempt starting here: 2s, 4s, 8s.
	uploadBackoffBase = 2 * time.Second
)

// Service runs the video pipeline: probe, re-encode, poster, upload to the
// sibling worker service, and finally the S3 archive mirror.
type Service struct {
	db       *gorm.DB
	logger   *zap.Logger
	store    *media.Store
	settings *appsettings.Service
	webhooks *webhook.Service
	client   *http.Client

	// sleep is swappable so tests do not wait out the backoff.
	sleep func(time.Duration)
}

func NewService(db *gorm.DB, logger *zap.Logger, store *media.Store, settings *appsettings.Service, webhooks *webhook.Service) *Service {
	return &Service{
		db:       db,
		logger:   logger.Named("transcode"),
		store:    store,
		settings: settings,
		webhooks: webhooks,
		client:   &http.Client{Timeout: 5 * time.Minute},
		sleep:    time.Sleep,
	}
}

// HandleTask is the worker handler for media.TaskTypeTranscode.
func (s *Service) HandleTask(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p media.TranscodePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("bad transcode payload: %w", err)
	}
	return s.Process(ctx, p.AttachmentID)
}

// Process runs the pipeline for one attachment. Probe and encode failures
// fail the attachment immediately; only the upload step is retried.
func (s *Service) Process(ctx context.Context, attachmentID string) (interface{}, error) {
	var a models.MediaAttachmentModel
	if err := s.db.Where("id = ?", attachmentID).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("attachment %s not found", attachmentID)
		}
		return nil, err
	}
	if a.Kind != models.MediaVideo {
		return nil, fmt.Errorf("attachment %s is not a video", attachmentID)
	}
	if a.Status == models.TranscodeReady {
		return map[string]interface{}{"skipped": true}, nil
	}

	cfg, err := s.settings.Get()
	if err != nil {
		return nil, err
	}

	s.setStatus(a.ID, models.TranscodeProcessing, nil)

	result, err := s.run(ctx, &a, cfg)
	if err != nil {
		s.setStatus(a.ID, models.TranscodeFailed, map[string]interface{}{
			"failure_cause": err.Error(),
		})
		s.logger.Error("transcode failed",
			zap.String("attachment", a.ID), zap.Error(err))
		s.dispatch(webhook.EventMediaFailed, a.ID)
		return nil, err
	}

	updates := map[string]interface{}{
		"duration":    result.Duration,
		"poster_path": result.PosterPath,
	}
	if result.RemoteURL != "" {
		updates["remote_url"] = result.RemoteURL
	}
	if result.ArchiveURL != "" {
		updates["archive_url"] = result.ArchiveURL
	}
	s.setStatus(a.ID, models.TranscodeReady, updates)

	s.logger.Info("transcode finished",
		zap.String("attachment", a.ID),
		zap.Float64("duration", result.Duration))
	s.dispatch(webhook.EventMediaReady, a.ID)
	return result, nil
}

type pipelineResult struct {
	Duration   float64 `json:"duration"`
	PosterPath string  `json:"poster_path"`
	RemoteURL  string  `json:"remote_url,omitempty"`
	ArchiveURL string  `json:"archive_url,omitempty"`
}

func (s *Service) run(ctx context.Context, a *models.MediaAttachmentModel, cfg *config.SiteSettings) (*pipelineResult, error) {
	src, err := s.store.Abs(a.StoredPath)
	if err != nil {
		return nil, err
	}

	probe, err := ffmpeg.Probe(ctx, cfg.Transcode.FFprobePath, src)
	if err != nil {
		return nil, fmt.Errorf("probe: %w", err)
	}
	if !probe.HasVideoStream() {
		return nil, fmt.Errorf("probe: no video stream in %s", a.FileName)
	}
	duration := probe.DurationSeconds()

	encodedRel := replaceExt(a.StoredPath, ".transcoded.mp4")
	encoded, err := s.store.Abs(encodedRel)
	if err != nil {
		return nil, err
	}
	if err := ffmpeg.Encode(ctx, cfg.Transcode.FFmpegPath, src, encoded, cfg.Transcode.ExtraArgs); err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}

	posterRel := replaceExt(a.StoredPath, ".poster.jpg")
	poster, err := s.store.Abs(posterRel)
	if err != nil {
		return nil, err
	}
	// One second in avoids black lead-in frames on short clips.
	posterAt := 1.0
	if duration > 0 && duration < 2 {
		posterAt = duration / 2
	}
	if err := ffmpeg.ExtractPoster(ctx, cfg.Transcode.FFmpegPath, encoded, poster, posterAt); err != nil {
		return nil, fmt.Errorf("poster: %w", err)
	}

	// The re-encoded rendition replaces the original on disk.
	if err := os.Rename(encoded, src); err != nil {
		return nil, fmt.Errorf("swap rendition: %w", err)
	}

	result := &pipelineResult{Duration: duration, PosterPath: posterRel}

	if cfg.Transcode.WorkerURL != "" {
		remoteURL, err := s.uploadWithRetry(ctx, cfg.Transcode, src, a)
		if err != nil {
			return nil, err
		}
		result.RemoteURL = remoteURL
	}

	if cfg.S3.Enable {
		archiver := media.NewArchiver(cfg.S3)
		key := "media/" + path.Base(a.StoredPath)
		if url, err := archiver.Upload(ctx, src, key, "video/mp4"); err != nil {
			s.logger.Warn("s3 archive failed", zap.String("attachment", a.ID), zap.Error(err))
		} else {
			result.ArchiveURL = url
		}
	}

	return result, nil
}

// uploadWithRetry posts the rendition to the worker service: 3 attempts,
// 2s/4s/8s backoff between them.
func (s *Service) uploadWithRetry(ctx context.Context, opts config.TranscodeOptions, localPath string, a *models.MediaAttachmentModel) (string, error) {
	backoff := uploadBackoffBase
	var lastErr error
	for attempt := 1; attempt <= uploadAttempts; attempt++ {
		url, err := s.upload(ctx, opts, localPath, a)
		if err == nil {
			return url, nil
		}
		lastErr = err
		s.logger.Warn("worker upload failed",
			zap.String("attachment", a.ID),
			zap.Int("attempt", attempt),
			zap.Error(err))
		if attempt < uploadAttempts {
			s.sleep(backoff)
			backoff *= 2
		}
	}
	return "", fmt.Errorf("upload after %d attempts: %w", uploadAttempts, lastErr)
}

func (s *Service) upload(ctx context.Context, opts config.TranscodeOptions, localPath string, a *models.MediaAttachmentModel) (string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", strings.TrimSuffix(a.FileName, path.Ext(a.FileName))+".mp4")
	if err != nil {
		return "", err
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", err
	}
	_ = mw.WriteField("attachment_id", a.ID)
	if err := mw.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		strings.TrimRight(opts.WorkerURL, "/")+"/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if opts.WorkerToken != "" {
		req.Header.Set("Authorization", "Bearer "+opts.WorkerToken)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("worker returned %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	var out struct {
		URL string `json:"url"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.URL == "" {
		// Worker may answer with a bare URL string.
		return strings.TrimSpace(string(body)), nil
	}
	return out.URL, nil
}

func (s *Service) setStatus(id string, status models.TranscodeStatus, extra map[string]interface{}) {
	updates := map[string]interface{}{"status": status}
	if status != models.TranscodeFailed {
		updates["failure_cause"] = ""
	}
	for k, v := range extra {
		updates[k] = v
	}
	if err := s.db.Model(&models.MediaAttachmentModel{}).
		Where("id = ?", id).Updates(updates).Error; err != nil {
		s.logger.Error("status update failed", zap.String("attachment", id), zap.Error(err))
	}
}

func (s *Service) dispatch(event, attachmentID string) {
	var a models.MediaAttachmentModel
	if err := s.db.Where("id = ?", attachmentID).First(&a).Error; err != nil {
		return
	}
	s.webhooks.Dispatch(event, a)
}

func replaceExt(p, newSuffix string) string {
	return strings.TrimSuffix(p, path.Ext(p)) + newSuffix
}
