package transcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/modules/media"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/webhook"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MediaAttachmentModel{},
		&models.WebhookModel{},
		&models.WebhookEventModel{},
		&models.OptionModel{},
	))

	svc := NewService(db, zap.NewNop(), media.NewStore(t.TempDir()),
		appsettings.NewService(db), webhook.NewService(db, zap.NewNop()))
	return svc, db
}

func writeTempFile(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "clip.mp4")
	require.NoError(t, os.WriteFile(p, []byte("not really a video"), 0o644))
	return p
}

func TestUploadWithRetrySucceedsAfterFailures(t *testing.T) {
	svc, _ := newTestService(t)

	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	var attempts int
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		gotAuth = r.Header.Get("Authorization")
		if attempts < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"url": "https://cdn.example.org/clip.mp4"}`))
	}))
	defer server.Close()

	a := &models.MediaAttachmentModel{FileName: "clip.mov"}
	a.ID = "att-1"
	opts := config.TranscodeOptions{WorkerURL: server.URL, WorkerToken: "secret"}

	url, err := svc.uploadWithRetry(context.Background(), opts, writeTempFile(t), a)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/clip.mp4", url)
	assert.Equal(t, 3, attempts)
	assert.Equal(t, "Bearer secret", gotAuth)
	// 2s then 4s between the three attempts; no sleep after the last.
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestUploadWithRetryGivesUp(t *testing.T) {
	svc, _ := newTestService(t)
	var slept []time.Duration
	svc.sleep = func(d time.Duration) { slept = append(slept, d) }

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "disk full", http.StatusInternalServerError)
	}))
	defer server.Close()

	a := &models.MediaAttachmentModel{FileName: "clip.mov"}
	a.ID = "att-2"
	opts := config.TranscodeOptions{WorkerURL: server.URL}

	_, err := svc.uploadWithRetry(context.Background(), opts, writeTempFile(t), a)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upload after 3 attempts")
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, slept)
}

func TestUploadParsesBareURLBody(t *testing.T) {
	svc, _ := newTestService(t)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("https://cdn.example.org/raw.mp4\n"))
	}))
	defer server.Close()

	a := &models.MediaAttachmentModel{FileName: "clip.mov"}
	a.ID = "att-3"

	url, err := svc.upload(context.Background(), config.TranscodeOptions{WorkerURL: server.URL}, writeTempFile(t), a)
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.org/raw.mp4", url)
}

func TestProcessRejectsNonVideo(t *testing.T) {
	svc, db := newTestService(t)

	a := models.MediaAttachmentModel{
		Kind:       models.MediaPhoto,
		FileName:   "shot.jpg",
		StoredPath: "2026/01/shot.jpg",
		Status:     models.TranscodeReady,
	}
	require.NoError(t, db.Create(&a).Error)

	_, err := svc.Process(context.Background(), a.ID)
	assert.ErrorContains(t, err, "not a video")

	_, err = svc.Process(context.Background(), "missing")
	assert.ErrorContains(t, err, "not found")
}

func TestProcessSkipsReadyVideo(t *testing.T) {
	svc, db := newTestService(t)

	a := models.MediaAttachmentModel{
		Kind:       models.MediaVideo,
		FileName:   "clip.mp4",
		StoredPath: "2026/01/clip.mp4",
		Status:     models.TranscodeReady,
	}
	require.NoError(t, db.Create(&a).Error)

	out, err := svc.Process(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"skipped": true}, out)
}
