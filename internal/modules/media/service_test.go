package media

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	redisc "github.com/the-flip/core/internal/pkg/redis"
	"github.com/the-flip/core/internal/pkg/taskqueue"
)

func newTestMediaService(t *testing.T) (*Service, *gorm.DB, *taskqueue.Service, *redisc.Client) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.MediaAttachmentModel{},
		&models.ProblemReportModel{},
		&models.LogEntryModel{},
		&models.OptionModel{},
	))

	mr := miniredis.RunT(t)
	rc, err := redisc.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })

	queue := taskqueue.NewService(rc)
	svc := NewService(db, zap.NewNop(), NewStore(t.TempDir()), appsettings.NewService(db), queue)
	return svc, db, queue, rc
}

func seedVideo(t *testing.T, db *gorm.DB, status models.TranscodeStatus, age time.Duration) *models.MediaAttachmentModel {
	t.Helper()
	a := &models.MediaAttachmentModel{
		RefType:    models.MediaRefReport,
		RefID:      "r1",
		Kind:       models.MediaVideo,
		FileName:   "clip.mp4",
		StoredPath: "2026/08/clip.mp4",
		Status:     status,
	}
	require.NoError(t, db.Create(a).Error)
	if age > 0 {
		require.NoError(t, db.Model(a).
			UpdateColumn("updated_at", time.Now().Add(-age)).Error)
	}
	return a
}

func TestRequeueStuckRevivesDeadWorkerTask(t *testing.T) {
	svc, db, queue, rc := newTestMediaService(t)
	ctx := context.Background()

	stale := seedVideo(t, db, models.TranscodeProcessing, time.Hour)

	// The original task was popped and marked running before its worker
	// died, so the dedup key is still held.
	task, err := queue.Enqueue(ctx, TaskTypeTranscode, TranscodePayload{AttachmentID: stale.ID}, stale.ID)
	require.NoError(t, err)
	_, err = rc.Raw().RPop(ctx, "flip:tasks:queue").Result()
	require.NoError(t, err)
	require.NoError(t, queue.UpdateStatus(ctx, task.ID, taskqueue.TaskRunning, nil, ""))

	n, err := svc.RequeueStuck(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var got models.MediaAttachmentModel
	require.NoError(t, db.First(&got, "id = ?", stale.ID).Error)
	assert.Equal(t, models.TranscodePending, got.Status)

	// A fresh task made it onto the worker queue.
	id, err := rc.Raw().RPop(ctx, "flip:tasks:queue").Result()
	require.NoError(t, err)
	assert.NotEqual(t, task.ID, id)

	old, err := queue.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, taskqueue.TaskFailed, old.Status)
}

func TestRequeueStuckLeavesFreshEncodesAlone(t *testing.T) {
	svc, db, _, rc := newTestMediaService(t)
	ctx := context.Background()

	inFlight := seedVideo(t, db, models.TranscodeProcessing, 0)

	n, err := svc.RequeueStuck(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 0, n)

	var got models.MediaAttachmentModel
	require.NoError(t, db.First(&got, "id = ?", inFlight.ID).Error)
	assert.Equal(t, models.TranscodeProcessing, got.Status)

	llen, err := rc.Raw().LLen(ctx, "flip:tasks:queue").Result()
	require.NoError(t, err)
	assert.EqualValues(t, 0, llen)
}
