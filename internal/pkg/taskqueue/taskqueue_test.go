package taskqueue

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	redisc "github.com/the-flip/core/internal/pkg/redis"
)

func newTestQueue(t *testing.T) *Service {
	t.Helper()
	mr := miniredis.RunT(t)
	rc, err := redisc.Connect("redis://" + mr.Addr())
	require.NoError(t, err)
	t.Cleanup(func() { rc.Close() })
	return NewService(rc)
}

func queueLen(t *testing.T, s *Service) int64 {
	t.Helper()
	n, err := s.rc.Raw().LLen(context.Background(), keyPending).Result()
	require.NoError(t, err)
	return n
}

func popPending(t *testing.T, s *Service) string {
	t.Helper()
	id, err := s.rc.Raw().RPop(context.Background(), keyPending).Result()
	require.NoError(t, err)
	return id
}

func TestEnqueueDedup(t *testing.T) {
	s := newTestQueue(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, "transcode_video", map[string]string{"attachment_id": "a1"}, "a1")
	require.NoError(t, err)
	assert.Equal(t, TaskPending, first.Status)
	assert.EqualValues(t, 1, queueLen(t, s))

	// A second enqueue under the same key returns the pending task and
	// pushes nothing.
	second, err := s.Enqueue(ctx, "transcode_video", map[string]string{"attachment_id": "a1"}, "a1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.EqualValues(t, 1, queueLen(t, s))
}

func TestEnqueueIgnoresFinishedDedupHolder(t *testing.T) {
	s := newTestQueue(t)
	ctx := context.Background()

	first, err := s.Enqueue(ctx, "deliver_webhook", map[string]string{"event": "x"}, "hook-1")
	require.NoError(t, err)
	assert.Equal(t, first.ID, popPending(t, s))
	require.NoError(t, s.UpdateStatus(ctx, first.ID, TaskCompleted, nil, ""))

	second, err := s.Enqueue(ctx, "deliver_webhook", map[string]string{"event": "x"}, "hook-1")
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)
	assert.EqualValues(t, 1, queueLen(t, s))
}

func TestAbandonReleasesStalledTask(t *testing.T) {
	s := newTestQueue(t)
	ctx := context.Background()

	stale, err := s.Enqueue(ctx, "transcode_video", map[string]string{"attachment_id": "a9"}, "a9")
	require.NoError(t, err)
	assert.Equal(t, stale.ID, popPending(t, s))
	require.NoError(t, s.UpdateStatus(ctx, stale.ID, TaskRunning, nil, ""))

	// While the task looks alive, the dedup key still swallows enqueues.
	dup, err := s.Enqueue(ctx, "transcode_video", map[string]string{"attachment_id": "a9"}, "a9")
	require.NoError(t, err)
	assert.Equal(t, stale.ID, dup.ID)
	assert.EqualValues(t, 0, queueLen(t, s))

	require.NoError(t, s.Abandon(ctx, "transcode_video", "a9"))

	failed, err := s.GetByID(ctx, stale.ID)
	require.NoError(t, err)
	assert.Equal(t, TaskFailed, failed.Status)

	fresh, err := s.Enqueue(ctx, "transcode_video", map[string]string{"attachment_id": "a9"}, "a9")
	require.NoError(t, err)
	assert.NotEqual(t, stale.ID, fresh.ID)
	assert.Equal(t, TaskPending, fresh.Status)
	assert.EqualValues(t, 1, queueLen(t, s))
}

func TestAbandonWithoutHolderIsNoop(t *testing.T) {
	s := newTestQueue(t)
	assert.NoError(t, s.Abandon(context.Background(), "transcode_video", "missing"))
	assert.NoError(t, s.Abandon(context.Background(), "transcode_video", ""))
}
