package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/the-flip/core/internal/models"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.WebhookModel{}, &models.WebhookEventModel{}))
	return NewService(db, zap.NewNop()), db
}

func TestNormalizeWebhookEvents(t *testing.T) {
	testCases := []struct {
		name     string
		in       []string
		expected []string
	}{
		{"uppercased and deduped", []string{"machine_created", "MACHINE_CREATED"}, []string{"MACHINE_CREATED"}},
		{"unknown names dropped", []string{"MACHINE_CREATED", "COFFEE_READY"}, []string{"MACHINE_CREATED"}},
		{"all short-circuits", []string{"MACHINE_CREATED", "All"}, []string{"all"}},
		{"blank entries skipped", []string{" ", "", "MEDIA_READY"}, []string{"MEDIA_READY"}},
		{"empty input", nil, []string{}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, normalizeWebhookEvents(tc.in))
		})
	}
}

func TestWebhookContainsEvent(t *testing.T) {
	assert.True(t, webhookContainsEvent([]string{"all"}, EventMediaReady))
	assert.True(t, webhookContainsEvent([]string{"MEDIA_READY"}, "media_ready"))
	assert.False(t, webhookContainsEvent([]string{"MEDIA_READY"}, EventMachineCreated))
	assert.False(t, webhookContainsEvent(nil, EventMachineCreated))
}

func TestCreateValidatesEvents(t *testing.T) {
	svc, _ := newTestService(t)

	w, err := svc.Create(&CreateWebhookDTO{
		PayloadURL: "https://example.org/hook",
		Events:     []string{"machine_created", "nonsense"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"MACHINE_CREATED"}, []string(w.Events))
	assert.True(t, w.Enabled)
	// A secret is generated when none is supplied.
	assert.NotEmpty(t, w.Secret)
}

func TestDeliverSignsAndLogs(t *testing.T) {
	svc, db := newTestService(t)

	type received struct {
		body    []byte
		headers http.Header
	}
	got := make(chan received, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		got <- received{body: body, headers: r.Header.Clone()}
		w.Write([]byte(`{"ok": true}`))
	}))
	defer server.Close()

	hook, err := svc.Create(&CreateWebhookDTO{
		PayloadURL: server.URL,
		Events:     []string{EventMediaReady},
		Secret:     "flipside",
	})
	require.NoError(t, err)

	svc.deliver(*hook, EventMediaReady, map[string]string{"attachment": "a-1"})

	var rec received
	select {
	case rec = <-got:
	case <-time.After(2 * time.Second):
		t.Fatal("no delivery received")
	}

	assert.Equal(t, EventMediaReady, rec.headers.Get("X-Webhook-Event"))
	assert.Equal(t, hook.ID, rec.headers.Get("X-Webhook-Id"))

	mac := hmac.New(sha256.New, []byte("flipside"))
	mac.Write(rec.body)
	assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), rec.headers.Get("X-Webhook-Signature256"))

	var envelope struct {
		Event string          `json:"event"`
		Data  json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.body, &envelope))
	assert.Equal(t, EventMediaReady, envelope.Event)

	// The delivery is audited.
	var events []models.WebhookEventModel
	require.NoError(t, db.Where("hook_id = ?", hook.ID).Find(&events).Error)
	require.Len(t, events, 1)
	assert.True(t, events[0].Success)
	assert.Equal(t, http.StatusOK, events[0].Status)
}

func TestHandleDeliveryTaskSkipsDisabledHook(t *testing.T) {
	svc, db := newTestService(t)

	hook, err := svc.Create(&CreateWebhookDTO{
		PayloadURL: "https://example.org/hook",
		Events:     []string{"all"},
	})
	require.NoError(t, err)
	require.NoError(t, db.Model(&models.WebhookModel{}).
		Where("id = ?", hook.ID).Update("enabled", false).Error)

	payload, _ := json.Marshal(DeliveryPayload{
		HookID: hook.ID,
		Event:  EventMediaReady,
		Data:   json.RawMessage(`{"x": 1}`),
	})
	out, err := svc.HandleDeliveryTask(t.Context(), payload)
	require.NoError(t, err)
	assert.Equal(t, map[string]interface{}{"skipped": true}, out)

	// Nothing was delivered, nothing audited.
	var count int64
	db.Model(&models.WebhookEventModel{}).Count(&count)
	assert.Zero(t, count)
}

func TestPurgeEventsBefore(t *testing.T) {
	svc, db := newTestService(t)

	old := models.WebhookEventModel{HookID: "h1", Event: EventTestFire, Timestamp: time.Now().Add(-40 * 24 * time.Hour)}
	fresh := models.WebhookEventModel{HookID: "h1", Event: EventTestFire, Timestamp: time.Now()}
	require.NoError(t, db.Create(&old).Error)
	require.NoError(t, db.Create(&fresh).Error)

	n, err := svc.PurgeEventsBefore(time.Now().Add(-30 * 24 * time.Hour))
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	var remaining []models.WebhookEventModel
	require.NoError(t, db.Find(&remaining).Error)
	require.Len(t, remaining, 1)
	assert.Equal(t, fresh.ID, remaining[0].ID)
}
