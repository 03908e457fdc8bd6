package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
	"github.com/the-flip/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"
)

// TaskTypeDeliver is the queue task type for webhook deliveries.
const TaskTypeDeliver = "deliver_webhook"

// DeliveryPayload is the task payload for a single hook delivery.
type DeliveryPayload struct {
	HookID string          `json:"hook_id"`
	Event  string          `json:"event"`
	Data   json.RawMessage `json:"data"`
}

// Service handles webhook CRUD and delivery. Outbound requests share one
// rate limiter so a burst of floor activity cannot hammer Discord.
type Service struct {
	db      *gorm.DB
	logger  *zap.Logger
	limiter *rate.Limiter
	client  *http.Client
	queue   *taskqueue.Service
}

func NewService(db *gorm.DB, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:      db,
		logger:  logger.Named("webhook"),
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *Service) List() ([]models.WebhookModel, error) {
	var items []models.WebhookModel
	return items, s.db.Order("created_at DESC").Find(&items).Error
}

func (s *Service) GetByID(id string) (*models.WebhookModel, error) {
	var w models.WebhookModel
	if err := s.db.First(&w, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &w, nil
}

func (s *Service) Create(dto *CreateWebhookDTO) (*models.WebhookModel, error) {
	events := normalizeWebhookEvents(dto.Events)
	if len(events) == 0 {
		return nil, fmt.Errorf("events is empty")
	}

	secret := strings.TrimSpace(dto.Secret)
	if secret == "" {
		b := make([]byte, 20)
		if _, err := rand.Read(b); err != nil {
			return nil, err
		}
		secret = hex.EncodeToString(b)
	}

	w := models.WebhookModel{
		PayloadURL: dto.PayloadURL,
		Events:     events,
		Secret:     secret,
		Enabled:    true,
	}
	if dto.Enabled != nil {
		w.Enabled = *dto.Enabled
	}
	return &w, s.db.Create(&w).Error
}

func (s *Service) Update(id string, dto *UpdateWebhookDTO) (*models.WebhookModel, error) {
	w, err := s.GetByID(id)
	if err != nil || w == nil {
		return w, err
	}
	updates := map[string]interface{}{}
	if dto.PayloadURL != nil {
		updates["payload_url"] = *dto.PayloadURL
	}
	if dto.Events != nil {
		events := normalizeWebhookEvents(dto.Events)
		if len(events) == 0 {
			return nil, fmt.Errorf("events is empty")
		}
		updates["events"] = models.StringArray(events)
	}
	if dto.Enabled != nil {
		updates["enabled"] = *dto.Enabled
	}
	if dto.Secret != nil {
		updates["secret"] = strings.TrimSpace(*dto.Secret)
	}
	return w, s.db.Model(w).Updates(updates).Error
}

func (s *Service) Delete(id string) error {
	return s.db.Delete(&models.WebhookModel{}, "id = ?", id).Error
}

// SetQueue routes deliveries through the task queue instead of ad-hoc
// goroutines, giving each attempt a retryable audit record.
func (s *Service) SetQueue(queue *taskqueue.Service) { s.queue = queue }

// Dispatch sends an event payload to all matching, enabled webhooks.
func (s *Service) Dispatch(event string, payload interface{}) {
	var hooks []models.WebhookModel
	s.db.Where("enabled = ?", true).Find(&hooks)

	for _, hook := range hooks {
		if !webhookContainsEvent(hook.Events, event) {
			continue
		}
		if s.queue != nil {
			data, err := json.Marshal(payload)
			if err != nil {
				s.logger.Warn("payload not serializable", zap.String("event", event), zap.Error(err))
				continue
			}
			if _, err := s.queue.Enqueue(context.Background(), TaskTypeDeliver,
				DeliveryPayload{HookID: hook.ID, Event: event, Data: data}, ""); err != nil {
				s.logger.Warn("enqueue delivery failed", zap.String("hook", hook.ID), zap.Error(err))
			}
			continue
		}
		go s.deliver(hook, event, payload)
	}
}

// HandleDeliveryTask is the worker handler for TaskTypeDeliver.
func (s *Service) HandleDeliveryTask(ctx context.Context, raw json.RawMessage) (interface{}, error) {
	var p DeliveryPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("bad delivery payload: %w", err)
	}
	hook, err := s.GetByID(p.HookID)
	if err != nil {
		return nil, err
	}
	if hook == nil || !hook.Enabled {
		return map[string]interface{}{"skipped": true}, nil
	}
	var data interface{}
	if err := json.Unmarshal(p.Data, &data); err != nil {
		data = string(p.Data)
	}
	s.deliver(*hook, p.Event, data)
	return map[string]interface{}{"hook_id": hook.ID, "event": p.Event}, nil
}

func (s *Service) deliver(hook models.WebhookModel, event string, payload interface{}) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := s.limiter.Wait(ctx); err != nil {
		s.logEvent(hook.ID, event, nil, "", nil, false, 0, "delivery throttled: "+err.Error())
		return
	}

	envelope := map[string]interface{}{
		"event":     event,
		"timestamp": time.Now().UnixMilli(),
		"data":      payload,
	}
	body, _ := json.Marshal(envelope)
	payloadString := string(body)

	signature := signWithHash(sha1.New, hook.Secret, payloadString)
	signature256 := signWithHash(sha256.New, hook.Secret, payloadString)
	headers := map[string]string{
		"X-Webhook-Signature":    signature,
		"X-Webhook-Signature256": signature256,
		"X-Webhook-Event":        event,
		"X-Webhook-Id":           hook.ID,
		"X-Webhook-Timestamp":    fmt.Sprintf("%d", time.Now().UnixMilli()),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.PayloadURL, bytes.NewReader(body))
	if err != nil {
		s.logEvent(hook.ID, event, headers, payloadString, nil, false, 0, err.Error())
		return
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("delivery failed", zap.String("hook", hook.ID), zap.String("event", event), zap.Error(err))
		s.logEvent(hook.ID, event, headers, payloadString, nil, false, 0, err.Error())
		return
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	s.logEvent(hook.ID, event, headers, payloadString, map[string]interface{}{
		"data":      parseJSONOrString(respBody),
		"timestamp": time.Now().UnixMilli(),
		"status":    resp.Status,
	}, resp.StatusCode >= 200 && resp.StatusCode < 300, resp.StatusCode, "")
}

func (s *Service) logEvent(hookID, event string, headers map[string]string, payload string, respData interface{}, success bool, status int, errMsg string) {
	log := models.WebhookEventModel{
		HookID:    hookID,
		Event:     event,
		Headers:   toJSONString(headers),
		Payload:   payload,
		Response:  toJSONString(respData),
		Success:   success,
		Status:    status,
		Timestamp: time.Now(),
	}
	if errMsg != "" {
		log.Response = toJSONString(map[string]interface{}{"error": errMsg})
	}
	s.db.Create(&log)
}

func (s *Service) ListEvents(q pagination.Query, hookID *string) ([]models.WebhookEventModel, response.Pagination, error) {
	tx := s.db.Model(&models.WebhookEventModel{}).Order("timestamp DESC")
	if hookID != nil {
		tx = tx.Where("hook_id = ?", *hookID)
	}
	var items []models.WebhookEventModel
	pag, err := pagination.Paginate(tx, q, &items)
	return items, pag, err
}

func (s *Service) GetEventByID(id string) (*models.WebhookEventModel, error) {
	var item models.WebhookEventModel
	if err := s.db.First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &item, nil
}

// Redispatch replays a logged delivery against its hook.
func (s *Service) Redispatch(eventID string) error {
	event, err := s.GetEventByID(eventID)
	if err != nil {
		return err
	}
	if event == nil {
		return fmt.Errorf("event not found")
	}
	hook, err := s.GetByID(event.HookID)
	if err != nil {
		return err
	}
	if hook == nil {
		return fmt.Errorf("hook not found")
	}
	if !hook.Enabled {
		return fmt.Errorf("hook is disabled")
	}
	var envelope struct {
		Data interface{} `json:"data"`
	}
	if err := json.Unmarshal([]byte(event.Payload), &envelope); err != nil {
		envelope.Data = event.Payload
	}
	go s.deliver(*hook, event.Event, envelope.Data)
	return nil
}

func (s *Service) ClearEventsByHookID(hookID string) error {
	return s.db.Where("hook_id = ?", hookID).Delete(&models.WebhookEventModel{}).Error
}

// PurgeEventsBefore removes delivery logs older than the cutoff.
func (s *Service) PurgeEventsBefore(cutoff time.Time) (int64, error) {
	res := s.db.Unscoped().Where("timestamp < ?", cutoff).Delete(&models.WebhookEventModel{})
	return res.RowsAffected, res.Error
}

// normalizeWebhookEvents deduplicates events, uppercases them, and validates
// each against the accepted set. The special value "all" short-circuits.
func normalizeWebhookEvents(events []string) []string {
	if len(events) == 0 {
		return []string{}
	}

	seen := map[string]struct{}{}
	out := make([]string, 0, len(events))
	for _, event := range events {
		next := strings.TrimSpace(event)
		if next == "" {
			continue
		}
		if strings.EqualFold(next, "all") {
			return []string{"all"}
		}
		next = strings.ToUpper(next)
		if _, ok := acceptedWebhookEvents[next]; !ok {
			continue
		}
		if _, ok := seen[next]; ok {
			continue
		}
		seen[next] = struct{}{}
		out = append(out, next)
	}
	return out
}

func webhookContainsEvent(events []string, event string) bool {
	event = strings.ToUpper(strings.TrimSpace(event))
	for _, item := range events {
		next := strings.ToUpper(strings.TrimSpace(item))
		if next == "ALL" || next == event {
			return true
		}
	}
	return false
}

func toResponse(w *models.WebhookModel) webhookResponse {
	events := []string(w.Events)
	if events == nil {
		events = []string{}
	}
	return webhookResponse{
		ID: w.ID, PayloadURL: w.PayloadURL, Events: events,
		Enabled: w.Enabled,
		Created: w.CreatedAt, Modified: w.UpdatedAt,
	}
}

func parseJSONOrString(data []byte) interface{} {
	if len(data) == 0 {
		return ""
	}
	var out interface{}
	if err := json.Unmarshal(data, &out); err == nil {
		return out
	}
	return string(data)
}

func toJSONString(v interface{}) string {
	if v == nil {
		return "{}"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(b)
}

func signWithHash(newHash func() hash.Hash, secret, payload string) string {
	mac := hmac.New(newHash, []byte(secret))
	_, _ = mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}
