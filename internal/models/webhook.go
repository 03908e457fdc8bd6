package models

import "time"

// WebhookModel defines an outbound webhook endpoint. Discord-compatible
// URLs work unchanged; the payload is plain JSON with HMAC signature headers.
type WebhookModel struct {
	Base
	PayloadURL string      `json:"payload_url" gorm:"not null"`
	Events     StringArray `json:"events"      gorm:"type:text"`
	Enabled    bool        `json:"enabled"     gorm:"default:true"`
	Secret     string      `json:"-"           gorm:"not null"`

	EventLogs []WebhookEventModel `json:"event_logs,omitempty" gorm:"foreignKey:HookID"`
}

func (WebhookModel) TableName() string { return "webhooks" }

// WebhookEventModel is the audit trail of webhook deliveries.
type WebhookEventModel struct {
	Base
	HookID    string    `json:"hook_id"   gorm:"index;not null"`
	Event     string    `json:"event"     gorm:"not null"`
	Headers   string    `json:"headers"   gorm:"type:text"` // JSON-encoded
	Payload   string    `json:"payload"   gorm:"type:text"` // JSON-encoded
	Response  string    `json:"response"  gorm:"type:text"` // JSON-encoded
	Success   bool      `json:"success"`
	Status    int       `json:"status"`
	Timestamp time.Time `json:"timestamp" gorm:"index"`
}

func (WebhookEventModel) TableName() string { return "webhook_events" }
