package webhook

import "time"

// CreateWebhookDTO is the request body for creating a webhook.
type CreateWebhookDTO struct {
	PayloadURL string   `json:"payload_url" binding:"required,url"`
	Events     []string `json:"events"      binding:"required,min=1"`
	Enabled    *bool    `json:"enabled"`
	Secret     string   `json:"secret"`
}

// UpdateWebhookDTO is the request body for updating a webhook.
type UpdateWebhookDTO struct {
	PayloadURL *string  `json:"payload_url"`
	Events     []string `json:"events"`
	Enabled    *bool    `json:"enabled"`
	Secret     *string  `json:"secret"`
}

// webhookResponse is the outbound representation of a webhook (no secret).
type webhookResponse struct {
	ID         string    `json:"id"`
	PayloadURL string    `json:"payload_url"`
	Events     []string  `json:"events"`
	Enabled    bool      `json:"enabled"`
	Created    time.Time `json:"created"`
	Modified   time.Time `json:"modified"`
}
