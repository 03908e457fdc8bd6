package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"io"

	"github.com/gin-gonic/gin"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/pkg/response"
)

const (
	headerSignature = "X-Signature-Ed25519"
	headerTimestamp = "X-Signature-Timestamp"
	maxIngestBody   = 64 << 10
)

type ingestBody struct {
	Type    int    `json:"type,omitempty"`
	Content string `json:"content"`
	Author  struct {
		Username string `json:"username"`
	} `json:"author"`
}

type Handler struct {
	svc      *Service
	settings *appsettings.Service
}

func NewHandler(svc *Service, settings *appsettings.Service) *Handler {
	return &Handler{svc: svc, settings: settings}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/discord/ingest", h.ingest)
}

// ingest verifies the request the way Discord signs interactions: an
// ed25519 signature over timestamp+body.
func (h *Handler) ingest(c *gin.Context) {
	cfg, err := h.settings.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if !cfg.Discord.Enable || cfg.Discord.PublicKey == "" {
		response.NotFound(c)
		return
	}

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxIngestBody))
	if err != nil {
		response.BadRequest(c, "unreadable body")
		return
	}

	if !verifySignature(cfg.Discord.PublicKey,
		c.GetHeader(headerSignature), c.GetHeader(headerTimestamp), body) {
		response.Unauthorized(c)
		return
	}

	var msg ingestBody
	if err := json.Unmarshal(body, &msg); err != nil {
		response.BadRequest(c, "invalid payload")
		return
	}

	// Discord sends a type-1 ping when validating the endpoint.
	if msg.Type == 1 {
		response.OK(c, gin.H{"type": 1})
		return
	}
	if msg.Content == "" {
		response.BadRequest(c, "content is required")
		return
	}

	author := msg.Author.Username
	if author == "" {
		author = "discord"
	}

	result, err := h.svc.Ingest(author, msg.Content)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, result)
}

func verifySignature(publicKeyHex, signatureHex, timestamp string, body []byte) bool {
	pub, err := hex.DecodeString(publicKeyHex)
	if err != nil || len(pub) != ed25519.PublicKeySize {
		return false
	}
	sig, err := hex.DecodeString(signatureHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	signed := append([]byte(timestamp), body...)
	return ed25519.Verify(ed25519.PublicKey(pub), signed, sig)
}
