package settings

import (
	"encoding/json"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	g := rg.Group("/settings")
	g.Use(authMW, adminMW)
	{
		g.GET("", h.get)
		g.PATCH("", h.patch)
	}
}

func (h *Handler) get(c *gin.Context) {
	cfg, err := h.svc.Get()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, cfg)
}

func (h *Handler) patch(c *gin.Context) {
	var partial map[string]json.RawMessage
	if err := c.ShouldBindJSON(&partial); err != nil {
		response.BadRequest(c, "invalid request body")
		return
	}
	if len(partial) == 0 {
		response.BadRequest(c, "empty patch")
		return
	}

	cfg, err := h.svc.Patch(partial)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.svc.recordPatch(middleware.CurrentMaintainerID(c), partial)
	response.OK(c, cfg)
}
