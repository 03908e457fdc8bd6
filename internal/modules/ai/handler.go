package ai

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/instances/:id/summary", authMW, h.summary)
}

func (h *Handler) summary(c *gin.Context) {
	text, err := h.svc.Summarize(c.Request.Context(), c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrDisabled):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrInstanceNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNoHistory):
			response.OK(c, gin.H{"summary": "", "empty": true})
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, gin.H{"summary": text})
}
