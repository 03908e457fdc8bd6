package part

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	p := rg.Group("/parts", authMW)
	p.GET("", h.list)
	p.POST("", h.create)
	p.GET("/:id", h.get)
	p.PATCH("/:id", h.update)
	p.POST("/:id/status", h.changeStatus)
	p.GET("/:id/updates", h.listUpdates)
	p.DELETE("/:id", h.delete)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.List(q, ListFilter{
		InstanceID: c.Query("instance_id"),
		Status:     c.Query("status"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) get(c *gin.Context) {
	r, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, r)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Create(&dto, middleware.CurrentMaintainerID(c))
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			response.BadRequest(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, r)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateRequestDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, r)
}

func (h *Handler) changeStatus(c *gin.Context) {
	var dto ChangeStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	r, err := h.svc.ChangeStatus(c.Param("id"), &dto, middleware.CurrentMaintainerID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrRequestNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrBadStatus):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, r)
}

func (h *Handler) listUpdates(c *gin.Context) {
	updates, err := h.svc.ListUpdates(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, updates)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrRequestNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
