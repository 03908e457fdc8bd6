package machine

import (
	"errors"
	"strconv"

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	m := rg.Group("/machines")
	m.GET("", h.listModels)
	m.GET("/autocomplete", h.autocomplete)
	m.GET("/:identifier", h.getModel)
	m.GET("/:identifier/instances", h.listModelInstances)
	m.POST("", authMW, h.createModel)
	m.PATCH("/:identifier", authMW, h.updateModel)
	m.DELETE("/:identifier", authMW, adminMW, h.deleteModel)

	i := rg.Group("/instances")
	i.GET("", h.listInstances)
	i.GET("/zones", h.zones)
	i.GET("/:id", h.getInstance)
	i.POST("", authMW, h.createInstance)
	i.PATCH("/:id", authMW, h.updateInstance)
	i.PATCH("/:id/status", authMW, h.changeStatus)
	i.DELETE("/:id", authMW, adminMW, h.deleteInstance)
}

func (h *Handler) listModels(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.ListModels(q, ModelListFilter{
		Manufacturer: c.Query("manufacturer"),
		MachineType:  c.Query("machine_type"),
		Search:       c.Query("q"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) autocomplete(c *gin.Context) {
	hits, err := h.svc.Autocomplete(c.Query("q"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, hits)
}

func (h *Handler) getModel(c *gin.Context) {
	m, err := h.svc.GetModel(c.Param("identifier"))
	if err != nil {
		if errors.Is(err, ErrModelNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) createModel(c *gin.Context) {
	var dto CreateModelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.CreateModel(&dto)
	if err != nil {
		if errors.Is(err, ErrNameTaken) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) updateModel(c *gin.Context) {
	var dto UpdateModelDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.UpdateModel(c.Param("identifier"), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrModelNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrNameTaken):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, m)
}

func (h *Handler) deleteModel(c *gin.Context) {
	m, err := h.svc.GetModel(c.Param("identifier"))
	if err != nil {
		response.NotFound(c)
		return
	}
	if err := h.svc.DeleteModel(m.ID); err != nil {
		if errors.Is(err, ErrHasInstances) {
			response.Conflict(c, err.Error())
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}

func (h *Handler) listModelInstances(c *gin.Context) {
	m, err := h.svc.GetModel(c.Param("identifier"))
	if err != nil {
		response.NotFound(c)
		return
	}
	q := pagination.FromContext(c)
	items, page, err := h.svc.ListInstances(q, InstanceListFilter{ModelID: m.ID})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) listInstances(c *gin.Context) {
	q := pagination.FromContext(c)
	filter := InstanceListFilter{
		ModelID: c.Query("model_id"),
		Zone:    c.Query("zone"),
		Status:  c.Query("status"),
	}
	if raw := c.Query("on_floor"); raw != "" {
		if v, err := strconv.ParseBool(raw); err == nil {
			filter.OnFloor = &v
		}
	}
	items, page, err := h.svc.ListInstances(q, filter)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) zones(c *gin.Context) {
	zones, err := h.svc.Zones()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, zones)
}

func (h *Handler) getInstance(c *gin.Context) {
	inst, err := h.svc.GetInstance(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, inst)
}

func (h *Handler) createInstance(c *gin.Context) {
	var dto CreateInstanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inst, err := h.svc.CreateInstance(&dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrModelNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrAssetTagTaken):
			response.Conflict(c, err.Error())
		case errors.Is(err, ErrBadStatus):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, inst)
}

func (h *Handler) updateInstance(c *gin.Context) {
	var dto UpdateInstanceDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inst, err := h.svc.UpdateInstance(c.Param("id"), &dto)
	if err != nil {
		switch {
		case errors.Is(err, ErrInstanceNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrAssetTagTaken):
			response.Conflict(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, inst)
}

func (h *Handler) changeStatus(c *gin.Context) {
	var dto ChangeStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	inst, err := h.svc.ChangeStatus(c.Param("id"), &dto, middleware.CurrentMaintainerID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrInstanceNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrBadStatus):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, inst)
}

func (h *Handler) deleteInstance(c *gin.Context) {
	if err := h.svc.DeleteInstance(c.Param("id")); err != nil {
		if errors.Is(err, ErrInstanceNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
