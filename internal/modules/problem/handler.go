package problem

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/models"
	"github.com/the-flip/core/internal/pkg/pagination"
	"github.com/the-flip/core/internal/pkg/response"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, optionalAuthMW gin.HandlerFunc) {
	r := rg.Group("/reports")
	r.POST("", optionalAuthMW, h.create)
	r.GET("", authMW, h.list)
	r.GET("/:id", authMW, h.get)
	r.PATCH("/:id/status", authMW, h.changeStatus)
	r.DELETE("/:id", authMW, h.delete)

	rg.GET("/instances/:id/reports", h.listByInstance)
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateReportDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	report, err := h.svc.Create(&dto, c.ClientIP(), middleware.CurrentMaintainerID(c), models.SourceWeb)
	if err != nil {
		switch {
		case errors.Is(err, ErrInstanceNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrBadSeverity):
			response.UnprocessableEntity(c, err.Error())
		case errors.Is(err, ErrAnonymousOff):
			response.ForbiddenMsg(c, err.Error())
		case errors.Is(err, ErrRateLimited):
			response.TooManyRequests(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, report)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.List(q, ListFilter{
		InstanceID: c.Query("instance_id"),
		Status:     c.Query("status"),
		Severity:   c.Query("severity"),
		Source:     c.Query("source"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) listByInstance(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.List(q, ListFilter{InstanceID: c.Param("id")})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) get(c *gin.Context) {
	report, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrReportNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, report)
}

func (h *Handler) changeStatus(c *gin.Context) {
	var dto ChangeStatusDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	report, err := h.svc.ChangeStatus(c.Param("id"), dto.Status, middleware.CurrentMaintainerID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrReportNotFound):
			response.NotFound(c)
		case errors.Is(err, ErrBadStatus):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.OK(c, report)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrReportNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
