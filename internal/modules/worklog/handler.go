package worklog

import (
	"errors"
	"net/http"

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

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	l := rg.Group("/logs")
	l.GET("", h.list)
	l.GET("/:id", h.get)
	l.GET("/:id/html", h.renderHTML)
	l.POST("", authMW, h.create)
	l.PATCH("/:id", authMW, h.update)
	l.DELETE("/:id", authMW, h.delete)

	rg.GET("/instances/:id/logs", h.listByInstance)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.List(q, ListFilter{
		InstanceID:   c.Query("instance_id"),
		MaintainerID: c.Query("maintainer_id"),
		Source:       c.Query("source"),
		ReportID:     c.Query("report_id"),
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
	e, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, e)
}

func (h *Handler) renderHTML(c *gin.Context) {
	html, err := h.svc.RenderHTML(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(html))
}

func (h *Handler) create(c *gin.Context) {
	var dto CreateEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.svc.Create(&dto, middleware.CurrentMaintainerID(c), models.SourceWeb)
	if err != nil {
		switch {
		case errors.Is(err, ErrInstanceNotFound), errors.Is(err, ErrReportNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrReportMismatch),
			errors.Is(err, ErrReportClosed),
			errors.Is(err, ErrCloseWithoutReport),
			errors.Is(err, ErrNeedsAttribution):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, e)
}

func (h *Handler) update(c *gin.Context) {
	var dto UpdateEntryDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	e, err := h.svc.Update(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, e)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrEntryNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
