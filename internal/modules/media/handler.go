package media

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
	m := rg.Group("/media")
	m.POST("/upload", optionalAuthMW, h.upload)
	m.GET("", authMW, h.list)
	m.GET("/:id", h.get)
	m.GET("/:id/file", h.file)
	m.GET("/:id/poster", h.poster)
	m.DELETE("/:id", authMW, h.delete)
}

func (h *Handler) upload(c *gin.Context) {
	file, err := c.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	refType := models.MediaRefType(c.PostForm("ref_type"))
	refID := c.PostForm("ref_id")
	if refID == "" {
		response.BadRequest(c, "ref_id is required")
		return
	}

	attachment, err := h.svc.Upload(c.Request.Context(), file, refType, refID, middleware.CurrentMaintainerID(c))
	if err != nil {
		switch {
		case errors.Is(err, ErrBadRefType), errors.Is(err, ErrOwnerNotFound):
			response.BadRequest(c, err.Error())
		case errors.Is(err, ErrBadExtension), errors.Is(err, ErrTooLarge):
			response.UnprocessableEntity(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	response.Created(c, attachment)
}

func (h *Handler) list(c *gin.Context) {
	q := pagination.FromContext(c)
	items, page, err := h.svc.List(q, ListFilter{
		RefType: c.Query("ref_type"),
		RefID:   c.Query("ref_id"),
		Kind:    c.Query("kind"),
		Status:  c.Query("status"),
	})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, items, page)
}

func (h *Handler) get(c *gin.Context) {
	a, err := h.svc.GetByID(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, a)
}

func (h *Handler) file(c *gin.Context) {
	path, contentType, err := h.svc.FilePath(c.Param("id"))
	if err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if contentType != "" {
		c.Header("Content-Type", contentType)
	}
	c.File(path)
}

func (h *Handler) poster(c *gin.Context) {
	path, err := h.svc.PosterPath(c.Param("id"))
	if err != nil {
		switch {
		case errors.Is(err, ErrAttachmentNotFound), errors.Is(err, ErrNoPoster):
			response.NotFound(c)
		case errors.Is(err, ErrNotVideo):
			response.BadRequest(c, err.Error())
		default:
			response.InternalError(c, err)
		}
		return
	}
	c.File(path)
}

func (h *Handler) delete(c *gin.Context) {
	if err := h.svc.Delete(c.Param("id")); err != nil {
		if errors.Is(err, ErrAttachmentNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
