package auth

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/pkg/response"
	sessionpkg "github.com/the-flip/core/internal/pkg/session"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	a := rg.Group("/auth")

	a.POST("/login", h.login)
	a.POST("/logout", authMW, h.logout)
	a.GET("/me", authMW, h.me)
	a.PATCH("/me", authMW, h.updateMe)

	a.GET("/sessions", authMW, h.listSessions)
	a.DELETE("/sessions/:id", authMW, h.revokeSession)
	a.DELETE("/sessions", authMW, h.revokeOtherSessions)

	tok := a.Group("/tokens", authMW)
	tok.GET("", h.listTokens)
	tok.POST("", h.createToken)
	tok.DELETE("/:id", h.deleteToken)

	m := rg.Group("/maintainers", authMW, adminMW)
	m.GET("", h.listMaintainers)
	m.POST("", h.createMaintainer)
	m.GET("/:id", h.getMaintainer)
	m.PATCH("/:id", h.updateMaintainer)
	m.DELETE("/:id", h.deleteMaintainer)
}

func (h *Handler) login(c *gin.Context) {
	var dto LoginDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	token, err := h.svc.Login(dto.Username, dto.Password, c.ClientIP(), c.Request.UserAgent())
	if err != nil {
		if errors.Is(err, ErrMaintainerNotFound) || errors.Is(err, ErrWrongPassword) {
			response.ForbiddenMsg(c, "invalid username or password")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, loginResponse{Token: token})
}

func (h *Handler) logout(c *gin.Context) {
	sessionID := middleware.CurrentSessionID(c)
	if sessionID != "" {
		_ = sessionpkg.Revoke(h.svc.db, middleware.CurrentMaintainerID(c), sessionID)
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) me(c *gin.Context) {
	m, err := h.svc.GetMaintainer(middleware.CurrentMaintainerID(c))
	if err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, m)
}

func (h *Handler) updateMe(c *gin.Context) {
	var dto UpdateProfileDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.UpdateProfile(middleware.CurrentMaintainerID(c), &dto)
	if err != nil {
		if errors.Is(err, ErrWrongPassword) {
			response.ForbiddenMsg(c, "current password is incorrect")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) listSessions(c *gin.Context) {
	sessions, err := sessionpkg.ListActive(h.svc.db, middleware.CurrentMaintainerID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	current := middleware.CurrentSessionID(c)
	items := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		items = append(items, gin.H{
			"id":         s.ID,
			"ip":         s.IP,
			"ua":         s.UA,
			"expires_at": s.ExpiresAt,
			"created_at": s.CreatedAt,
			"current":    s.ID == current,
		})
	}
	response.OK(c, items)
}

func (h *Handler) revokeSession(c *gin.Context) {
	if err := sessionpkg.Revoke(h.svc.db, middleware.CurrentMaintainerID(c), c.Param("id")); err != nil {
		response.NotFoundMsg(c, "session not found")
		return
	}
	response.NoContent(c)
}

func (h *Handler) revokeOtherSessions(c *gin.Context) {
	if err := sessionpkg.RevokeAll(h.svc.db, middleware.CurrentMaintainerID(c), middleware.CurrentSessionID(c)); err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, gin.H{"success": true})
}

func (h *Handler) listTokens(c *gin.Context) {
	tokens, err := h.svc.ListTokens(middleware.CurrentMaintainerID(c))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	items := make([]tokenResponse, len(tokens))
	for i, t := range tokens {
		items[i] = tokenResponse{
			ID: t.ID, Name: t.Name, Token: t.Token,
			ExpiredAt: t.ExpiredAt, CreatedAt: t.CreatedAt,
		}
	}
	response.OK(c, items)
}

func (h *Handler) createToken(c *gin.Context) {
	var dto CreateTokenDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	t, err := h.svc.CreateToken(middleware.CurrentMaintainerID(c), &dto)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Created(c, tokenResponse{
		ID: t.ID, Name: t.Name, Token: t.Token,
		ExpiredAt: t.ExpiredAt, CreatedAt: t.CreatedAt,
	})
}

func (h *Handler) deleteToken(c *gin.Context) {
	if err := h.svc.DeleteToken(middleware.CurrentMaintainerID(c), c.Param("id")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.NoContent(c)
}

func (h *Handler) listMaintainers(c *gin.Context) {
	ms, err := h.svc.ListMaintainers()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, ms)
}

func (h *Handler) createMaintainer(c *gin.Context) {
	var dto CreateMaintainerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.CreateMaintainer(&dto)
	if err != nil {
		if errors.Is(err, ErrUsernameTaken) {
			response.Conflict(c, "username already taken")
			return
		}
		response.InternalError(c, err)
		return
	}
	response.Created(c, m)
}

func (h *Handler) getMaintainer(c *gin.Context) {
	m, err := h.svc.GetMaintainer(c.Param("id"))
	if err != nil {
		response.NotFound(c)
		return
	}
	response.OK(c, m)
}

func (h *Handler) updateMaintainer(c *gin.Context) {
	var dto UpdateMaintainerDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	m, err := h.svc.UpdateMaintainer(c.Param("id"), &dto)
	if err != nil {
		if errors.Is(err, ErrMaintainerNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, m)
}

func (h *Handler) deleteMaintainer(c *gin.Context) {
	id := c.Param("id")
	if id == middleware.CurrentMaintainerID(c) {
		response.BadRequest(c, "cannot delete your own account")
		return
	}
	if err := h.svc.DeleteMaintainer(id); err != nil {
		if errors.Is(err, ErrMaintainerNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
