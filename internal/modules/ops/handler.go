package ops

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/models"
	pkgcron "github.com/the-flip/core/internal/pkg/cron"
	"github.com/the-flip/core/internal/pkg/pagination"
	redisc "github.com/the-flip/core/internal/pkg/redis"
	"github.com/the-flip/core/internal/pkg/response"
	"github.com/the-flip/core/internal/pkg/taskqueue"
	"gorm.io/gorm"
)

// Handler exposes operational endpoints: liveness, cron control, task queue
// admin, and the dashboard counts.
type Handler struct {
	db        *gorm.DB
	rc        *redisc.Client
	sched     *pkgcron.Scheduler
	tasks     *taskqueue.Service
	startedAt time.Time
}

func NewHandler(db *gorm.DB, rc *redisc.Client, sched *pkgcron.Scheduler, tasks *taskqueue.Service) *Handler {
	return &Handler{
		db:        db,
		rc:        rc,
		sched:     sched,
		tasks:     tasks,
		startedAt: time.Now(),
	}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc, adminMW gin.HandlerFunc) {
	rg.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})
	rg.GET("/health", h.health)
	rg.GET("/uptime", h.uptime)

	rg.GET("/aggregate/stats", authMW, h.stats)
	rg.GET("/activities", authMW, adminMW, h.listActivities)

	cronGroup := rg.Group("/cron", authMW, adminMW)
	cronGroup.GET("", h.listCron)
	cronGroup.GET("/:name", h.getCron)
	cronGroup.POST("/:name/run", h.runCron)

	taskGroup := rg.Group("/tasks", authMW, adminMW)
	taskGroup.GET("", h.listTasks)
	taskGroup.GET("/:id", h.getTask)
	taskGroup.POST("/:id/cancel", h.cancelTask)
	taskGroup.POST("/:id/retry", h.retryTask)
	taskGroup.DELETE("", h.deleteFinishedTasks)
}

func (h *Handler) health(c *gin.Context) {
	sqlDB, err := h.db.DB()
	dbOK := err == nil && sqlDB.Ping() == nil
	redisOK := h.rc != nil && h.rc.Raw().Ping(c.Request.Context()).Err() == nil

	status := "ok"
	code := http.StatusOK
	if !dbOK || !redisOK {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":   status,
		"database": dbOK,
		"redis":    redisOK,
	})
}

func (h *Handler) uptime(c *gin.Context) {
	response.OK(c, gin.H{
		"started_at": h.startedAt,
		"uptime_ms":  time.Since(h.startedAt).Milliseconds(),
	})
}

func (h *Handler) stats(c *gin.Context) {
	stats, err := collectStats(h.db)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.OK(c, stats)
}

func (h *Handler) listActivities(c *gin.Context) {
	q := pagination.FromContext(c)
	tx := h.db.Model(&models.ActivityModel{}).Order("created_at DESC")
	if v := c.Query("type"); v != "" {
		tx = tx.Where("type = ?", v)
	}
	if v := c.Query("actor_id"); v != "" {
		tx = tx.Where("actor_id = ?", v)
	}
	var rows []models.ActivityModel
	pag, err := pagination.Paginate(tx, q, &rows)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, pag)
}

func (h *Handler) listCron(c *gin.Context) {
	response.OK(c, h.sched.List())
}

func (h *Handler) getCron(c *gin.Context) {
	state, err := h.sched.GetTask(c.Param("name"))
	if err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, state)
}

func (h *Handler) runCron(c *gin.Context) {
	if err := h.sched.Run(c.Request.Context(), c.Param("name")); err != nil {
		response.NotFoundMsg(c, err.Error())
		return
	}
	response.OK(c, gin.H{"message": "job triggered"})
}

func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)

	var taskType *string
	var status *taskqueue.TaskStatus
	if v := c.Query("type"); v != "" {
		taskType = &v
	}
	if v := c.Query("status"); v != "" {
		s := taskqueue.TaskStatus(v)
		status = &s
	}

	tasks, total, err := h.tasks.List(c.Request.Context(), q.Page, q.Size, taskType, status)
	if err != nil {
		response.InternalError(c, err)
		return
	}
	totalPage := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPage,
		Size:        q.Size,
		HasNextPage: q.Page < totalPage,
	})
}

func (h *Handler) getTask(c *gin.Context) {
	task, err := h.tasks.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

func (h *Handler) cancelTask(c *gin.Context) {
	if err := h.tasks.Cancel(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

func (h *Handler) retryTask(c *gin.Context) {
	if err := h.tasks.Retry(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

func (h *Handler) deleteFinishedTasks(c *gin.Context) {
	if err := h.tasks.DeleteCompleted(c.Request.Context(), 0); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
