package app

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/modules/ai"
	"github.com/the-flip/core/internal/modules/auth"
	"github.com/the-flip/core/internal/modules/discord"
	"github.com/the-flip/core/internal/modules/machine"
	"github.com/the-flip/core/internal/modules/media"
	"github.com/the-flip/core/internal/modules/ops"
	"github.com/the-flip/core/internal/modules/part"
	"github.com/the-flip/core/internal/modules/problem"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/webhook"
	"github.com/the-flip/core/internal/modules/worklog"
	pkgredis "github.com/the-flip/core/internal/pkg/redis"
	"github.com/the-flip/core/internal/pkg/response"
)

const apiPrefix = "/api/v1"

func (a *App) registerRoutes(rc *pkgredis.Client) {
	r := a.router
	db := a.db

	authMW := middleware.Auth(db)
	optionalAuthMW := middleware.OptionalAuth(db)
	adminMW := middleware.RequireAdmin()

	r.NoRoute(func(c *gin.Context) {
		response.NotFound(c)
	})
	r.NoMethod(func(c *gin.Context) {
		response.MethodNotAllowed(c)
	})

	appInfo := gin.H{
		"name":     "the-flip-core",
		"version":  "1.0.0",
		"homepage": "https://github.com/the-flip/core",
	}

	// Rate limiting and idempotence run on every route (requires Redis).
	r.Use(middleware.RateLimit(rc.Raw(), a.db))
	r.Use(middleware.Idempotence(rc.Raw()))

	api := r.Group(apiPrefix)
	api.Use(middleware.HTTPCache(rc.Raw(), middleware.HTTPCacheOptions{
		TTL:       15 * time.Second,
		Disable:   a.cfg.IsDev(),
		SkipPaths: httpCacheSkipPaths(apiPrefix),
	}))

	api.GET("", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })
	api.GET("/info", func(c *gin.Context) { c.PureJSON(http.StatusOK, appInfo) })

	// Settings and auth
	appsettings.NewHandler(a.settings).RegisterRoutes(api, authMW, adminMW)
	auth.NewHandler(auth.NewService(db)).RegisterRoutes(api, authMW, adminMW)

	// Catalog and fleet
	machineSvc := machine.NewService(db, a.logger, a.webhooks)
	machine.NewHandler(machineSvc).RegisterRoutes(api, authMW, adminMW)

	// Maintenance
	problemSvc := problem.NewService(db, a.logger, a.webhooks, a.settings)
	problem.NewHandler(problemSvc).RegisterRoutes(api, authMW, optionalAuthMW)

	worklogSvc := worklog.NewService(db, a.logger, a.webhooks)
	worklog.NewHandler(worklogSvc).RegisterRoutes(api, authMW)

	partSvc := part.NewService(db, a.logger, a.webhooks)
	part.NewHandler(partSvc).RegisterRoutes(api, authMW)

	// Media
	media.NewHandler(a.media).RegisterRoutes(api, authMW, optionalAuthMW)

	// Integrations
	webhook.NewHandler(a.webhooks).RegisterRoutes(api, authMW)
	discordSvc := discord.NewService(db, a.logger, problemSvc, worklogSvc, partSvc)
	discord.NewHandler(discordSvc, a.settings).RegisterRoutes(api)
	ai.NewHandler(ai.NewService(db, a.logger, a.settings)).RegisterRoutes(api, authMW)

	// Health, stats, cron and task administration
	ops.NewHandler(db, rc, a.sched, a.tasks).RegisterRoutes(api, authMW, adminMW)
}

// httpCacheSkipPaths excludes endpoints whose responses must never be served
// stale: auth flows, file bodies, the Discord ingest and anything mutated by
// the admin surfaces.
func httpCacheSkipPaths(prefix string) []string {
	p := strings.TrimSuffix(strings.TrimSpace(prefix), "/")
	return []string{
		p + "/ping",
		p + "/health",
		p + "/uptime",
		p + "/auth",
		p + "/maintainers",
		p + "/media",
		p + "/discord",
		p + "/tasks",
		p + "/cron",
		p + "/settings",
		p + "/aggregate/stats",
	}
}
