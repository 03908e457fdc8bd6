package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/the-flip/core/internal/config"
	"github.com/the-flip/core/internal/database"
	"github.com/the-flip/core/internal/middleware"
	"github.com/the-flip/core/internal/modules/media"
	appsettings "github.com/the-flip/core/internal/modules/settings"
	"github.com/the-flip/core/internal/modules/transcode"
	"github.com/the-flip/core/internal/modules/webhook"
	pkgcron "github.com/the-flip/core/internal/pkg/cron"
	pkgredis "github.com/the-flip/core/internal/pkg/redis"
	"github.com/the-flip/core/internal/pkg/taskqueue"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds all application dependencies.
type App struct {
	cfg    *config.AppConfig
	router *gin.Engine
	db     *gorm.DB
	logger *zap.Logger
	cancel context.CancelFunc
	sched  *pkgcron.Scheduler

	// Services shared between HTTP handlers, the task worker and cron jobs.
	settings *appsettings.Service
	webhooks *webhook.Service
	media    *media.Service
	tasks    *taskqueue.Service
}

// New initializes the application: config → DB → Redis → worker → routes.
func New(logger *zap.Logger, cfg *config.AppConfig) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}
	if err := applyRuntimeSettings(cfg, logger); err != nil {
		return nil, err
	}

	db, err := database.Connect(cfg, false)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}

	rc, err := pkgredis.Connect(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("redis: %w", err)
	}

	if cfg.IsDev() {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.HandleMethodNotAllowed = true
	router.Use(gin.Recovery())
	router.Use(middleware.Logger(logger))
	router.Use(cors.New(buildCORSConfig(cfg)))

	ctx, cancel := context.WithCancel(context.Background())

	taskSvc := taskqueue.NewService(rc)
	settingsSvc := appsettings.NewService(db)
	webhookSvc := webhook.NewService(db, logger)
	webhookSvc.SetQueue(taskSvc)
	store := media.NewStore(cfg.Paths.Media)
	mediaSvc := media.NewService(db, logger, store, settingsSvc, taskSvc)
	transcodeSvc := transcode.NewService(db, logger, store, settingsSvc, webhookSvc)

	worker := taskqueue.NewWorker(taskSvc, logger, 2)
	worker.Register(webhook.TaskTypeDeliver, webhookSvc.HandleDeliveryTask)
	worker.Register(media.TaskTypeTranscode, transcodeSvc.HandleTask)
	go worker.Start(ctx)

	app := &App{
		cfg:      cfg,
		router:   router,
		db:       db,
		logger:   logger,
		cancel:   cancel,
		sched:    pkgcron.New(logger),
		settings: settingsSvc,
		webhooks: webhookSvc,
		media:    mediaSvc,
		tasks:    taskSvc,
	}
	app.registerCronJobs()
	go app.sched.Start(ctx)
	app.registerRoutes(rc)

	return app, nil
}

// Addr returns the listen address.
func (a *App) Addr() string { return fmt.Sprintf(":%d", a.cfg.Port) }

// Router returns the HTTP handler.
func (a *App) Router() http.Handler { return a.router }

// Shutdown cleans up background goroutines.
func (a *App) Shutdown() { a.cancel() }
