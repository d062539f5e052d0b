package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/smd-edu/syllabus-api/api/swagger"
	"github.com/smd-edu/syllabus-api/internal/handler"
	"github.com/smd-edu/syllabus-api/internal/middleware"
	"github.com/smd-edu/syllabus-api/internal/models"
	"github.com/smd-edu/syllabus-api/internal/repository"
	"github.com/smd-edu/syllabus-api/internal/service"
	"github.com/smd-edu/syllabus-api/internal/workflow"
	"github.com/smd-edu/syllabus-api/pkg/cache"
	"github.com/smd-edu/syllabus-api/pkg/config"
	"github.com/smd-edu/syllabus-api/pkg/database"
	"github.com/smd-edu/syllabus-api/pkg/dispatch"
	"github.com/smd-edu/syllabus-api/pkg/logger"
	corsmiddleware "github.com/smd-edu/syllabus-api/pkg/middleware/cors"
	reqidmiddleware "github.com/smd-edu/syllabus-api/pkg/middleware/requestid"
)

// @title Syllabus Workflow API
// @version 1.0.0
// @description Multi-stage approval workflow for academic syllabi
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to postgres", "error", err)
	}
	defer db.Close()

	rdb, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect to redis", "error", err)
	}
	defer rdb.Close()

	userRepo := repository.NewUserRepository(db)
	syllabusRepo := repository.NewSyllabusRepository(db)
	revisionRepo := repository.NewRevisionRepository(db)
	feedbackRepo := repository.NewFeedbackRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	metricsSvc := service.NewMetricsService()

	authSvc := service.NewAuthService(userRepo, nil, logr, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		Issuer:             "syllabus-api",
	})

	notificationSvc := service.NewNotificationService(notificationRepo, userRepo, syllabusRepo, rdb,
		cfg.Notifications.Channel, dispatch.Config{
			Workers:    cfg.Notifications.Workers,
			MaxRetries: cfg.Notifications.MaxRetries,
			RetryDelay: cfg.Notifications.RetryDelay,
		}, logr)

	emitters := []service.EventEmitter{
		service.EmitterFunc(func(_ context.Context, ev workflow.Event) {
			metricsSvc.ObserveWorkflowTransition(string(ev.From), string(ev.To))
		}),
	}
	if cfg.Notifications.Enabled {
		emitters = append(emitters, notificationSvc)
	}
	emitter := service.MultiEmitter(emitters...)

	syllabusSvc := service.NewSyllabusService(syllabusRepo, userRepo, logr,
		service.WithSyllabusEmitter(emitter))
	revisionSvc := service.NewRevisionService(revisionRepo, syllabusRepo, feedbackRepo, userRepo, logr,
		service.WithRevisionEmitter(emitter))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Notifications.Enabled {
		notificationSvc.Queue().Start(ctx)
		defer notificationSvc.Queue().Stop()
	}

	authHandler := handler.NewAuthHandler(authSvc)
	syllabusHandler := handler.NewSyllabusHandler(syllabusSvc)
	revisionHandler := handler.NewRevisionHandler(revisionSvc)
	notificationHandler := handler.NewNotificationHandler(notificationSvc)
	metricsHandler := handler.NewMetricsHandler(metricsSvc)

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))

	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	api := r.Group(cfg.APIPrefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", middleware.Audit(userRepo, models.AuditActionLogin, "auth"), authHandler.Login)
		auth.POST("/refresh", authHandler.Refresh)

		authed := auth.Group("", middleware.JWT(authSvc))
		authed.POST("/logout", authHandler.Logout)
		authed.POST("/change-password", authHandler.ChangePassword)
		authed.GET("/me", authHandler.Me)
	}

	protected := api.Group("", middleware.JWT(authSvc))

	syllabi := protected.Group("/syllabi")
	{
		syllabi.POST("", middleware.RequireRoles(models.RoleLecturer, models.RoleAdmin), syllabusHandler.Create)
		syllabi.GET("", syllabusHandler.List)
		syllabi.GET("/status-tabs", syllabusHandler.StatusTabs)
		syllabi.GET("/:id", syllabusHandler.Get)
		syllabi.GET("/:id/history", syllabusHandler.History)
		syllabi.POST("/:id/submit", middleware.RequireRoles(models.RoleLecturer), syllabusHandler.Submit)
		syllabi.POST("/:id/decision",
			middleware.RequireRoles(models.RoleHOD, models.RoleAA, models.RolePrincipal, models.RoleAdmin),
			syllabusHandler.Decide)
		syllabi.POST("/:id/archive", middleware.RequireRoles(models.RoleAdmin), syllabusHandler.Archive)
		if cfg.Workflow.RevisionsEnabled {
			syllabi.GET("/:id/revision", revisionHandler.ActiveSession)
			syllabi.GET("/:id/revision/completed", revisionHandler.CompletedSession)
		}
	}

	if cfg.Workflow.RevisionsEnabled {
		revisions := protected.Group("/revisions")
		{
			revisions.POST("", middleware.RequireRoles(models.RoleAdmin), revisionHandler.Start)
			revisions.GET("/pending", middleware.RequireRoles(models.RoleHOD, models.RoleAdmin), revisionHandler.PendingReview)
			revisions.GET("/:id", revisionHandler.Get)
			revisions.POST("/:id/submit", middleware.RequireRoles(models.RoleLecturer), revisionHandler.Submit)
			revisions.POST("/:id/review", middleware.RequireRoles(models.RoleHOD), revisionHandler.Review)
			revisions.POST("/:id/republish", middleware.RequireRoles(models.RoleAdmin), revisionHandler.Republish)
			revisions.POST("/:id/cancel", middleware.RequireRoles(models.RoleAdmin), revisionHandler.Cancel)
		}
	}

	notifications := protected.Group("/notifications")
	{
		notifications.GET("", notificationHandler.List)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.POST("/:id/read", notificationHandler.MarkRead)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logr.Sugar().Infow("server starting", "addr", srv.Addr, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logr.Sugar().Fatalw("server failed", "error", err)
		}
	}()

	<-ctx.Done()
	logr.Sugar().Infow("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Sugar().Errorw("graceful shutdown failed", "error", err)
	}
}
