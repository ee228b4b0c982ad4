package main

import (
	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/handlers"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/middleware"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, cfg *config.Config, svc *appServices) {
	// Middleware
	r.Use(middleware.RequestID(), logger.GinLogger(), logger.GinRecovery())
	r.Use(middleware.CORS(), middleware.Metrics())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false

	healthHandler := handlers.NewHealthHandler(svc.db, svc.taskQueue, svc.learning)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	artifactHandler := handlers.NewArtifactHandler(svc.artifacts)
	feedbackHandler := handlers.NewFeedbackHandler(svc.feedback, svc.artifacts, svc.learning)
	learningHandler := handlers.NewLearningHandler(svc.learning, svc.systemConfig, svc.driftCheck)
	systemLogHandler := handlers.NewSystemLogHandler(svc.systemLog)
	systemConfigHandler := handlers.NewSystemConfigHandler(svc.systemConfig)
	dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)
	eventsHandler := handlers.NewEventsHandler(svc.events)

	api := r.Group("/api")
	{
		// Public routes; a valid token attaches the caller's identity.
		public := api.Group("", middleware.OptionalAuth())
		{
			public.POST("/artifacts", artifactHandler.Create)
			public.GET("/artifacts", artifactHandler.List)
			public.GET("/artifacts/:id", artifactHandler.GetByID)

			public.POST("/feedback", svc.feedbackLimiter.Middleware(), feedbackHandler.Submit)
			public.GET("/feedback/:artifactId", feedbackHandler.Summary)

			public.GET("/recommendations/:style", learningHandler.QualityRecommendation)
			public.POST("/guidance", learningHandler.Guidance)
			public.GET("/learning/status", learningHandler.Status)
		}

		// SSE (token checked by the handler, EventSource cannot send headers)
		api.GET("/events/learning", eventsHandler.StreamLearningEvents)

		// Admin routes
		admin := api.Group("")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			admin.GET("/dashboard/stats", dashboardHandler.GetStats)

			admin.GET("/learning/stats", learningHandler.Stats)
			admin.POST("/learning/drift-check", learningHandler.DriftCheck)
			admin.POST("/learning/reset", learningHandler.Reset)
			admin.POST("/learning/resume", learningHandler.Resume)

			admin.GET("/system-config/:group", systemConfigHandler.GetByGroup)

			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)
		}
	}

	logger.Infof("Routes registered (redis=%v, force_baseline=%v)", cfg.Redis.Enabled, cfg.Learning.ForceBaseline)
}
