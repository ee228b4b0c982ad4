package main

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/middleware"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/utils"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// appServices holds all initialized services needed by the application.
type appServices struct {
	db              *gorm.DB
	artifacts       *services.ArtifactService
	feedback        *services.FeedbackService
	learning        *learning.Service
	systemConfig    *services.SystemConfigService
	systemLog       *services.SystemLogService
	dashboard       *services.DashboardService
	events          *services.EventHub
	driftCheck      *services.DriftCheckService
	taskQueue       services.TaskQueue
	worker          *services.Worker
	cleanup         *cron.Cron
	driftScheduler  *cron.Cron
	feedbackLimiter *middleware.RateLimiter
	stopNotifier    context.CancelFunc
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	db, err := models.Open(&cfg.Database, gormlogger.Warn)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}
	models.DB = db

	if err := models.Migrate(db); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	if err := models.Seed(db); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}

	if sqlDB, err := db.DB(); err == nil {
		prometheus.MustRegister(collectors.NewDBStatsCollector(sqlDB, cfg.Database.Driver))
	}

	services.InitSystemLogger(db)
	cleanup := services.StartLogCleanupScheduler(db)

	systemConfig := services.NewSystemConfigService(db)
	artifacts := services.NewArtifactService(db)
	events := services.NewEventHub()
	auditor := services.NewSafetyAuditor(db)
	auditor.SetEventHub(events)
	learningService := learning.NewGormService(db, cfg.Learning, artifacts, systemConfig, auditor)

	// Uses Redis if enabled, otherwise learning updates run inline.
	taskQueue := services.NewTaskQueue(&cfg.Redis)
	feedback := services.NewFeedbackService(artifacts, learningService, taskQueue)
	feedback.SetEventHub(events)
	if syncQueue, ok := taskQueue.(*services.SyncQueue); ok {
		syncQueue.SetProcessor(feedback.ProcessLearningTask)
	}

	var worker *services.Worker
	if taskQueue.IsAsync() {
		worker = services.NewWorker(&cfg.Redis, 0)
		if worker != nil {
			worker.SetProcessor(feedback.ProcessLearningTask)
			if err := worker.Start(); err != nil {
				logger.Error().Err(err).Msg("Failed to start learning worker")
			}
		}
	}

	driftCheck := services.NewDriftCheckService(db, cfg.Learning, artifacts)
	driftCheck.SetEventHub(events)
	driftScheduler := services.StartDriftCheckScheduler(driftCheck, cfg.Learning.DriftCheckSchedule)

	notifierCtx, stopNotifier := context.WithCancel(context.Background())
	go services.NewNotificationService(cfg.Notify.Channels).Run(notifierCtx, events)

	return &appServices{
		db:              db,
		artifacts:       artifacts,
		feedback:        feedback,
		learning:        learningService,
		systemConfig:    systemConfig,
		systemLog:       services.NewSystemLogService(db),
		dashboard:       services.NewDashboardService(db),
		events:          events,
		driftCheck:      driftCheck,
		taskQueue:       taskQueue,
		worker:          worker,
		cleanup:         cleanup,
		driftScheduler:  driftScheduler,
		feedbackLimiter: middleware.NewRateLimiter(cfg.RateLimit.FeedbackRPS, cfg.RateLimit.FeedbackBurst),
		stopNotifier:    stopNotifier,
	}
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	<-s.cleanup.Stop().Done()
	if s.driftScheduler != nil {
		<-s.driftScheduler.Stop().Done()
	}
	s.feedbackLimiter.Stop()
	s.stopNotifier()
	logger.Info().Msg("All schedulers stopped")

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		if err := s.taskQueue.Close(); err != nil {
			logger.Warn().Err(err).Msg("Failed to close task queue")
		}
	}
	if sqlDB, err := s.db.DB(); err == nil {
		sqlDB.Close()
	}
}
