package services

import (
	"path/filepath"
	"testing"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "services.db"),
	}, gormlogger.Silent)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := models.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func newLearningService(db *gorm.DB) *learning.Service {
	return learning.NewGormService(db, config.DefaultLearningConfig(), NewArtifactService(db), NewSystemConfigService(db), NewSafetyAuditor(db))
}

func feedbackInput(artifactID uint, rating int, raterID *uint, issues models.SpecificIssues) learning.FeedbackInput {
	return learning.FeedbackInput{
		ArtifactID:     artifactID,
		RaterID:        raterID,
		OverallRating:  rating,
		SpecificIssues: issues,
	}
}
