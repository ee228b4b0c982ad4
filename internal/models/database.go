package models

import (
	"fmt"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

// Open connects to the configured database without touching the package-level handle.
func Open(cfg *config.DatabaseConfig, logLevel logger.LogLevel) (*gorm.DB, error) {
	var dialector gorm.Dialector

	switch cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN)
	case "mysql":
		dialector = mysql.Open(cfg.DSN)
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: logger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	if cfg.Driver == "sqlite" {
		// SQLite allows a single writer.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	return db, nil
}

func InitDB(cfg *config.DatabaseConfig) error {
	db, err := Open(cfg, logger.Warn)
	if err != nil {
		return err
	}

	DB = db
	return nil
}

// Migrate creates or updates every table owned by the application.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&GeneratedArtifact{},
		&Feedback{},
		&LearningStat{},
		&StatApplication{},
		&SystemConfig{},
		&SystemLog{},
		&SchedulerLock{},
	)
}

func AutoMigrate() error {
	return Migrate(DB)
}

func GetDB() *gorm.DB {
	return DB
}

// SeedDefaultData creates default data if not exists
func SeedDefaultData() error {
	return Seed(DB)
}

// Seed inserts default runtime config rows that do not exist yet.
func Seed(db *gorm.DB) error {
	defaultConfigs := []SystemConfig{
		{Key: ConfigLearningForceBaseline, Value: "false", Type: "bool", Group: "learning", Label: "Force Baseline Generation Parameters"},
		{Key: ConfigLogRetentionDays, Value: "30", Type: "int", Group: "system", Label: "System Log Retention Days"},
	}

	for _, cfg := range defaultConfigs {
		var count int64
		if err := db.Model(&SystemConfig{}).Where("config_key = ?", cfg.Key).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			if err := db.Create(&cfg).Error; err != nil {
				return err
			}
		}
	}

	return nil
}
