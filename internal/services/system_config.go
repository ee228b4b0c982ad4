package services

import (
	"context"
	"errors"
	"strconv"

	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

type SystemConfigService struct {
	db *gorm.DB
}

func NewSystemConfigService(db *gorm.DB) *SystemConfigService {
	return &SystemConfigService{db: db}
}

func (s *SystemConfigService) Get(key string) (string, error) {
	var cfg models.SystemConfig
	if err := s.db.Where("config_key = ?", key).First(&cfg).Error; err != nil {
		return "", err
	}
	return cfg.Value, nil
}

func (s *SystemConfigService) GetWithDefault(key, defaultValue string) string {
	value, err := s.Get(key)
	if err != nil {
		return defaultValue
	}
	return value
}

func (s *SystemConfigService) Set(key, value string) error {
	var cfg models.SystemConfig
	err := s.db.Where("config_key = ?", key).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		cfg = models.SystemConfig{
			Key:   key,
			Value: value,
		}
		return s.db.Create(&cfg).Error
	}
	if err != nil {
		return err
	}
	return s.db.Model(&cfg).Update("value", value).Error
}

func (s *SystemConfigService) GetByGroup(group string) ([]models.SystemConfig, error) {
	var configs []models.SystemConfig
	if err := s.db.Where("config_group = ?", group).Order("config_key").Find(&configs).Error; err != nil {
		return nil, err
	}
	return configs, nil
}

// ForceBaseline reports the operator override for adaptive learning. A
// missing key means no override.
func (s *SystemConfigService) ForceBaseline(ctx context.Context) (bool, error) {
	var cfg models.SystemConfig
	err := s.db.WithContext(ctx).Where("config_key = ?", models.ConfigLearningForceBaseline).First(&cfg).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	on, err := strconv.ParseBool(cfg.Value)
	if err != nil {
		return false, nil
	}
	return on, nil
}

// SetForceBaseline toggles the override and audits the change.
func (s *SystemConfigService) SetForceBaseline(ctx context.Context, on bool, userID *uint) error {
	if err := s.Set(models.ConfigLearningForceBaseline, strconv.FormatBool(on)); err != nil {
		return err
	}
	action, message := "learning_resumed", "Adaptive learning resumed by operator"
	if on {
		action, message = "learning_reset_to_baseline", "Baseline parameters forced by operator"
	}
	if err := createLog(s.db.WithContext(ctx), "info", models.LogModuleLearning, action, message, userID, RequestIDFrom(ctx), nil); err != nil {
		return err
	}
	return nil
}
