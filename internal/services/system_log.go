package services

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

const defaultRetentionDays = 30

var globalDB *gorm.DB

func InitSystemLogger(db *gorm.DB) {
	globalDB = db
}

func LogInfo(module, action, message string, userID *uint, requestID string, extra interface{}) {
	writeLog("info", module, action, message, userID, requestID, extra)
}

func LogWarning(module, action, message string, userID *uint, requestID string, extra interface{}) {
	writeLog("warning", module, action, message, userID, requestID, extra)
}

func LogError(module, action, message string, userID *uint, requestID string, extra interface{}) {
	writeLog("error", module, action, message, userID, requestID, extra)
}

func writeLog(level, module, action, message string, userID *uint, requestID string, extra interface{}) {
	if globalDB == nil {
		return
	}
	if err := createLog(globalDB, level, module, action, message, userID, requestID, extra); err != nil {
		logger.Warn().Err(err).Str("module", module).Str("action", action).Msg("[SystemLog] Failed to write audit log")
	}
}

func createLog(db *gorm.DB, level, module, action, message string, userID *uint, requestID string, extra interface{}) error {
	var extraStr string
	if extra != nil {
		if b, err := json.Marshal(extra); err == nil {
			extraStr = string(b)
		}
	}

	return db.Create(&models.SystemLog{
		Level:     level,
		Module:    module,
		Action:    action,
		Message:   message,
		UserID:    userID,
		RequestID: requestID,
		Extra:     extraStr,
		CreatedAt: time.Now(),
	}).Error
}

type SystemLogService struct {
	db *gorm.DB
}

func NewSystemLogService(db *gorm.DB) *SystemLogService {
	return &SystemLogService{db: db}
}

type SystemLogListRequest struct {
	Page      int    `form:"page"`
	PageSize  int    `form:"page_size"`
	Level     string `form:"level"`
	Module    string `form:"module"`
	Action    string `form:"action"`
	RequestID string `form:"request_id"`
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	Search    string `form:"search"`
}

type SystemLogListResponse struct {
	Total    int64              `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"page_size"`
	Items    []models.SystemLog `json:"items"`
}

func (s *SystemLogService) List(req *SystemLogListRequest) (*SystemLogListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	var logs []models.SystemLog
	var total int64

	query := s.db.Model(&models.SystemLog{})

	if req.Level != "" {
		query = query.Where("level = ?", req.Level)
	}
	if req.Module != "" {
		query = query.Where("module = ?", req.Module)
	}
	if req.Action != "" {
		query = query.Where("action LIKE ?", "%"+req.Action+"%")
	}
	if req.RequestID != "" {
		query = query.Where("request_id = ?", req.RequestID)
	}
	if req.StartDate != "" {
		query = query.Where("created_at >= ?", req.StartDate)
	}
	if req.EndDate != "" {
		query = query.Where("created_at <= ?", req.EndDate+" 23:59:59")
	}
	if req.Search != "" {
		query = query.Where("message LIKE ?", "%"+req.Search+"%")
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("created_at DESC, id DESC").Find(&logs).Error; err != nil {
		return nil, err
	}

	return &SystemLogListResponse{
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
		Items:    logs,
	}, nil
}

func (s *SystemLogService) GetModules() ([]string, error) {
	var modules []string
	if err := s.db.Model(&models.SystemLog{}).Distinct("module").Order("module").Pluck("module", &modules).Error; err != nil {
		return nil, err
	}
	return modules, nil
}

// CleanupOldLogs deletes logs older than the specified number of days
// Returns the number of deleted records
func (s *SystemLogService) CleanupOldLogs(retentionDays int) (int64, error) {
	if retentionDays <= 0 {
		return 0, nil
	}

	cutoffTime := time.Now().AddDate(0, 0, -retentionDays)
	result := s.db.Where("created_at < ?", cutoffTime).Delete(&models.SystemLog{})
	if result.Error != nil {
		return 0, result.Error
	}

	return result.RowsAffected, nil
}

// GetRetentionDays gets the log retention days from system config
func (s *SystemLogService) GetRetentionDays() int {
	var cfg models.SystemConfig
	if err := s.db.Where("config_key = ?", models.ConfigLogRetentionDays).First(&cfg).Error; err != nil {
		return defaultRetentionDays
	}

	days, err := strconv.Atoi(cfg.Value)
	if err != nil {
		return defaultRetentionDays
	}
	return days
}

// StartLogCleanupScheduler runs a cleanup immediately and then daily.
// The returned scheduler must be stopped on shutdown.
func StartLogCleanupScheduler(db *gorm.DB) *cron.Cron {
	service := NewSystemLogService(db)
	go service.runCleanup()

	scheduler := cron.New()
	job := func() { runExclusive(db, "log_cleanup", time.Hour, service.runCleanup) }
	if _, err := scheduler.AddFunc("@daily", job); err != nil {
		logger.Errorf("[SystemLog] Failed to schedule log cleanup: %v", err)
		return scheduler
	}
	scheduler.Start()
	logger.Infof("[SystemLog] Cleanup scheduler started")
	return scheduler
}

func (s *SystemLogService) runCleanup() {
	retentionDays := s.GetRetentionDays()
	if retentionDays <= 0 {
		logger.Infof("[SystemLog] Log cleanup disabled (retention_days <= 0)")
		return
	}

	deleted, err := s.CleanupOldLogs(retentionDays)
	if err != nil {
		logger.Errorf("[SystemLog] Failed to cleanup old logs: %v", err)
		return
	}

	if deleted > 0 {
		logger.Infof("[SystemLog] Cleaned up %d logs older than %d days", deleted, retentionDays)
	}
}

// SafetyAuditor records safety governor transitions in the system log. Only
// changes of the disabled flag are written; repeated verdicts are skipped.
type SafetyAuditor struct {
	db     *gorm.DB
	events *EventHub

	mu   sync.Mutex
	last *bool
}

func NewSafetyAuditor(db *gorm.DB) *SafetyAuditor {
	return &SafetyAuditor{db: db}
}

// SetEventHub publishes each transition as a safety_changed event.
func (a *SafetyAuditor) SetEventHub(hub *EventHub) {
	a.events = hub
}

func (a *SafetyAuditor) RecordSafetyDecision(ctx context.Context, v learning.Verdict) {
	a.mu.Lock()
	if a.last != nil && *a.last == v.Disabled {
		a.mu.Unlock()
		return
	}
	disabled := v.Disabled
	a.last = &disabled
	a.mu.Unlock()

	level, action := "info", "learning_enabled"
	if v.Disabled {
		level, action = "warning", "learning_disabled"
	}
	a.events.Publish(LearningEvent{
		Type:      EventSafetyChanged,
		Disabled:  &disabled,
		Reason:    v.Reason,
		RequestID: RequestIDFrom(ctx),
	})
	if err := createLog(a.db.WithContext(ctx), level, models.LogModuleSafety, action, v.Reason, nil, RequestIDFrom(ctx), v); err != nil {
		logger.Warn().Err(err).Msg("[SafetyAuditor] Failed to record safety decision")
	}
}

// RequestIDKey carries the request ID through a context.
type RequestIDKey struct{}

// WithRequestID returns ctx carrying id.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, RequestIDKey{}, id)
}

// RequestIDFrom returns the request ID carried by ctx, if any.
func RequestIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey{}).(string)
	return id
}
