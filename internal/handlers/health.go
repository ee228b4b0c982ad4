package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
)

// HealthHandler reports the health of the database, the task queue and the
// learning subsystem.
type HealthHandler struct {
	db       *gorm.DB
	queue    services.TaskQueue
	learning *learning.Service
}

func NewHealthHandler(db *gorm.DB, queue services.TaskQueue, learningService *learning.Service) *HealthHandler {
	return &HealthHandler{db: db, queue: queue, learning: learningService}
}

// CheckHealth returns the health status of all subsystems.
func (h *HealthHandler) CheckHealth(c *gin.Context) {
	overall := "healthy"
	status := http.StatusOK

	dbStatus := "ok"
	sqlDB, err := h.db.DB()
	if err != nil {
		dbStatus = "error: " + err.Error()
	} else if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		dbStatus = "error: " + err.Error()
	}
	if dbStatus != "ok" {
		overall = "unhealthy"
		status = http.StatusServiceUnavailable
	}

	queueMode := "sync"
	if h.queue != nil && h.queue.IsAsync() {
		queueMode = "async (Redis)"
	}

	learningMode := "unknown"
	if h.learning != nil && dbStatus == "ok" {
		learningMode = h.learning.Status(c.Request.Context()).Mode
	}

	c.JSON(status, gin.H{
		"status":  overall,
		"service": "aigif-flashcards",
		"components": gin.H{
			"database":      dbStatus,
			"queue_mode":    queueMode,
			"learning_mode": learningMode,
		},
	})
}
