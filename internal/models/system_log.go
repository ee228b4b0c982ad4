package models

import "time"

// System log modules
const (
	LogModuleLearning = "learning"
	LogModuleSafety   = "learning_safety"
	LogModuleFeedback = "feedback"
)

// SystemLog is an audit record of a system decision or admin operation
type SystemLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Level     string    `gorm:"size:20;index" json:"level"` // info, warning, error
	Module    string    `gorm:"size:100;index" json:"module"`
	Action    string    `gorm:"size:200;index" json:"action"`
	Message   string    `gorm:"type:text" json:"message"`
	UserID    *uint     `json:"user_id"`
	RequestID string    `gorm:"size:64" json:"request_id,omitempty"`
	Extra     string    `gorm:"type:text" json:"extra"` // JSON extra data
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (SystemLog) TableName() string { return "system_logs" }
