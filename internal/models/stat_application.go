package models

import "time"

// StatApplication marks that one feedback event has been folded into one
// (category, heuristic) stat. It is written in the same transaction as the
// stat, so a redelivered learning task skips keys it already applied.
type StatApplication struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	FeedbackID uint      `gorm:"not null;uniqueIndex:idx_stat_applications_key" json:"feedback_id"`
	Category   string    `gorm:"size:32;not null;uniqueIndex:idx_stat_applications_key" json:"category"`
	Heuristic  string    `gorm:"size:191;not null;uniqueIndex:idx_stat_applications_key" json:"heuristic"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StatApplication) TableName() string { return "stat_applications" }
