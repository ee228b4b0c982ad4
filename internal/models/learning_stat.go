package models

import (
	"time"

	"gorm.io/datatypes"
)

// StatContext is the context bag recorded with a heuristic stat.
type StatContext struct {
	Style               string         `json:"style,omitempty"`
	Quality             string         `json:"quality,omitempty"`
	CommonPrompts       []string       `json:"common_prompts,omitempty"`       // newest last, bounded
	EffectivenessTrends map[string]int `json:"effectiveness_trends,omitempty"` // style -> latest rating
}

// LearningStat aggregates every rating folded into one (category, heuristic) pair.
type LearningStat struct {
	ID              uint                            `gorm:"primaryKey" json:"id"`
	Category        string                          `gorm:"size:32;not null;uniqueIndex:idx_learning_stats_key" json:"category"`
	Heuristic       string                          `gorm:"size:191;not null;uniqueIndex:idx_learning_stats_key" json:"heuristic"`
	SuccessCount    int                             `gorm:"not null;default:0" json:"success_count"`
	TotalCount      int                             `gorm:"not null;default:0" json:"total_count"`
	AverageRating   int                             `gorm:"not null;default:0" json:"average_rating"` // mean rating * 100
	Style           string                          `gorm:"size:100;index" json:"style"`              // mirrors ContextMetadata.Style
	ContextMetadata datatypes.JSONType[StatContext] `json:"context_metadata"`
	LastUpdated     time.Time                       `json:"last_updated"`
	CreatedAt       time.Time                       `json:"created_at"`
}

func (LearningStat) TableName() string { return "learning_stats" }

// Context returns the decoded context metadata.
func (s *LearningStat) Context() StatContext {
	return s.ContextMetadata.Data()
}
