package models

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

const (
	DefaultArtifactStyle   = "photorealistic"
	DefaultArtifactQuality = "standard"
)

// GeneratedArtifact is one AI-generated image/video/GIF that feedback can be attached to.
type GeneratedArtifact struct {
	ID        uint           `gorm:"primaryKey" json:"id"`
	Word      string         `gorm:"size:100;index" json:"word"`
	Prompt    string         `gorm:"type:text;not null" json:"prompt"`
	MediaURL  string         `gorm:"size:500" json:"media_url"`
	MediaType string         `gorm:"size:20;default:gif" json:"media_type"` // image, video, gif
	Settings  datatypes.JSON `json:"settings"`                              // {"style": "...", "quality": "..."}
	CreatedBy *uint          `json:"created_by"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

func (GeneratedArtifact) TableName() string { return "generated_artifacts" }

// ArtifactSettings is the generation configuration recorded with an artifact.
type ArtifactSettings struct {
	Style   string `json:"style,omitempty"`
	Quality string `json:"quality,omitempty"`
}

// GenerationSettings returns the recorded settings with defaults applied for
// missing fields. ok is false when the artifact carries no settings at all.
func (a *GeneratedArtifact) GenerationSettings() (settings ArtifactSettings, ok bool) {
	if len(a.Settings) == 0 || string(a.Settings) == "null" {
		return ArtifactSettings{}, false
	}
	if err := json.Unmarshal(a.Settings, &settings); err != nil {
		return ArtifactSettings{}, false
	}
	if settings.Style == "" {
		settings.Style = DefaultArtifactStyle
	}
	if settings.Quality == "" {
		settings.Quality = DefaultArtifactQuality
	}
	return settings, true
}
