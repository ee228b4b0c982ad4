package models

import (
	"time"

	"gorm.io/datatypes"
)

// Issue flag names a rater can tick on a generated artifact.
const (
	IssueMorphing              = "morphing"
	IssueUnnaturalMotion       = "unnatural_motion"
	IssueWrongEnvironment      = "wrong_environment"
	IssueLightingIssues        = "lighting_issues"
	IssueObjectDistortion      = "object_distortion"
	IssueTemporalInconsistency = "temporal_inconsistency"
)

// Issues lists every issue flag name in display order.
var Issues = []string{
	IssueMorphing,
	IssueUnnaturalMotion,
	IssueWrongEnvironment,
	IssueLightingIssues,
	IssueObjectDistortion,
	IssueTemporalInconsistency,
}

// SpecificIssues is the fixed set of boolean issue flags attached to feedback.
type SpecificIssues struct {
	Morphing              bool `json:"morphing,omitempty"`
	UnnaturalMotion       bool `json:"unnatural_motion,omitempty"`
	WrongEnvironment      bool `json:"wrong_environment,omitempty"`
	LightingIssues        bool `json:"lighting_issues,omitempty"`
	ObjectDistortion      bool `json:"object_distortion,omitempty"`
	TemporalInconsistency bool `json:"temporal_inconsistency,omitempty"`
}

// Has reports whether the named issue is flagged. Unknown names are never flagged.
func (s SpecificIssues) Has(issue string) bool {
	switch issue {
	case IssueMorphing:
		return s.Morphing
	case IssueUnnaturalMotion:
		return s.UnnaturalMotion
	case IssueWrongEnvironment:
		return s.WrongEnvironment
	case IssueLightingIssues:
		return s.LightingIssues
	case IssueObjectDistortion:
		return s.ObjectDistortion
	case IssueTemporalInconsistency:
		return s.TemporalInconsistency
	}
	return false
}

// Feedback is one rater's rating of one generated artifact. Rows are append-only.
type Feedback struct {
	ID                  uint                               `gorm:"primaryKey" json:"id"`
	ArtifactID          uint                               `gorm:"index;not null" json:"artifact_id"`
	RaterID             *uint                              `gorm:"index" json:"rater_id"`
	OverallRating       int                                `gorm:"not null" json:"overall_rating"` // 1-5
	ObjectQuality       *int                               `json:"object_quality"`                 // 1-5
	MovementRealism     *int                               `json:"movement_realism"`               // 1-5
	EnvironmentAccuracy *int                               `json:"environment_accuracy"`           // 1-5
	LightingCoherence   *int                               `json:"lighting_coherence"`             // 1-5
	SpecificIssues      datatypes.JSONType[SpecificIssues] `json:"specific_issues"`
	TextualFeedback     string                             `gorm:"type:text" json:"textual_feedback,omitempty"`
	CreatedAt           time.Time                          `gorm:"index" json:"created_at"`
}

func (Feedback) TableName() string { return "feedback" }

// Issues returns the decoded issue flags.
func (f *Feedback) Issues() SpecificIssues {
	return f.SpecificIssues.Data()
}
