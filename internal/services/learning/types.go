package learning

import (
	"strings"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// Rated quality dimensions plus the overall category.
const (
	CategoryObject      = "object"
	CategoryMovement    = "movement"
	CategoryEnvironment = "environment"
	CategoryLighting    = "lighting"
	CategoryOverall     = "overall"
)

const (
	HeuristicBaseGeneration    = "base_generation"
	HeuristicGenerationSuccess = "generation_success"

	avoidPrefix = "avoid_"
	tierPrefix  = HeuristicGenerationSuccess + "/"

	// DefaultQuality is recommended when feedback cannot single out a tier.
	DefaultQuality = "standard"
)

// AvoidHeuristic names the heuristic tracking how often an issue is reported.
func AvoidHeuristic(issue string) string {
	return avoidPrefix + issue
}

// AvoidedIssue returns the issue name of an avoid_<issue> heuristic.
func AvoidedIssue(heuristic string) (string, bool) {
	if !strings.HasPrefix(heuristic, avoidPrefix) || len(heuristic) == len(avoidPrefix) {
		return "", false
	}
	return strings.TrimPrefix(heuristic, avoidPrefix), true
}

// TierHeuristic names the overall-success heuristic scoped to one style and quality tier.
func TierHeuristic(style, quality string) string {
	return tierPrefix + style + "/" + quality
}

// ratedCategory binds a sub-rating to its category and the issue flags it owns.
type ratedCategory struct {
	category string
	rating   func(*models.Feedback) *int
	issues   []string
}

var ratedCategories = []ratedCategory{
	{
		category: CategoryObject,
		rating:   func(f *models.Feedback) *int { return f.ObjectQuality },
		issues:   []string{models.IssueObjectDistortion},
	},
	{
		category: CategoryMovement,
		rating:   func(f *models.Feedback) *int { return f.MovementRealism },
		issues:   []string{models.IssueUnnaturalMotion, models.IssueTemporalInconsistency},
	},
	{
		category: CategoryEnvironment,
		rating:   func(f *models.Feedback) *int { return f.EnvironmentAccuracy },
		issues:   []string{models.IssueWrongEnvironment},
	},
	{
		category: CategoryLighting,
		rating:   func(f *models.Feedback) *int { return f.LightingCoherence },
		issues:   []string{models.IssueLightingIssues},
	},
}

// GenerationContext is the configuration an artifact was generated with.
type GenerationContext struct {
	Style   string `json:"style"`
	Quality string `json:"quality"`
	Prompt  string `json:"prompt"`
}

func (g GenerationContext) normalized() GenerationContext {
	return GenerationContext{
		Style:   strings.ToLower(strings.TrimSpace(g.Style)),
		Quality: strings.ToLower(strings.TrimSpace(g.Quality)),
		Prompt:  strings.TrimSpace(g.Prompt),
	}
}

// Observation is one rating folded into a heuristic stat. A non-zero
// FeedbackID makes the fold idempotent: a key already folded for that event
// is left unchanged.
type Observation struct {
	FeedbackID uint
	Rating     int
	Context    GenerationContext
}

// Adjustments are numeric generation-parameter offsets.
type Adjustments struct {
	Guidance float64 `json:"guidance"`
	Steps    int     `json:"steps"`
	CondAug  float64 `json:"cond_aug"`
}

// Modifiers are the prompt modifiers handed to prompt construction, either
// learned or the fixed baseline.
type Modifiers struct {
	ObjectEnhancements      []string    `json:"object_enhancements"`
	MovementEnhancements    []string    `json:"movement_enhancements"`
	EnvironmentEnhancements []string    `json:"environment_enhancements"`
	LightingEnhancements    []string    `json:"lighting_enhancements"`
	AvoidanceTerms          []string    `json:"avoidance_terms"`
	PromptEnhancements      []string    `json:"prompt_enhancements"`
	Adjustments             Adjustments `json:"adjustments"`
}

func newModifiers() *Modifiers {
	return &Modifiers{
		ObjectEnhancements:      []string{},
		MovementEnhancements:    []string{},
		EnvironmentEnhancements: []string{},
		LightingEnhancements:    []string{},
		AvoidanceTerms:          []string{},
		PromptEnhancements:      []string{},
	}
}

// QualityRecommendation is the suggested quality tier for a style.
type QualityRecommendation struct {
	Quality     string  `json:"recommended_quality"`
	Reason      string  `json:"reasoning"`
	SampleSize  int     `json:"sample_size"`
	SuccessRate float64 `json:"success_rate"`
}

// Guidance is everything a prompt builder needs before one generation.
type Guidance struct {
	Modifiers          *Modifiers `json:"modifiers"`
	RecommendedQuality string     `json:"recommended_quality"`
	QualityReason      string     `json:"quality_reason"`
	UsedBaseline       bool       `json:"used_baseline"`
	BaselineReason     string     `json:"baseline_reason,omitempty"`
}

// Averages are per-dimension means over an artifact's feedback. A nil mean
// means no rating was given for that dimension.
type Averages struct {
	Overall     *float64 `json:"overall"`
	Object      *float64 `json:"object"`
	Movement    *float64 `json:"movement"`
	Environment *float64 `json:"environment"`
	Lighting    *float64 `json:"lighting"`
	Count       int64    `json:"count"`
}

// FeedbackSummary is the inspection view of one artifact's feedback.
type FeedbackSummary struct {
	Events   []models.Feedback `json:"feedback"`
	Averages Averages          `json:"averages"`
}

// FeedbackInput is a feedback submission before persistence.
type FeedbackInput struct {
	ArtifactID          uint
	RaterID             *uint
	OverallRating       int
	ObjectQuality       *int
	MovementRealism     *int
	EnvironmentAccuracy *int
	LightingCoherence   *int
	SpecificIssues      models.SpecificIssues
	TextualFeedback     string
}
