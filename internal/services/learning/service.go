// Package learning aggregates rater feedback on generated artifacts into
// per-heuristic statistics and turns them into prompt guidance, with a safety
// governor that falls back to fixed baseline parameters when recent feedback
// degrades.
package learning

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// ContextResolver looks up the generation configuration of an artifact. It
// returns (nil, nil) when the artifact exists but carries no settings and an
// error wrapping ErrNotFound when the artifact does not exist.
type ContextResolver interface {
	GenerationContext(ctx context.Context, artifactID uint) (*GenerationContext, error)
}

// OverrideSource reports a runtime operator override forcing baseline
// parameters.
type OverrideSource interface {
	ForceBaseline(ctx context.Context) (bool, error)
}

// Deps are the collaborators of a Service. Feedback, Stats and Contexts are
// required.
type Deps struct {
	Feedback FeedbackStore
	Stats    StatsStore
	Contexts ContextResolver
	Override OverrideSource
	Auditor  Auditor
}

// Service is the entry point of the learning subsystem.
type Service struct {
	cfg         config.LearningConfig
	feedback    FeedbackStore
	stats       StatsStore
	contexts    ContextResolver
	override    OverrideSource
	aggregator  *Aggregator
	recommender *Recommender
	governor    *SafetyGovernor
	log         zerolog.Logger
}

func NewService(cfg config.LearningConfig, deps Deps) *Service {
	return &Service{
		cfg:         cfg,
		feedback:    deps.Feedback,
		stats:       deps.Stats,
		contexts:    deps.Contexts,
		override:    deps.Override,
		aggregator:  NewAggregator(deps.Stats, cfg),
		recommender: NewRecommender(deps.Stats, cfg),
		governor:    NewSafetyGovernor(deps.Feedback, cfg, deps.Auditor),
		log:         logger.Component("learning"),
	}
}

// NewGormService wires the database-backed stores.
func NewGormService(db *gorm.DB, cfg config.LearningConfig, contexts ContextResolver, override OverrideSource, auditor Auditor) *Service {
	return NewService(cfg, Deps{
		Feedback: NewFeedbackStore(db),
		Stats:    NewStatsStore(db, NewFoldRule(cfg)),
		Contexts: contexts,
		Override: override,
		Auditor:  auditor,
	})
}

func (s *Service) Aggregator() *Aggregator       { return s.aggregator }
func (s *Service) Recommender() *Recommender     { return s.recommender }
func (s *Service) Governor() *SafetyGovernor     { return s.governor }
func (s *Service) FeedbackStore() FeedbackStore  { return s.feedback }
func (s *Service) StatsStore() StatsStore        { return s.stats }
func (s *Service) Config() config.LearningConfig { return s.cfg }

// RecordFeedback validates and persists one feedback event. Learning updates
// are not applied here; see OnFeedbackRecorded and ProcessFeedback.
func (s *Service) RecordFeedback(ctx context.Context, in FeedbackInput) (*models.Feedback, error) {
	fb := &models.Feedback{
		ArtifactID:          in.ArtifactID,
		RaterID:             in.RaterID,
		OverallRating:       in.OverallRating,
		ObjectQuality:       in.ObjectQuality,
		MovementRealism:     in.MovementRealism,
		EnvironmentAccuracy: in.EnvironmentAccuracy,
		LightingCoherence:   in.LightingCoherence,
		SpecificIssues:      datatypes.NewJSONType(in.SpecificIssues),
		TextualFeedback:     in.TextualFeedback,
	}
	saved, err := s.feedback.Save(ctx, fb)
	switch {
	case err == nil:
		metrics.FeedbackRecorded.WithLabelValues("ok").Inc()
	case IsValidation(err):
		metrics.FeedbackRecorded.WithLabelValues("invalid").Inc()
		return nil, err
	default:
		metrics.FeedbackRecorded.WithLabelValues("error").Inc()
		return nil, err
	}

	s.log.Info().
		Uint("feedback_id", saved.ID).
		Uint("artifact_id", saved.ArtifactID).
		Int("overall_rating", saved.OverallRating).
		Msg("Feedback recorded")
	return saved, nil
}

// OnFeedbackRecorded folds a persisted event into the heuristic stats.
// Failures are logged and returned but never undo the persisted event.
func (s *Service) OnFeedbackRecorded(ctx context.Context, fb *models.Feedback, gc GenerationContext) error {
	_, err := s.aggregator.Fold(ctx, fb, gc)
	if err != nil {
		s.log.Warn().Err(err).Uint("feedback_id", fb.ID).Msg("Learning update incomplete")
	}
	return err
}

// ProcessFeedback loads a persisted event and its artifact context and folds
// it. Events whose artifact has no generation settings are skipped.
func (s *Service) ProcessFeedback(ctx context.Context, feedbackID uint) error {
	fb, err := s.feedback.Get(ctx, feedbackID)
	if err != nil {
		return fmt.Errorf("load feedback %d: %w", feedbackID, err)
	}

	gc, err := s.contexts.GenerationContext(ctx, fb.ArtifactID)
	if errors.Is(err, ErrNotFound) {
		s.log.Info().Uint("feedback_id", fb.ID).Uint("artifact_id", fb.ArtifactID).Msg("Artifact missing, skipping learning update")
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve generation context: %w", err)
	}
	if gc == nil {
		s.log.Debug().Uint("feedback_id", fb.ID).Uint("artifact_id", fb.ArtifactID).Msg("Artifact has no generation settings, skipping learning update")
		return nil
	}
	return s.OnFeedbackRecorded(ctx, fb, *gc)
}

// forceBaseline reports whether an operator override is active. An
// unreadable override counts as active.
func (s *Service) forceBaseline(ctx context.Context) (bool, string) {
	if s.cfg.ForceBaseline {
		return true, "baseline forced by configuration"
	}
	if s.override == nil {
		return false, ""
	}
	on, err := s.override.ForceBaseline(ctx)
	if err != nil {
		s.log.Warn().Err(err).Msg("Failed to read learning override")
		return true, fmt.Sprintf("learning override unavailable: %v", err)
	}
	if on {
		return true, "baseline forced by operator"
	}
	return false, ""
}

// GetGenerationGuidance returns the modifiers and quality advice for one
// generation. It never fails: any read failure yields baseline guidance.
func (s *Service) GetGenerationGuidance(ctx context.Context, style, quality, basePrompt string) *Guidance {
	if forced, reason := s.forceBaseline(ctx); forced {
		return s.baselineGuidance(quality, reason)
	}

	verdict := s.governor.Evaluate(ctx)
	if verdict.Disabled {
		return s.baselineGuidance(quality, verdict.Reason)
	}

	mods, err := s.recommender.GetAdaptiveModifiers(ctx, style, quality, basePrompt)
	if err != nil {
		s.log.Warn().Err(err).Str("style", style).Msg("Adaptive modifiers unavailable")
		return s.baselineGuidance(quality, fmt.Sprintf("learning stats unavailable: %v", err))
	}
	rec := s.GetQualityRecommendation(ctx, style)

	metrics.GuidanceRequests.WithLabelValues("adaptive").Inc()
	return &Guidance{
		Modifiers:          mods,
		RecommendedQuality: rec.Quality,
		QualityReason:      rec.Reason,
	}
}

func (s *Service) baselineGuidance(quality, reason string) *Guidance {
	metrics.GuidanceRequests.WithLabelValues("baseline").Inc()
	if quality == "" {
		quality = DefaultQuality
	}
	return &Guidance{
		Modifiers:          GetSafeParameters(),
		RecommendedQuality: quality,
		QualityReason:      "adaptive learning bypassed",
		UsedBaseline:       true,
		BaselineReason:     reason,
	}
}

// GetQualityRecommendation degrades to the default tier when stats cannot be read.
func (s *Service) GetQualityRecommendation(ctx context.Context, style string) *QualityRecommendation {
	rec, err := s.recommender.GetQualityRecommendation(ctx, style)
	if err != nil {
		s.log.Warn().Err(err).Str("style", style).Msg("Quality recommendation unavailable")
		return &QualityRecommendation{
			Quality: DefaultQuality,
			Reason:  "Learning statistics unavailable",
		}
	}
	return rec
}

// GetFeedbackSummary returns every event for an artifact, newest first, with
// per-dimension averages.
func (s *Service) GetFeedbackSummary(ctx context.Context, artifactID uint) (*FeedbackSummary, error) {
	events, err := s.feedback.ListForArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	avg, err := s.feedback.AveragesForArtifact(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	return &FeedbackSummary{Events: events, Averages: *avg}, nil
}

// Status is the operator view of the learning subsystem.
type Status struct {
	Mode          string  `json:"mode"` // adaptive or baseline
	ForceBaseline bool    `json:"force_baseline"`
	Reason        string  `json:"reason,omitempty"`
	Safety        Verdict `json:"safety"`
}

func (s *Service) Status(ctx context.Context) *Status {
	st := &Status{Mode: "adaptive"}
	forced, reason := s.forceBaseline(ctx)
	st.ForceBaseline = forced
	st.Safety = s.governor.Evaluate(ctx)
	switch {
	case forced:
		st.Mode = "baseline"
		st.Reason = reason
	case st.Safety.Disabled:
		st.Mode = "baseline"
		st.Reason = st.Safety.Reason
	}
	return st
}

// ListStats returns every heuristic stat.
func (s *Service) ListStats(ctx context.Context) ([]models.LearningStat, error) {
	return s.stats.ListAll(ctx)
}
