package learning

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// StatUpdate names one heuristic key touched by a fold.
type StatUpdate struct {
	Category  string
	Heuristic string
	Rating    int
}

// Aggregator turns a feedback event into heuristic stat updates.
type Aggregator struct {
	stats        StatsStore
	issuePenalty int
	log          zerolog.Logger
}

func NewAggregator(stats StatsStore, cfg config.LearningConfig) *Aggregator {
	return &Aggregator{
		stats:        stats,
		issuePenalty: cfg.IssuePenaltyRating,
		log:          logger.Component("aggregator"),
	}
}

// Plan lists the updates an event produces, in application order:
// per rated category the base_generation row then one avoid_<issue> row per
// flagged issue; then the global overall row and, when the context carries a
// style and quality, the tier-scoped overall row.
func (a *Aggregator) Plan(fb *models.Feedback, gc GenerationContext) []StatUpdate {
	gc = gc.normalized()
	issues := fb.Issues()

	var plan []StatUpdate
	for _, rc := range ratedCategories {
		rating := rc.rating(fb)
		if rating == nil {
			continue
		}
		plan = append(plan, StatUpdate{Category: rc.category, Heuristic: HeuristicBaseGeneration, Rating: *rating})
		for _, issue := range rc.issues {
			if issues.Has(issue) {
				plan = append(plan, StatUpdate{Category: rc.category, Heuristic: AvoidHeuristic(issue), Rating: a.issuePenalty})
			}
		}
	}

	plan = append(plan, StatUpdate{Category: CategoryOverall, Heuristic: HeuristicGenerationSuccess, Rating: fb.OverallRating})
	if gc.Style != "" && gc.Quality != "" {
		plan = append(plan, StatUpdate{Category: CategoryOverall, Heuristic: TierHeuristic(gc.Style, gc.Quality), Rating: fb.OverallRating})
	}
	return plan
}

// Fold applies every planned update. Updates are independent: a failed
// upsert is logged and the remaining ones still run. The joined error of all
// failures is returned. Folding the same event again only applies the keys
// that failed before.
func (a *Aggregator) Fold(ctx context.Context, fb *models.Feedback, gc GenerationContext) ([]models.LearningStat, error) {
	plan := a.Plan(fb, gc)
	updated := make([]models.LearningStat, 0, len(plan))

	var errs []error
	for _, u := range plan {
		stat, err := a.stats.Upsert(ctx, u.Category, u.Heuristic, Observation{FeedbackID: fb.ID, Rating: u.Rating, Context: gc})
		if err != nil {
			metrics.StatUpdates.WithLabelValues(u.Category, "error").Inc()
			a.log.Warn().Err(err).
				Uint("feedback_id", fb.ID).
				Str("category", u.Category).
				Str("heuristic", u.Heuristic).
				Msg("Failed to update learning stat")
			errs = append(errs, err)
			continue
		}
		metrics.StatUpdates.WithLabelValues(u.Category, "ok").Inc()
		updated = append(updated, *stat)
	}

	a.log.Debug().
		Uint("feedback_id", fb.ID).
		Int("updated", len(updated)).
		Int("failed", len(errs)).
		Msg("Feedback folded into learning stats")
	return updated, errors.Join(errs...)
}
