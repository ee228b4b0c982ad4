package learning

import (
	"context"
	"errors"
	"sort"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// ReplayResult is the stat set rebuilt from the raw feedback log.
type ReplayResult struct {
	Stats    []models.LearningStat
	Replayed int
	Skipped  int // events whose artifact is gone or carries no settings
}

// Replay folds every persisted feedback event, oldest first, into a fresh
// in-memory stats store.
func Replay(ctx context.Context, feedback FeedbackStore, contexts ContextResolver, cfg config.LearningConfig) (*ReplayResult, error) {
	store := NewMemoryStatsStore(NewFoldRule(cfg))
	agg := NewAggregator(store, cfg)
	res := &ReplayResult{}

	err := feedback.ForEach(ctx, 500, func(fb *models.Feedback) error {
		gc, err := contexts.GenerationContext(ctx, fb.ArtifactID)
		if errors.Is(err, ErrNotFound) || (err == nil && gc == nil) {
			res.Skipped++
			return nil
		}
		if err != nil {
			return err
		}
		if _, err := agg.Fold(ctx, fb, *gc); err != nil {
			return err
		}
		res.Replayed++
		return nil
	})
	if err != nil {
		return nil, err
	}

	res.Stats, err = store.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// StatDrift is one heuristic whose stored counters disagree with a replay.
// Stored or Replayed is nil when the row exists on one side only.
type StatDrift struct {
	Category  string               `json:"category"`
	Heuristic string               `json:"heuristic"`
	Stored    *models.LearningStat `json:"stored"`
	Replayed  *models.LearningStat `json:"replayed"`
}

// CompareStats reports rows whose counts differ, or whose average rating
// (scaled by 100) differs by more than avgTolerance. Fold order affects
// rounding of the running average, so a small tolerance is expected when
// events were processed out of order.
func CompareStats(stored, replayed []models.LearningStat, avgTolerance int) []StatDrift {
	index := make(map[string]*models.LearningStat, len(replayed))
	for i := range replayed {
		index[statKey(replayed[i].Category, replayed[i].Heuristic)] = &replayed[i]
	}

	var drift []StatDrift
	for i := range stored {
		s := &stored[i]
		key := statKey(s.Category, s.Heuristic)
		r, ok := index[key]
		delete(index, key)
		if ok && s.TotalCount == r.TotalCount && s.SuccessCount == r.SuccessCount && absInt(s.AverageRating-r.AverageRating) <= avgTolerance {
			continue
		}
		d := StatDrift{Category: s.Category, Heuristic: s.Heuristic, Stored: s}
		if ok {
			d.Replayed = r
		}
		drift = append(drift, d)
	}
	for _, r := range index {
		drift = append(drift, StatDrift{Category: r.Category, Heuristic: r.Heuristic, Replayed: r})
	}

	sort.Slice(drift, func(i, j int) bool {
		if drift[i].Category != drift[j].Category {
			return drift[i].Category < drift[j].Category
		}
		return drift[i].Heuristic < drift[j].Heuristic
	})
	return drift
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
