package learning

import (
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// FoldRule folds one observation into a heuristic stat.
type FoldRule struct {
	SuccessRating      int
	RecentPrompts      int
	PromptSampleLength int
}

// NewFoldRule builds the fold rule from learning config.
func NewFoldRule(cfg config.LearningConfig) FoldRule {
	return FoldRule{
		SuccessRating:      cfg.SuccessRating,
		RecentPrompts:      cfg.RecentPrompts,
		PromptSampleLength: cfg.PromptSampleLength,
	}
}

// Init creates the stat for a key seen for the first time.
func (r FoldRule) Init(category, heuristic string, obs Observation, now time.Time) models.LearningStat {
	stat := models.LearningStat{
		Category:  category,
		Heuristic: heuristic,
	}
	r.Apply(&stat, obs, now)
	return stat
}

// Apply folds obs into stat in place. Shared slices and maps in the previous
// context are never mutated.
func (r FoldRule) Apply(stat *models.LearningStat, obs Observation, now time.Time) {
	if obs.Rating >= r.SuccessRating {
		stat.SuccessCount++
	}
	prevTotal := stat.TotalCount
	stat.TotalCount++
	stat.AverageRating = foldAverage(stat.AverageRating, prevTotal, obs.Rating)

	next := r.mergeContext(stat.Context(), obs.Context.normalized(), obs.Rating)
	stat.ContextMetadata = datatypes.NewJSONType(next)
	stat.Style = next.Style
	stat.LastUpdated = now
}

// foldAverage returns round((avg*count + rating*100) / (count+1)) with
// halves rounded up, in integer arithmetic.
func foldAverage(avg, count, rating int) int {
	num := int64(avg)*int64(count) + int64(rating)*100
	den := int64(count) + 1
	return int((2*num + den) / (2 * den))
}

func (r FoldRule) mergeContext(prev models.StatContext, gc GenerationContext, rating int) models.StatContext {
	next := models.StatContext{
		Style:   prev.Style,
		Quality: prev.Quality,
	}
	if gc.Style != "" {
		next.Style = gc.Style
	}
	if gc.Quality != "" {
		next.Quality = gc.Quality
	}

	next.EffectivenessTrends = make(map[string]int, len(prev.EffectivenessTrends)+1)
	for style, latest := range prev.EffectivenessTrends {
		next.EffectivenessTrends[style] = latest
	}
	if gc.Style != "" {
		next.EffectivenessTrends[gc.Style] = rating
	}

	prompts := make([]string, 0, len(prev.CommonPrompts)+1)
	prompts = append(prompts, prev.CommonPrompts...)
	if sample := truncateRunes(gc.Prompt, r.PromptSampleLength); sample != "" {
		prompts = append(prompts, sample)
	}
	if r.RecentPrompts > 0 && len(prompts) > r.RecentPrompts {
		prompts = prompts[len(prompts)-r.RecentPrompts:]
	}
	next.CommonPrompts = prompts
	return next
}

func truncateRunes(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
