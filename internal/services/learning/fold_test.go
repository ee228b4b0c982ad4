package learning

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

func TestFoldAverage(t *testing.T) {
	tests := []struct {
		name   string
		avg    int
		count  int
		rating int
		want   int
	}{
		{"first rating", 0, 0, 5, 500},
		{"exact mean", 500, 1, 3, 400},
		{"rounds to nearest", 433, 3, 2, 375},
		{"half rounds up", 101, 1, 1, 101},
		{"two thirds", 500, 2, 4, 467},
		{"one third", 100, 2, 2, 133},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, foldAverage(tt.avg, tt.count, tt.rating))
		})
	}
}

func TestFoldRule_MeanIdentity(t *testing.T) {
	rule := NewFoldRule(config.DefaultLearningConfig())
	sequences := [][]int{
		{5, 4, 3},
		{1, 2, 3, 4, 5},
		{5, 1, 5, 1, 5, 1, 2},
		{3, 3, 3, 3, 3, 3, 3, 3, 3, 4},
		{2, 5, 4, 4, 1, 3, 5, 2, 2, 4, 5, 1},
	}
	for _, seq := range sequences {
		forward := foldAll(rule, seq)
		reversed := make([]int, len(seq))
		for i, r := range seq {
			reversed[len(seq)-1-i] = r
		}
		backward := foldAll(rule, reversed)

		sum := 0
		for _, r := range seq {
			sum += r
		}
		mean := float64(sum) / float64(len(seq))
		tolerance := 0.01 * float64(len(seq))

		assert.InDelta(t, mean, float64(forward.AverageRating)/100, tolerance, "forward %v", seq)
		assert.InDelta(t, mean, float64(backward.AverageRating)/100, tolerance, "reversed %v", seq)
		assert.Equal(t, len(seq), forward.TotalCount)
		assert.Equal(t, forward.SuccessCount, backward.SuccessCount)
	}
}

func foldAll(rule FoldRule, ratings []int) models.LearningStat {
	var stat models.LearningStat
	now := time.Now()
	for _, r := range ratings {
		rule.Apply(&stat, Observation{Rating: r, Context: GenerationContext{Style: "cinematic"}}, now)
	}
	return stat
}

func TestFoldRule_CountsStayMonotonic(t *testing.T) {
	rule := NewFoldRule(config.DefaultLearningConfig())
	var stat models.LearningStat
	ratings := []int{1, 4, 5, 2, 3, 4, 4, 5}
	for i, r := range ratings {
		rule.Apply(&stat, Observation{Rating: r}, time.Now())
		require.Equal(t, i+1, stat.TotalCount)
		require.GreaterOrEqual(t, stat.SuccessCount, 0)
		require.LessOrEqual(t, stat.SuccessCount, stat.TotalCount)
	}
	assert.Equal(t, 5, stat.SuccessCount)
}

func TestFoldRule_Init(t *testing.T) {
	rule := NewFoldRule(config.DefaultLearningConfig())
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	stat := rule.Init(CategoryMovement, HeuristicBaseGeneration, Observation{
		Rating:  5,
		Context: GenerationContext{Style: "Cinematic ", Quality: "high", Prompt: "a panda skateboarding"},
	}, now)

	assert.Equal(t, CategoryMovement, stat.Category)
	assert.Equal(t, HeuristicBaseGeneration, stat.Heuristic)
	assert.Equal(t, 1, stat.SuccessCount)
	assert.Equal(t, 1, stat.TotalCount)
	assert.Equal(t, 500, stat.AverageRating)
	assert.Equal(t, "cinematic", stat.Style)
	assert.Equal(t, now, stat.LastUpdated)

	sc := stat.Context()
	assert.Equal(t, "cinematic", sc.Style)
	assert.Equal(t, "high", sc.Quality)
	assert.Equal(t, []string{"a panda skateboarding"}, sc.CommonPrompts)
	assert.Equal(t, map[string]int{"cinematic": 5}, sc.EffectivenessTrends)
}

func TestFoldRule_ContextMerge(t *testing.T) {
	rule := FoldRule{SuccessRating: 4, RecentPrompts: 3, PromptSampleLength: 10}
	var stat models.LearningStat

	for i := 0; i < 5; i++ {
		rule.Apply(&stat, Observation{
			Rating:  i%5 + 1,
			Context: GenerationContext{Style: "anime", Quality: "standard", Prompt: fmt.Sprintf("prompt-%d-padding", i)},
		}, time.Now())
	}
	rule.Apply(&stat, Observation{
		Rating:  2,
		Context: GenerationContext{Style: "watercolor", Prompt: "ünïcödé prompt text"},
	}, time.Now())

	sc := stat.Context()
	assert.Equal(t, []string{"prompt-3-p", "prompt-4-p", "ünïcödé pr"}, sc.CommonPrompts)
	assert.Equal(t, map[string]int{"anime": 5, "watercolor": 2}, sc.EffectivenessTrends)
	assert.Equal(t, "watercolor", sc.Style)
	assert.Equal(t, "standard", sc.Quality, "missing quality keeps the previous one")
	assert.Equal(t, "watercolor", stat.Style)
}

func TestFoldRule_DoesNotMutatePreviousContext(t *testing.T) {
	rule := NewFoldRule(config.DefaultLearningConfig())
	stat := rule.Init(CategoryObject, HeuristicBaseGeneration, Observation{
		Rating:  4,
		Context: GenerationContext{Style: "anime", Prompt: "first"},
	}, time.Now())
	before := stat.Context()

	next := stat
	rule.Apply(&next, Observation{Rating: 1, Context: GenerationContext{Style: "anime", Prompt: "second"}}, time.Now())

	assert.Equal(t, []string{"first"}, before.CommonPrompts)
	assert.Equal(t, 4, before.EffectivenessTrends["anime"])
	assert.Equal(t, []string{"first", "second"}, next.Context().CommonPrompts)
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "", truncateRunes("", 5))
	assert.Equal(t, "abc", truncateRunes("abc", 5))
	assert.Equal(t, "ab", truncateRunes("abc", 2))
	assert.Equal(t, "日本", truncateRunes("日本語", 2))
	assert.Equal(t, strings.Repeat("x", 50), truncateRunes(strings.Repeat("x", 80), 50))
}
