package learning

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// Enhancement terms contributed by a category whose base_generation
// heuristic carries enough weight.
var (
	ObjectTerms      = []string{"detailed textures", "realistic proportions", "consistent form"}
	MovementTerms    = []string{"natural physics", "smooth motion", "realistic momentum"}
	EnvironmentTerms = []string{"contextually appropriate setting", "detailed background", "environmental coherence"}
	LightingTerms    = []string{"consistent lighting", "natural shadows", "proper illumination"}
	BaselineTerms    = []string{"high quality", "professional", "detailed"}
)

// Recommender reads heuristic stats and turns them into prompt modifiers and
// quality-tier advice.
type Recommender struct {
	stats                StatsStore
	threshold            float64
	confidenceSaturation int
	minQualitySamples    int
}

func NewRecommender(stats StatsStore, cfg config.LearningConfig) *Recommender {
	return &Recommender{
		stats:                stats,
		threshold:            cfg.WeightThreshold,
		confidenceSaturation: cfg.ConfidenceSaturation,
		minQualitySamples:    cfg.MinQualitySamples,
	}
}

// Weight scores a heuristic as effectiveness * confidence. Effectiveness is
// the mean rating on the 1-5 scale, confidence is total/saturation capped
// at 1.
func Weight(stat *models.LearningStat, saturation int) float64 {
	if stat.TotalCount <= 0 || saturation <= 0 {
		return 0
	}
	effectiveness := math.Min(float64(stat.AverageRating)/100, 5)
	confidence := math.Min(float64(stat.TotalCount)/float64(saturation), 1)
	return effectiveness * confidence
}

// GetAdaptiveModifiers selects enhancement and avoidance terms for a
// generation. Terms already present in basePrompt are not repeated.
func (r *Recommender) GetAdaptiveModifiers(ctx context.Context, style, quality, basePrompt string) (*Modifiers, error) {
	style = strings.ToLower(strings.TrimSpace(style))
	stats, err := r.stats.QueryByStyle(ctx, style)
	if err != nil {
		return nil, err
	}

	mods := newModifiers()
	prompt := strings.ToLower(basePrompt)
	for i := range stats {
		stat := &stats[i]
		if Weight(stat, r.confidenceSaturation) < r.threshold {
			continue
		}
		if stat.Heuristic == HeuristicBaseGeneration {
			switch stat.Category {
			case CategoryObject:
				mods.ObjectEnhancements = appendMissing(mods.ObjectEnhancements, ObjectTerms, prompt)
			case CategoryMovement:
				mods.MovementEnhancements = appendMissing(mods.MovementEnhancements, MovementTerms, prompt)
			case CategoryEnvironment:
				mods.EnvironmentEnhancements = appendMissing(mods.EnvironmentEnhancements, EnvironmentTerms, prompt)
			case CategoryLighting:
				mods.LightingEnhancements = appendMissing(mods.LightingEnhancements, LightingTerms, prompt)
			}
			continue
		}
		if issue, ok := AvoidedIssue(stat.Heuristic); ok {
			mods.AvoidanceTerms = appendMissing(mods.AvoidanceTerms, []string{issue}, "")
		}
	}
	sort.Strings(mods.AvoidanceTerms)
	return mods, nil
}

func appendMissing(dst, terms []string, prompt string) []string {
	for _, term := range terms {
		if prompt != "" && strings.Contains(prompt, term) {
			continue
		}
		dup := false
		for _, have := range dst {
			if have == term {
				dup = true
				break
			}
		}
		if !dup {
			dst = append(dst, term)
		}
	}
	return dst
}

type tierTally struct {
	quality string
	success int
	total   int
}

func (t tierTally) rate() float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.success) / float64(t.total)
}

// GetQualityRecommendation picks the quality tier with the best success rate
// for style among tiers with at least the minimum sample count. Ties go to
// the tier with more samples, then to the lexically first name.
func (r *Recommender) GetQualityRecommendation(ctx context.Context, style string) (*QualityRecommendation, error) {
	style = strings.ToLower(strings.TrimSpace(style))
	stats, err := r.stats.QueryByStyle(ctx, style)
	if err != nil {
		return nil, err
	}

	tallies := map[string]*tierTally{}
	for i := range stats {
		stat := &stats[i]
		if stat.Category != CategoryOverall || stat.Heuristic == HeuristicGenerationSuccess || stat.Style != style {
			continue
		}
		if !strings.HasPrefix(stat.Heuristic, tierPrefix) {
			continue
		}
		quality := stat.Context().Quality
		if quality == "" {
			quality = DefaultQuality
		}
		t, ok := tallies[quality]
		if !ok {
			t = &tierTally{quality: quality}
			tallies[quality] = t
		}
		t.success += stat.SuccessCount
		t.total += stat.TotalCount
	}

	if len(tallies) == 0 {
		return &QualityRecommendation{
			Quality: DefaultQuality,
			Reason:  "No previous feedback data available for this style",
		}, nil
	}

	var best *tierTally
	for _, t := range tallies {
		if t.total < r.minQualitySamples {
			continue
		}
		if best == nil || betterTier(t, best) {
			best = t
		}
	}
	if best == nil {
		return &QualityRecommendation{
			Quality: DefaultQuality,
			Reason:  "Insufficient data for quality recommendation",
		}, nil
	}

	rate := best.rate()
	return &QualityRecommendation{
		Quality:     best.quality,
		Reason:      fmt.Sprintf("Based on %d previous generations, %s quality achieved %d%% success rate for %s style", best.total, best.quality, int(math.Round(rate*100)), style),
		SampleSize:  best.total,
		SuccessRate: rate,
	}, nil
}

func betterTier(a, b *tierTally) bool {
	// cross-multiplied to compare rates exactly
	lhs := a.success * b.total
	rhs := b.success * a.total
	if lhs != rhs {
		return lhs > rhs
	}
	if a.total != b.total {
		return a.total > b.total
	}
	return a.quality < b.quality
}
