package learning

import (
	"context"
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/rs/zerolog"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/metrics"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// Verdict is one safety evaluation over the recent feedback window.
type Verdict struct {
	Disabled      bool    `json:"disabled"`
	Reason        string  `json:"reason"`
	WindowSize    int     `json:"window_size"`
	MeanRating    float64 `json:"mean_rating"`
	CriticalRatio float64 `json:"critical_ratio"`
}

// Auditor receives every safety verdict.
type Auditor interface {
	RecordSafetyDecision(ctx context.Context, v Verdict)
}

// SafetyGovernor decides whether adaptive learning must be bypassed because
// recent feedback shows the system degrading. It keeps no state between
// calls.
type SafetyGovernor struct {
	feedback      FeedbackStore
	window        int
	minEvents     int
	minAvgRating  float64
	criticalRatio float64
	hysteresis    bool
	auditor       Auditor
	log           zerolog.Logger
}

func NewSafetyGovernor(feedback FeedbackStore, cfg config.LearningConfig, auditor Auditor) *SafetyGovernor {
	return &SafetyGovernor{
		feedback:      feedback,
		window:        cfg.SafetyWindow,
		minEvents:     cfg.SafetyMinEvents,
		minAvgRating:  cfg.SafetyMinAvgRating,
		criticalRatio: cfg.SafetyCriticalRatio,
		hysteresis:    cfg.SafetyHysteresis,
		auditor:       auditor,
		log:           logger.Component("safety"),
	}
}

// isCritical reports whether fb flags an issue that makes an artifact unusable.
func isCritical(fb *models.Feedback) bool {
	issues := fb.Issues()
	return issues.Morphing || issues.ObjectDistortion || issues.TemporalInconsistency
}

// Evaluate inspects the most recent feedback window. With hysteresis enabled
// the window ending one event earlier must also qualify before learning is
// disabled. A failing feedback read disables learning.
func (g *SafetyGovernor) Evaluate(ctx context.Context) Verdict {
	fetch := g.window
	if g.hysteresis {
		fetch++
	}

	var v Verdict
	events, err := g.feedback.RecentN(ctx, fetch)
	if err != nil {
		v = Verdict{Disabled: true, Reason: fmt.Sprintf("feedback history unavailable: %v", err)}
	} else {
		v = g.assess(events[:min(g.window, len(events))])
		if v.Disabled && g.hysteresis {
			prev := events[min(1, len(events)):min(g.window+1, len(events))]
			if pv := g.assess(prev); !pv.Disabled {
				v.Disabled = false
				v.Reason = "awaiting confirmation: " + v.Reason
			}
		}
	}

	metrics.LearningDisabled.Set(metrics.BoolGauge(v.Disabled))
	g.log.Debug().
		Bool("disabled", v.Disabled).
		Int("window", v.WindowSize).
		Float64("mean_rating", v.MeanRating).
		Float64("critical_ratio", v.CriticalRatio).
		Msg(v.Reason)
	if g.auditor != nil {
		g.auditor.RecordSafetyDecision(ctx, v)
	}
	return v
}

// ShouldDisableLearning is Evaluate reduced to its decision.
func (g *SafetyGovernor) ShouldDisableLearning(ctx context.Context) bool {
	return g.Evaluate(ctx).Disabled
}

func (g *SafetyGovernor) assess(events []models.Feedback) Verdict {
	v := Verdict{WindowSize: len(events)}
	if len(events) < g.minEvents {
		v.Reason = fmt.Sprintf("insufficient recent feedback (%d of %d events)", len(events), g.minEvents)
		return v
	}

	ratings := make(stats.Float64Data, 0, len(events))
	critical := 0
	for i := range events {
		ratings = append(ratings, float64(events[i].OverallRating))
		if isCritical(&events[i]) {
			critical++
		}
	}
	mean, err := ratings.Mean()
	if err != nil {
		v.Disabled = true
		v.Reason = fmt.Sprintf("cannot compute mean rating: %v", err)
		return v
	}
	v.MeanRating = mean
	v.CriticalRatio = float64(critical) / float64(len(events))

	switch {
	case v.MeanRating < g.minAvgRating:
		v.Disabled = true
		v.Reason = fmt.Sprintf("mean rating %.2f below %.2f over last %d events", v.MeanRating, g.minAvgRating, len(events))
	case v.CriticalRatio > g.criticalRatio:
		v.Disabled = true
		v.Reason = fmt.Sprintf("critical issue ratio %.2f above %.2f over last %d events", v.CriticalRatio, g.criticalRatio, len(events))
	default:
		v.Reason = fmt.Sprintf("recent feedback healthy (mean %.2f, critical ratio %.2f)", v.MeanRating, v.CriticalRatio)
	}
	return v
}

// GetSafeParameters returns the fixed baseline modifiers used whenever
// adaptive learning is bypassed.
func GetSafeParameters() *Modifiers {
	mods := newModifiers()
	mods.PromptEnhancements = append(mods.PromptEnhancements, BaselineTerms...)
	return mods
}
