package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

const driftCheckTimeout = 30 * time.Minute

// DriftCheckService replays the feedback log and reports heuristic stats that
// disagree with it. It never repairs rows.
type DriftCheckService struct {
	db        *gorm.DB
	cfg       config.LearningConfig
	contexts  learning.ContextResolver
	feedback  learning.FeedbackStore
	stats     learning.StatsStore
	events    *EventHub
	tolerance int
}

func NewDriftCheckService(db *gorm.DB, cfg config.LearningConfig, contexts learning.ContextResolver) *DriftCheckService {
	return &DriftCheckService{
		db:        db,
		cfg:       cfg,
		contexts:  contexts,
		feedback:  learning.NewFeedbackStore(db),
		stats:     learning.NewStatsStore(db, learning.NewFoldRule(cfg)),
		tolerance: cfg.DriftTolerance,
	}
}

// SetEventHub publishes drift reports to hub.
func (s *DriftCheckService) SetEventHub(hub *EventHub) {
	s.events = hub
}

// DriftReport is the result of one drift check.
type DriftReport struct {
	Replayed int                  `json:"replayed"`
	Skipped  int                  `json:"skipped"`
	Rows     int                  `json:"rows"`
	Drift    []learning.StatDrift `json:"drift"`
}

// Check runs one replay. Drifted rows are recorded as a warning in the system log.
func (s *DriftCheckService) Check(ctx context.Context) (*DriftReport, error) {
	res, err := learning.Replay(ctx, s.feedback, s.contexts, s.cfg)
	if err != nil {
		return nil, err
	}
	stored, err := s.stats.ListAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &DriftReport{
		Replayed: res.Replayed,
		Skipped:  res.Skipped,
		Rows:     len(stored),
		Drift:    learning.CompareStats(stored, res.Stats, s.tolerance),
	}
	if report.Drift == nil {
		report.Drift = []learning.StatDrift{}
	}

	if len(report.Drift) > 0 {
		msg := fmt.Sprintf("%d of %d learning stats drifted from the feedback log", len(report.Drift), report.Rows)
		logger.Warnf("[DriftCheck] %s", msg)
		s.events.Publish(LearningEvent{Type: EventStatsDrift, Reason: msg, RequestID: RequestIDFrom(ctx)})
		if err := createLog(s.db.WithContext(ctx), "warning", models.LogModuleLearning, "stats_drift", msg, nil, RequestIDFrom(ctx), report.Drift); err != nil {
			logger.Warn().Err(err).Msg("[DriftCheck] Failed to record drift")
		}
	} else {
		logger.Infof("[DriftCheck] %d stats consistent with %d replayed events", report.Rows, report.Replayed)
	}
	return report, nil
}

func (s *DriftCheckService) run() {
	ctx, cancel := context.WithTimeout(context.Background(), driftCheckTimeout)
	defer cancel()
	if _, err := s.Check(ctx); err != nil {
		logger.Errorf("[DriftCheck] Check failed: %v", err)
	}
}

// StartDriftCheckScheduler runs Check on the configured schedule. It returns
// nil when the schedule is empty.
func StartDriftCheckScheduler(s *DriftCheckService, schedule string) *cron.Cron {
	if schedule == "" {
		logger.Infof("[DriftCheck] Scheduler disabled")
		return nil
	}

	scheduler := cron.New()
	job := func() { runExclusive(s.db, "drift_check", driftCheckTimeout, s.run) }
	if _, err := scheduler.AddFunc(schedule, job); err != nil {
		logger.Errorf("[DriftCheck] Invalid schedule %q: %v", schedule, err)
		return nil
	}
	scheduler.Start()
	logger.Infof("[DriftCheck] Scheduler started, schedule: %s", schedule)
	return scheduler
}
