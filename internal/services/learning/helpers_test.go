package learning

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := models.Open(&config.DatabaseConfig{
		Driver: "sqlite",
		DSN:    filepath.Join(t.TempDir(), "learning.db"),
	}, gormlogger.Silent)
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

func intPtr(v int) *int { return &v }

func feedback(artifactID uint, overall int, issues models.SpecificIssues) *models.Feedback {
	return &models.Feedback{
		ArtifactID:     artifactID,
		OverallRating:  overall,
		SpecificIssues: datatypes.NewJSONType(issues),
	}
}

// fakeContexts resolves generation contexts from a fixed map.
type fakeContexts map[uint]*GenerationContext

func (f fakeContexts) GenerationContext(_ context.Context, artifactID uint) (*GenerationContext, error) {
	gc, ok := f[artifactID]
	if !ok {
		return nil, ErrNotFound
	}
	return gc, nil
}

type fakeOverride struct {
	on  bool
	err error
}

func (f fakeOverride) ForceBaseline(context.Context) (bool, error) { return f.on, f.err }

// recordingAuditor keeps every verdict it receives.
type recordingAuditor struct {
	mu       sync.Mutex
	verdicts []Verdict
}

func (r *recordingAuditor) RecordSafetyDecision(_ context.Context, v Verdict) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.verdicts = append(r.verdicts, v)
}

// staticFeedback serves RecentN from a fixed newest-first slice.
type staticFeedback struct {
	FeedbackStore
	events []models.Feedback
	err    error
}

func (s *staticFeedback) RecentN(_ context.Context, n int) ([]models.Feedback, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.events[:min(n, len(s.events))], nil
}

// failingStats fails every call.
type failingStats struct{}

func (failingStats) Get(context.Context, string, string) (*models.LearningStat, error) {
	return nil, &StoreError{Op: "get", Err: errUnavailable}
}

func (failingStats) Upsert(context.Context, string, string, Observation) (*models.LearningStat, error) {
	return nil, &StoreError{Op: "upsert", Err: errUnavailable}
}

func (failingStats) QueryByStyle(context.Context, string) ([]models.LearningStat, error) {
	return nil, &StoreError{Op: "query", Err: errUnavailable}
}

func (failingStats) ListAll(context.Context) ([]models.LearningStat, error) {
	return nil, &StoreError{Op: "list", Err: errUnavailable}
}

var errUnavailable = errors.New("connection refused")

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

// failOnceStats fails the first upsert of one key, then delegates.
type failOnceStats struct {
	StatsStore
	category, heuristic string

	mu     sync.Mutex
	failed bool
}

func (f *failOnceStats) Upsert(ctx context.Context, category, heuristic string, obs Observation) (*models.LearningStat, error) {
	f.mu.Lock()
	fail := !f.failed && category == f.category && heuristic == f.heuristic
	if fail {
		f.failed = true
	}
	f.mu.Unlock()
	if fail {
		return nil, &StoreError{Op: "upsert", Err: errUnavailable}
	}
	return f.StatsStore.Upsert(ctx, category, heuristic, obs)
}
