package learning

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"gorm.io/datatypes"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// MemoryStatsStore is an in-process StatsStore, used for replays and tests.
type MemoryStatsStore struct {
	rule  FoldRule
	locks *keyedMutex
	now   func() time.Time

	mu      sync.RWMutex
	nextID  uint
	stats   map[string]*models.LearningStat
	applied map[string]struct{}
}

func NewMemoryStatsStore(rule FoldRule) *MemoryStatsStore {
	return &MemoryStatsStore{
		rule:    rule,
		locks:   newKeyedMutex(),
		now:     time.Now,
		stats:   make(map[string]*models.LearningStat),
		applied: make(map[string]struct{}),
	}
}

func (m *MemoryStatsStore) Get(_ context.Context, category, heuristic string) (*models.LearningStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	stat, ok := m.stats[statKey(category, heuristic)]
	if !ok {
		return nil, fmt.Errorf("get learning stat %s/%s: %w", category, heuristic, ErrNotFound)
	}
	return cloneStat(stat), nil
}

func (m *MemoryStatsStore) Upsert(ctx context.Context, category, heuristic string, obs Observation) (*models.LearningStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, &StoreError{Op: "upsert learning stat", Err: err}
	}
	key := statKey(category, heuristic)
	unlock := m.locks.Lock(key)
	defer unlock()

	mark := fmt.Sprintf("%d|%s", obs.FeedbackID, key)
	m.mu.RLock()
	existing, ok := m.stats[key]
	_, seen := m.applied[mark]
	m.mu.RUnlock()
	if obs.FeedbackID != 0 && seen {
		return cloneStat(existing), nil
	}

	now := m.now()
	var next models.LearningStat
	if ok {
		next = *cloneStat(existing)
		m.rule.Apply(&next, obs, now)
	} else {
		next = m.rule.Init(category, heuristic, obs, now)
		next.CreatedAt = now
	}

	m.mu.Lock()
	if next.ID == 0 {
		m.nextID++
		next.ID = m.nextID
	}
	m.stats[key] = &next
	if obs.FeedbackID != 0 {
		m.applied[mark] = struct{}{}
	}
	m.mu.Unlock()
	return cloneStat(&next), nil
}

func (m *MemoryStatsStore) QueryByStyle(_ context.Context, style string) ([]models.LearningStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LearningStat, 0)
	for _, stat := range m.stats {
		if stat.Style == style || stat.Style == "" {
			out = append(out, *cloneStat(stat))
		}
	}
	sortStats(out)
	return out, nil
}

func (m *MemoryStatsStore) ListAll(_ context.Context) ([]models.LearningStat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.LearningStat, 0, len(m.stats))
	for _, stat := range m.stats {
		out = append(out, *cloneStat(stat))
	}
	sortStats(out)
	return out, nil
}

func sortStats(stats []models.LearningStat) {
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Category != stats[j].Category {
			return stats[i].Category < stats[j].Category
		}
		return stats[i].Heuristic < stats[j].Heuristic
	})
}

func cloneStat(stat *models.LearningStat) *models.LearningStat {
	c := *stat
	sc := stat.Context()
	sc.CommonPrompts = append([]string(nil), sc.CommonPrompts...)
	if sc.EffectivenessTrends != nil {
		trends := make(map[string]int, len(sc.EffectivenessTrends))
		for k, v := range sc.EffectivenessTrends {
			trends[k] = v
		}
		sc.EffectivenessTrends = trends
	}
	c.ContextMetadata = datatypes.NewJSONType(sc)
	return &c
}
