package learning

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// StatsStore holds one LearningStat per (category, heuristic) key.
type StatsStore interface {
	// Get returns ErrNotFound (wrapped) when the key has never been observed.
	Get(ctx context.Context, category, heuristic string) (*models.LearningStat, error)
	// Upsert atomically creates or folds obs into the key's stat. Concurrent
	// calls for one key never lose an update. When obs carries a feedback id
	// already applied to the key, the stored stat is returned unchanged.
	Upsert(ctx context.Context, category, heuristic string, obs Observation) (*models.LearningStat, error)
	// QueryByStyle returns stats recorded for style plus stats with no style.
	QueryByStyle(ctx context.Context, style string) ([]models.LearningStat, error)
	ListAll(ctx context.Context) ([]models.LearningStat, error)
}

// GormStatsStore is the database-backed StatsStore. Upserts for one key are
// serialized in-process and, across processes, by a row lock plus the
// unique (category, heuristic) index.
type GormStatsStore struct {
	db    *gorm.DB
	rule  FoldRule
	locks *keyedMutex
	now   func() time.Time
}

func NewStatsStore(db *gorm.DB, rule FoldRule) *GormStatsStore {
	return &GormStatsStore{
		db:    db,
		rule:  rule,
		locks: newKeyedMutex(),
		now:   time.Now,
	}
}

func (s *GormStatsStore) Get(ctx context.Context, category, heuristic string) (*models.LearningStat, error) {
	var stat models.LearningStat
	err := s.db.WithContext(ctx).
		Where("category = ? AND heuristic = ?", category, heuristic).
		First(&stat).Error
	if err != nil {
		return nil, storeErr("get learning stat", err)
	}
	return &stat, nil
}

func (s *GormStatsStore) Upsert(ctx context.Context, category, heuristic string, obs Observation) (*models.LearningStat, error) {
	unlock := s.locks.Lock(statKey(category, heuristic))
	defer unlock()

	var out models.LearningStat
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := s.now()

		if obs.FeedbackID != 0 {
			mark := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.StatApplication{
				FeedbackID: obs.FeedbackID,
				Category:   category,
				Heuristic:  heuristic,
				CreatedAt:  now,
			})
			if mark.Error != nil {
				return mark.Error
			}
			if mark.RowsAffected == 0 {
				return tx.Where("category = ? AND heuristic = ?", category, heuristic).First(&out).Error
			}
		}

		var stat models.LearningStat
		res := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("category = ? AND heuristic = ?", category, heuristic).
			Limit(1).
			Find(&stat)
		if res.Error != nil {
			return res.Error
		}

		if res.RowsAffected == 0 {
			stat = s.rule.Init(category, heuristic, obs, now)
			ins := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&stat)
			if ins.Error != nil {
				return ins.Error
			}
			if ins.RowsAffected == 1 {
				out = stat
				return nil
			}
			// another process created the key first; fold into its row
			stat = models.LearningStat{}
			if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
				Where("category = ? AND heuristic = ?", category, heuristic).
				First(&stat).Error; err != nil {
				return err
			}
		}

		s.rule.Apply(&stat, obs, now)
		if err := tx.Save(&stat).Error; err != nil {
			return err
		}
		out = stat
		return nil
	})
	if err != nil {
		return nil, storeErr("upsert learning stat", err)
	}
	return &out, nil
}

func (s *GormStatsStore) QueryByStyle(ctx context.Context, style string) ([]models.LearningStat, error) {
	var stats []models.LearningStat
	err := s.db.WithContext(ctx).
		Where("style = ? OR style = '' OR style IS NULL", style).
		Order("category ASC, heuristic ASC").
		Find(&stats).Error
	if err != nil {
		return nil, storeErr("query learning stats", err)
	}
	return stats, nil
}

func (s *GormStatsStore) ListAll(ctx context.Context) ([]models.LearningStat, error) {
	var stats []models.LearningStat
	if err := s.db.WithContext(ctx).Order("category ASC, heuristic ASC").Find(&stats).Error; err != nil {
		return nil, storeErr("list learning stats", err)
	}
	return stats, nil
}
