package services

import (
	"context"
	"os"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

var schedulerInstanceID = newInstanceID()

func newInstanceID() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "unknown"
	}
	return host + "-" + uuid.NewString()[:8]
}

// TryAcquireSchedulerLock claims the (name, key) run for ttl. It returns false
// when another instance already holds it. Expired locks of the same name are
// removed first.
func TryAcquireSchedulerLock(ctx context.Context, db *gorm.DB, name, key string, ttl time.Duration) (bool, error) {
	now := time.Now()
	if err := db.WithContext(ctx).
		Where("lock_name = ? AND expires_at < ?", name, now).
		Delete(&models.SchedulerLock{}).Error; err != nil {
		return false, err
	}

	res := db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&models.SchedulerLock{
		LockName:  name,
		LockKey:   key,
		LockedBy:  schedulerInstanceID,
		LockedAt:  now,
		ExpiresAt: now.Add(ttl),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// runExclusive runs fn only if this instance wins the lock for the current
// minute. A lock error skips the run.
func runExclusive(db *gorm.DB, name string, ttl time.Duration, fn func()) {
	key := time.Now().UTC().Truncate(time.Minute).Format(time.RFC3339)
	ok, err := TryAcquireSchedulerLock(context.Background(), db, name, key, ttl)
	if err != nil {
		logger.Warn().Err(err).Str("lock", name).Msg("[Scheduler] Failed to acquire lock, skipping run")
		return
	}
	if !ok {
		logger.Info().Str("lock", name).Str("key", key).Msg("[Scheduler] Run claimed by another instance")
		return
	}
	fn()
}
