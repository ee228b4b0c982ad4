package learning

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
)

func statsStores(t *testing.T) map[string]StatsStore {
	rule := NewFoldRule(config.DefaultLearningConfig())
	now := time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC)

	gormStore := NewStatsStore(newTestDB(t), rule)
	gormStore.now = fixedClock(now)
	memStore := NewMemoryStatsStore(rule)
	memStore.now = fixedClock(now)

	return map[string]StatsStore{"gorm": gormStore, "memory": memStore}
}

func TestStatsStore_GetMissing(t *testing.T) {
	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Get(context.Background(), CategoryObject, HeuristicBaseGeneration)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.False(t, IsStoreUnavailable(err))
		})
	}
}

func TestStatsStore_UpsertCreatesThenFolds(t *testing.T) {
	ctx := context.Background()
	gc := GenerationContext{Style: "cinematic", Quality: "high", Prompt: "a fox jumping"}

	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			first, err := store.Upsert(ctx, CategoryMovement, HeuristicBaseGeneration, Observation{Rating: 5, Context: gc})
			require.NoError(t, err)
			assert.NotZero(t, first.ID)
			assert.Equal(t, 1, first.TotalCount)
			assert.Equal(t, 1, first.SuccessCount)
			assert.Equal(t, 500, first.AverageRating)

			second, err := store.Upsert(ctx, CategoryMovement, HeuristicBaseGeneration, Observation{Rating: 2, Context: gc})
			require.NoError(t, err)
			assert.Equal(t, first.ID, second.ID)
			assert.Equal(t, 2, second.TotalCount)
			assert.Equal(t, 1, second.SuccessCount)
			assert.Equal(t, 350, second.AverageRating)

			got, err := store.Get(ctx, CategoryMovement, HeuristicBaseGeneration)
			require.NoError(t, err)
			assert.Equal(t, 2, got.TotalCount)
			assert.Equal(t, "cinematic", got.Style)
			assert.Equal(t, []string{"a fox jumping", "a fox jumping"}, got.Context().CommonPrompts)
			assert.Equal(t, 2, got.Context().EffectivenessTrends["cinematic"])
		})
	}
}

func TestStatsStore_UpsertIsIdempotentPerFeedback(t *testing.T) {
	ctx := context.Background()

	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			for i := 0; i < 3; i++ {
				stat, err := store.Upsert(ctx, CategoryObject, HeuristicBaseGeneration, Observation{FeedbackID: 7, Rating: 5})
				require.NoError(t, err)
				assert.Equal(t, 1, stat.TotalCount)
				assert.Equal(t, 500, stat.AverageRating)
			}

			other, err := store.Upsert(ctx, CategoryObject, HeuristicBaseGeneration, Observation{FeedbackID: 8, Rating: 3})
			require.NoError(t, err)
			assert.Equal(t, 2, other.TotalCount)

			// the same event still folds into a different key
			lighting, err := store.Upsert(ctx, CategoryLighting, HeuristicBaseGeneration, Observation{FeedbackID: 7, Rating: 5})
			require.NoError(t, err)
			assert.Equal(t, 1, lighting.TotalCount)

			// untracked observations always fold
			for i := 0; i < 2; i++ {
				_, err := store.Upsert(ctx, CategoryMovement, HeuristicBaseGeneration, Observation{Rating: 4})
				require.NoError(t, err)
			}
			movement, err := store.Get(ctx, CategoryMovement, HeuristicBaseGeneration)
			require.NoError(t, err)
			assert.Equal(t, 2, movement.TotalCount)
		})
	}
}

func TestStatsStore_ConcurrentUpsertsSameKey(t *testing.T) {
	const workers = 24
	ctx := context.Background()

	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errs := make(chan error, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					rating := 5
					if i%2 == 1 {
						rating = 1
					}
					_, err := store.Upsert(ctx, CategoryOverall, HeuristicGenerationSuccess, Observation{
						Rating:  rating,
						Context: GenerationContext{Style: "anime", Quality: "standard"},
					})
					errs <- err
				}(i)
			}
			wg.Wait()
			close(errs)
			for err := range errs {
				require.NoError(t, err)
			}

			got, err := store.Get(ctx, CategoryOverall, HeuristicGenerationSuccess)
			require.NoError(t, err)
			assert.Equal(t, workers, got.TotalCount)
			assert.Equal(t, workers/2, got.SuccessCount)
			assert.InDelta(t, 300, got.AverageRating, float64(workers))
		})
	}
}

func TestStatsStore_DisjointKeysInParallel(t *testing.T) {
	ctx := context.Background()
	keys := []string{CategoryObject, CategoryMovement, CategoryEnvironment, CategoryLighting}

	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			for _, category := range keys {
				for i := 0; i < 5; i++ {
					wg.Add(1)
					go func(category string) {
						defer wg.Done()
						_, err := store.Upsert(ctx, category, HeuristicBaseGeneration, Observation{Rating: 4})
						assert.NoError(t, err)
					}(category)
				}
			}
			wg.Wait()

			all, err := store.ListAll(ctx)
			require.NoError(t, err)
			require.Len(t, all, len(keys))
			for _, stat := range all {
				assert.Equal(t, 5, stat.TotalCount, stat.Category)
				assert.Equal(t, 400, stat.AverageRating, stat.Category)
			}
		})
	}
}

func TestStatsStore_QueryByStyle(t *testing.T) {
	ctx := context.Background()

	for name, store := range statsStores(t) {
		t.Run(name, func(t *testing.T) {
			seed := []struct {
				category, heuristic, style string
			}{
				{CategoryObject, HeuristicBaseGeneration, "anime"},
				{CategoryMovement, HeuristicBaseGeneration, "cinematic"},
				{CategoryLighting, HeuristicBaseGeneration, ""},
				{CategoryOverall, TierHeuristic("anime", "high"), "anime"},
			}
			for _, s := range seed {
				_, err := store.Upsert(ctx, s.category, s.heuristic, Observation{Rating: 4, Context: GenerationContext{Style: s.style}})
				require.NoError(t, err)
			}

			rows, err := store.QueryByStyle(ctx, "anime")
			require.NoError(t, err)

			var got []string
			for _, r := range rows {
				got = append(got, r.Category+"/"+r.Heuristic)
			}
			assert.Equal(t, []string{
				"lighting/base_generation",
				"object/base_generation",
				"overall/generation_success/anime/high",
			}, got)
		})
	}
}

func TestMemoryStatsStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStatsStore(NewFoldRule(config.DefaultLearningConfig()))

	stat, err := store.Upsert(ctx, CategoryObject, HeuristicBaseGeneration, Observation{Rating: 3, Context: GenerationContext{Style: "anime", Prompt: "cat"}})
	require.NoError(t, err)
	stat.TotalCount = 99
	stat.Context().EffectivenessTrends["anime"] = 1

	got, err := store.Get(ctx, CategoryObject, HeuristicBaseGeneration)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TotalCount)
	assert.Equal(t, 3, got.Context().EffectivenessTrends["anime"])
}

func TestMemoryStatsStore_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	store := NewMemoryStatsStore(NewFoldRule(config.DefaultLearningConfig()))

	_, err := store.Upsert(ctx, CategoryObject, HeuristicBaseGeneration, Observation{Rating: 3})
	require.Error(t, err)
	assert.True(t, IsStoreUnavailable(err))
}

func TestKeyedMutex_ReleasesEntries(t *testing.T) {
	km := newKeyedMutex()
	unlockA := km.Lock("a")
	unlockB := km.Lock("b")
	assert.Len(t, km.locks, 2)

	done := make(chan struct{})
	go func() {
		unlock := km.Lock("a")
		unlock()
		close(done)
	}()

	unlockA()
	<-done
	unlockB()
	assert.Empty(t, km.locks)
}
