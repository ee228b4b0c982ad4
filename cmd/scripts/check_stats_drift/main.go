// Command check_stats_drift rebuilds the learning stats from the raw feedback
// log and reports rows whose stored counters disagree. It never writes.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	gormlogger "gorm.io/gorm/logger"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/config"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "path to config.yaml")
	tolerance := flag.Int("tolerance", 1, "allowed difference in average_rating (x100) before a row is reported")
	timeout := flag.Duration("timeout", 10*time.Minute, "overall time limit")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}
	logger.Init(cfg.Log.Level)

	db, err := models.Open(&cfg.Database, gormlogger.Error)
	if err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	feedback := learning.NewFeedbackStore(db)
	stats := learning.NewStatsStore(db, learning.NewFoldRule(cfg.Learning))

	res, err := learning.Replay(ctx, feedback, services.NewArtifactService(db), cfg.Learning)
	if err != nil {
		logger.Fatalf("Replay failed: %v", err)
	}
	stored, err := stats.ListAll(ctx)
	if err != nil {
		logger.Fatalf("Failed to load stored stats: %v", err)
	}

	fmt.Printf("Replayed %d feedback events (%d skipped without generation settings)\n", res.Replayed, res.Skipped)
	fmt.Printf("Stored rows: %d, replayed rows: %d\n\n", len(stored), len(res.Stats))

	drift := learning.CompareStats(stored, res.Stats, *tolerance)
	if len(drift) == 0 {
		fmt.Println("No drift detected.")
		return
	}

	fmt.Printf("%-12s %-50s %-20s %-20s\n", "Category", "Heuristic", "Stored s/t/avg", "Replayed s/t/avg")
	fmt.Println("------------------------------------------------------------------------------------------------------")
	for _, d := range drift {
		fmt.Printf("%-12s %-50s %-20s %-20s\n", d.Category, d.Heuristic, counters(d.Stored), counters(d.Replayed))
	}
	fmt.Printf("\n%d rows drifted.\n", len(drift))
	os.Exit(1)
}

func counters(s *models.LearningStat) string {
	if s == nil {
		return "-"
	}
	return fmt.Sprintf("%d/%d/%d", s.SuccessCount, s.TotalCount, s.AverageRating)
}
