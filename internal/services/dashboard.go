package services

import (
	"context"
	"time"

	"github.com/montanaflynn/stats"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// DashboardService summarizes rater feedback over a date range.
type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type DashboardStatsRequest struct {
	StartDate string `form:"start_date"`
	EndDate   string `form:"end_date"`
	WordLimit int    `form:"word_limit"`
}

type DashboardStats struct {
	FeedbackEvents int64   `json:"feedback_events"`
	RatedArtifacts int64   `json:"rated_artifacts"`
	Raters         int64   `json:"raters"`
	AverageRating  float64 `json:"average_rating"`
	MedianRating   float64 `json:"median_rating"`
}

type WordStats struct {
	Word          string  `json:"word"`
	FeedbackCount int64   `json:"feedback_count"`
	AvgRating     float64 `json:"avg_rating"`
}

type IssueStats struct {
	Issue string `json:"issue"`
	Count int    `json:"count"`
}

type DashboardResponse struct {
	Stats     DashboardStats `json:"stats"`
	WordStats []WordStats    `json:"word_stats"`
	Issues    []IssueStats   `json:"issues"`
}

func (s *DashboardService) dateRange(req *DashboardStatsRequest) (time.Time, time.Time) {
	var startDate, endDate time.Time
	var err error

	if req.StartDate != "" {
		startDate, err = time.Parse("2006-01-02", req.StartDate)
		if err != nil {
			startDate = time.Now().AddDate(0, 0, -7)
		}
	} else {
		startDate = time.Now().AddDate(0, 0, -7)
	}

	if req.EndDate != "" {
		endDate, err = time.Parse("2006-01-02", req.EndDate)
		if err != nil {
			endDate = time.Now()
		}
		endDate = endDate.Add(24*time.Hour - time.Second)
	} else {
		endDate = time.Now()
	}
	return startDate, endDate
}

func (s *DashboardService) GetStats(ctx context.Context, req *DashboardStatsRequest) (*DashboardResponse, error) {
	startDate, endDate := s.dateRange(req)
	if req.WordLimit <= 0 || req.WordLimit > 50 {
		req.WordLimit = 10
	}

	db := s.db.WithContext(ctx)
	inRange := func() *gorm.DB {
		return db.Model(&models.Feedback{}).Where("feedback.created_at BETWEEN ? AND ?", startDate, endDate)
	}

	var resp DashboardResponse
	if err := inRange().Count(&resp.Stats.FeedbackEvents).Error; err != nil {
		return nil, err
	}
	if err := inRange().Distinct("artifact_id").Count(&resp.Stats.RatedArtifacts).Error; err != nil {
		return nil, err
	}
	if err := inRange().Where("rater_id IS NOT NULL").Distinct("rater_id").Count(&resp.Stats.Raters).Error; err != nil {
		return nil, err
	}

	var ratings []float64
	counts := make(map[string]int, len(models.Issues))
	var batch []models.Feedback
	res := inRange().Select("id, overall_rating, specific_issues").
		FindInBatches(&batch, 500, func(*gorm.DB, int) error {
			for i := range batch {
				ratings = append(ratings, float64(batch[i].OverallRating))
				issues := batch[i].Issues()
				for _, issue := range models.Issues {
					if issues.Has(issue) {
						counts[issue]++
					}
				}
			}
			return nil
		})
	if res.Error != nil {
		return nil, res.Error
	}
	if len(ratings) > 0 {
		resp.Stats.AverageRating, _ = stats.Mean(ratings)
		resp.Stats.MedianRating, _ = stats.Median(ratings)
	}

	resp.Issues = make([]IssueStats, 0, len(models.Issues))
	for _, issue := range models.Issues {
		resp.Issues = append(resp.Issues, IssueStats{Issue: issue, Count: counts[issue]})
	}

	resp.WordStats = []WordStats{}
	err := inRange().
		Select("generated_artifacts.word AS word, COUNT(*) AS feedback_count, COALESCE(AVG(feedback.overall_rating), 0) AS avg_rating").
		Joins("JOIN generated_artifacts ON generated_artifacts.id = feedback.artifact_id").
		Where("generated_artifacts.word <> ''").
		Group("generated_artifacts.word").
		Order("feedback_count DESC, word").
		Limit(req.WordLimit).
		Scan(&resp.WordStats).Error
	if err != nil {
		return nil, err
	}

	return &resp, nil
}
