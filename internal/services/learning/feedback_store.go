package learning

import (
	"context"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
)

// MaxTextualFeedback bounds the free-text comment length in runes.
const MaxTextualFeedback = 2000

// FeedbackStore is the append-only log of feedback events.
type FeedbackStore interface {
	// Save validates and persists a new event, returning it with ID and
	// CreatedAt assigned.
	Save(ctx context.Context, fb *models.Feedback) (*models.Feedback, error)
	Get(ctx context.Context, id uint) (*models.Feedback, error)
	// ListForArtifact returns events newest first.
	ListForArtifact(ctx context.Context, artifactID uint) ([]models.Feedback, error)
	// RecentN returns the n most recent events across all artifacts, newest first.
	RecentN(ctx context.Context, n int) ([]models.Feedback, error)
	AveragesForArtifact(ctx context.Context, artifactID uint) (*Averages, error)
	// ForEach visits every event oldest first.
	ForEach(ctx context.Context, batchSize int, fn func(*models.Feedback) error) error
}

// GormFeedbackStore is the database-backed FeedbackStore.
type GormFeedbackStore struct {
	db *gorm.DB
}

func NewFeedbackStore(db *gorm.DB) *GormFeedbackStore {
	return &GormFeedbackStore{db: db}
}

// ValidateFeedback checks rating ranges and the artifact reference.
func ValidateFeedback(fb *models.Feedback) error {
	if fb.ArtifactID == 0 {
		return &ValidationError{Field: "artifact_id", Message: "is required"}
	}
	if fb.OverallRating < 1 || fb.OverallRating > 5 {
		return &ValidationError{Field: "overall_rating", Message: fmt.Sprintf("must be between 1 and 5, got %d", fb.OverallRating)}
	}
	optional := []struct {
		field  string
		rating *int
	}{
		{"object_quality", fb.ObjectQuality},
		{"movement_realism", fb.MovementRealism},
		{"environment_accuracy", fb.EnvironmentAccuracy},
		{"lighting_coherence", fb.LightingCoherence},
	}
	for _, o := range optional {
		if o.rating != nil && (*o.rating < 1 || *o.rating > 5) {
			return &ValidationError{Field: o.field, Message: fmt.Sprintf("must be between 1 and 5, got %d", *o.rating)}
		}
	}
	if n := len([]rune(fb.TextualFeedback)); n > MaxTextualFeedback {
		return &ValidationError{Field: "textual_feedback", Message: fmt.Sprintf("must be at most %d characters", MaxTextualFeedback)}
	}
	return nil
}

func (s *GormFeedbackStore) Save(ctx context.Context, fb *models.Feedback) (*models.Feedback, error) {
	if err := ValidateFeedback(fb); err != nil {
		return nil, err
	}

	row := *fb
	row.ID = 0
	row.TextualFeedback = strings.TrimSpace(row.TextualFeedback)
	row.SpecificIssues = datatypes.NewJSONType(fb.Issues())
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, storeErr("save feedback", err)
	}
	return &row, nil
}

func (s *GormFeedbackStore) Get(ctx context.Context, id uint) (*models.Feedback, error) {
	var fb models.Feedback
	if err := s.db.WithContext(ctx).First(&fb, id).Error; err != nil {
		return nil, storeErr("get feedback", err)
	}
	return &fb, nil
}

func (s *GormFeedbackStore) ListForArtifact(ctx context.Context, artifactID uint) ([]models.Feedback, error) {
	var rows []models.Feedback
	err := s.db.WithContext(ctx).
		Where("artifact_id = ?", artifactID).
		Order("created_at DESC, id DESC").
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("list feedback", err)
	}
	return rows, nil
}

func (s *GormFeedbackStore) RecentN(ctx context.Context, n int) ([]models.Feedback, error) {
	if n <= 0 {
		return []models.Feedback{}, nil
	}
	var rows []models.Feedback
	err := s.db.WithContext(ctx).
		Order("created_at DESC, id DESC").
		Limit(n).
		Find(&rows).Error
	if err != nil {
		return nil, storeErr("recent feedback", err)
	}
	return rows, nil
}

func (s *GormFeedbackStore) AveragesForArtifact(ctx context.Context, artifactID uint) (*Averages, error) {
	var row struct {
		AvgOverall     *float64
		AvgObject      *float64
		AvgMovement    *float64
		AvgEnvironment *float64
		AvgLighting    *float64
		Total          int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Feedback{}).
		Select(`AVG(overall_rating) AS avg_overall,
			AVG(object_quality) AS avg_object,
			AVG(movement_realism) AS avg_movement,
			AVG(environment_accuracy) AS avg_environment,
			AVG(lighting_coherence) AS avg_lighting,
			COUNT(*) AS total`).
		Where("artifact_id = ?", artifactID).
		Scan(&row).Error
	if err != nil {
		return nil, storeErr("feedback averages", err)
	}
	return &Averages{
		Overall:     row.AvgOverall,
		Object:      row.AvgObject,
		Movement:    row.AvgMovement,
		Environment: row.AvgEnvironment,
		Lighting:    row.AvgLighting,
		Count:       row.Total,
	}, nil
}

func (s *GormFeedbackStore) ForEach(ctx context.Context, batchSize int, fn func(*models.Feedback) error) error {
	if batchSize <= 0 {
		batchSize = 500
	}
	var batch []models.Feedback
	var visitErr error
	res := s.db.WithContext(ctx).
		FindInBatches(&batch, batchSize, func(tx *gorm.DB, _ int) error {
			for i := range batch {
				if err := fn(&batch[i]); err != nil {
					visitErr = err
					return err
				}
			}
			return nil
		})
	if visitErr != nil {
		return visitErr
	}
	if res.Error != nil {
		return storeErr("scan feedback", res.Error)
	}
	return nil
}
