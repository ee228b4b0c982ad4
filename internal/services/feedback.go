package services

import (
	"context"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
)

// FeedbackService accepts rater feedback, persists it and schedules the
// learning update.
type FeedbackService struct {
	artifacts *ArtifactService
	learning  *learning.Service
	queue     TaskQueue
	events    *EventHub
}

func NewFeedbackService(artifacts *ArtifactService, learningService *learning.Service, queue TaskQueue) *FeedbackService {
	return &FeedbackService{
		artifacts: artifacts,
		learning:  learningService,
		queue:     queue,
	}
}

// SetEventHub enables real-time events for submissions and learning updates.
func (s *FeedbackService) SetEventHub(hub *EventHub) {
	s.events = hub
}

type SubmitFeedbackRequest struct {
	ArtifactID          uint                  `json:"artifact_id" binding:"required"`
	OverallRating       int                   `json:"overall_rating"`
	ObjectQuality       *int                  `json:"object_quality"`
	MovementRealism     *int                  `json:"movement_realism"`
	EnvironmentAccuracy *int                  `json:"environment_accuracy"`
	LightingCoherence   *int                  `json:"lighting_coherence"`
	SpecificIssues      models.SpecificIssues `json:"specific_issues"`
	TextualFeedback     string                `json:"textual_feedback"`
}

// Submit records feedback for an existing artifact. The learning update is
// queued afterwards and its failure never fails the submission.
func (s *FeedbackService) Submit(ctx context.Context, req *SubmitFeedbackRequest, raterID *uint) (*models.Feedback, error) {
	if _, err := s.artifacts.GetByID(ctx, req.ArtifactID); err != nil {
		return nil, err
	}

	fb, err := s.learning.RecordFeedback(ctx, learning.FeedbackInput{
		ArtifactID:          req.ArtifactID,
		RaterID:             raterID,
		OverallRating:       req.OverallRating,
		ObjectQuality:       req.ObjectQuality,
		MovementRealism:     req.MovementRealism,
		EnvironmentAccuracy: req.EnvironmentAccuracy,
		LightingCoherence:   req.LightingCoherence,
		SpecificIssues:      req.SpecificIssues,
		TextualFeedback:     req.TextualFeedback,
	})
	if err != nil {
		return nil, err
	}

	task := &LearningTask{FeedbackID: fb.ID, RequestID: RequestIDFrom(ctx)}
	s.events.Publish(LearningEvent{
		Type:       EventFeedbackRecorded,
		FeedbackID: fb.ID,
		ArtifactID: fb.ArtifactID,
		Rating:     fb.OverallRating,
		RequestID:  task.RequestID,
	})
	if err := s.queue.Enqueue(ctx, task); err != nil {
		logger.Warn().Err(err).Uint("feedback_id", fb.ID).Msg("Failed to enqueue learning task")
		LogWarning(models.LogModuleFeedback, "enqueue_learning_task", err.Error(), raterID, task.RequestID, task)
	}
	return fb, nil
}

// ProcessLearningTask is the queue processor for learning tasks.
func (s *FeedbackService) ProcessLearningTask(ctx context.Context, task *LearningTask) error {
	err := s.learning.ProcessFeedback(WithRequestID(ctx, task.RequestID), task.FeedbackID)
	event := LearningEvent{Type: EventLearningApplied, FeedbackID: task.FeedbackID, RequestID: task.RequestID}
	if err != nil {
		event.Error = err.Error()
	}
	s.events.Publish(event)
	return err
}
