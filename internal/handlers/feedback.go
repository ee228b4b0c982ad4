package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/middleware"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

type FeedbackHandler struct {
	feedback  *services.FeedbackService
	artifacts *services.ArtifactService
	learning  *learning.Service
}

func NewFeedbackHandler(feedback *services.FeedbackService, artifacts *services.ArtifactService, learningService *learning.Service) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback, artifacts: artifacts, learning: learningService}
}

// Submit handles POST /api/feedback. The response does not wait for the
// learning update.
func (h *FeedbackHandler) Submit(c *gin.Context) {
	var req services.SubmitFeedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	fb, err := h.feedback.Submit(c.Request.Context(), &req, middleware.GetUserIDPtr(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, fb)
}

// Summary handles GET /api/feedback/:artifactId
func (h *FeedbackHandler) Summary(c *gin.Context) {
	id, ok := parseID(c, "artifactId")
	if !ok {
		return
	}

	if _, err := h.artifacts.GetByID(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	summary, err := h.learning.GetFeedbackSummary(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, summary)
}
