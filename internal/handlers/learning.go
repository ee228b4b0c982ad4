package handlers

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/middleware"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

type LearningHandler struct {
	learning *learning.Service
	configs  *services.SystemConfigService
	drift    *services.DriftCheckService
}

func NewLearningHandler(learningService *learning.Service, configs *services.SystemConfigService, drift *services.DriftCheckService) *LearningHandler {
	return &LearningHandler{learning: learningService, configs: configs, drift: drift}
}

type GuidanceRequest struct {
	Style      string `json:"style" binding:"required,max=100"`
	Quality    string `json:"quality" binding:"max=50"`
	BasePrompt string `json:"base_prompt"`
}

// Guidance handles POST /api/guidance. It always answers; when learning is
// unavailable the baseline parameters are returned.
func (h *LearningHandler) Guidance(c *gin.Context) {
	var req GuidanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.Success(c, h.learning.GetGenerationGuidance(c.Request.Context(), req.Style, req.Quality, req.BasePrompt))
}

// QualityRecommendation handles GET /api/recommendations/:style
func (h *LearningHandler) QualityRecommendation(c *gin.Context) {
	style := strings.TrimSpace(c.Param("style"))
	if style == "" {
		response.BadRequest(c, "style is required")
		return
	}
	response.Success(c, h.learning.GetQualityRecommendation(c.Request.Context(), style))
}

// Status handles GET /api/learning/status
func (h *LearningHandler) Status(c *gin.Context) {
	response.Success(c, h.learning.Status(c.Request.Context()))
}

// Stats handles GET /api/learning/stats
func (h *LearningHandler) Stats(c *gin.Context) {
	stats, err := h.learning.ListStats(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, gin.H{"items": stats, "total": len(stats)})
}

// DriftCheck handles POST /api/learning/drift-check. It replays the feedback
// log and reports stat rows that disagree, without changing them.
func (h *LearningHandler) DriftCheck(c *gin.Context) {
	report, err := h.drift.Check(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, report)
}

// Reset handles POST /api/learning/reset and forces baseline parameters
// until resumed.
func (h *LearningHandler) Reset(c *gin.Context) {
	h.setForceBaseline(c, true)
}

// Resume handles POST /api/learning/resume
func (h *LearningHandler) Resume(c *gin.Context) {
	h.setForceBaseline(c, false)
}

func (h *LearningHandler) setForceBaseline(c *gin.Context, on bool) {
	if err := h.configs.SetForceBaseline(c.Request.Context(), on, middleware.GetUserIDPtr(c)); err != nil {
		respondError(c, &learning.StoreError{Op: "set learning override", Err: err})
		return
	}
	response.Success(c, h.learning.Status(c.Request.Context()))
}
