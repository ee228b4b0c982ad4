package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/middleware"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

type ArtifactHandler struct {
	artifacts *services.ArtifactService
}

func NewArtifactHandler(artifacts *services.ArtifactService) *ArtifactHandler {
	return &ArtifactHandler{artifacts: artifacts}
}

// Create handles POST /api/artifacts
func (h *ArtifactHandler) Create(c *gin.Context) {
	var req services.CreateArtifactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	artifact, err := h.artifacts.Create(c.Request.Context(), &req, middleware.GetUserIDPtr(c))
	if err != nil {
		respondError(c, err)
		return
	}
	response.Created(c, artifact)
}

// List handles GET /api/artifacts
func (h *ArtifactHandler) List(c *gin.Context) {
	var req services.ArtifactListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	resp, err := h.artifacts.List(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, resp)
}

// GetByID handles GET /api/artifacts/:id
func (h *ArtifactHandler) GetByID(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	artifact, err := h.artifacts.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	response.Success(c, artifact)
}

func parseID(c *gin.Context, param string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(param), 10, 32)
	if err != nil || id == 0 {
		response.BadRequest(c, "invalid "+param)
		return 0, false
	}
	return uint(id), true
}
