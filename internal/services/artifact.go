package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/models"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
)

// ArtifactService stores generated artifacts and resolves their generation
// context for the learning pipeline.
type ArtifactService struct {
	db *gorm.DB
}

func NewArtifactService(db *gorm.DB) *ArtifactService {
	return &ArtifactService{db: db}
}

type CreateArtifactRequest struct {
	Word      string                   `json:"word" binding:"max=100"`
	Prompt    string                   `json:"prompt" binding:"required"`
	MediaURL  string                   `json:"media_url" binding:"max=500"`
	MediaType string                   `json:"media_type" binding:"omitempty,oneof=image video gif"`
	Settings  *models.ArtifactSettings `json:"settings"`
}

type ArtifactListRequest struct {
	Page     int    `form:"page"`
	PageSize int    `form:"page_size"`
	Word     string `form:"word"`
}

type ArtifactListResponse struct {
	Total    int64                      `json:"total"`
	Page     int                        `json:"page"`
	PageSize int                        `json:"page_size"`
	Items    []models.GeneratedArtifact `json:"items"`
}

func (s *ArtifactService) Create(ctx context.Context, req *CreateArtifactRequest, createdBy *uint) (*models.GeneratedArtifact, error) {
	artifact := &models.GeneratedArtifact{
		Word:      strings.TrimSpace(req.Word),
		Prompt:    strings.TrimSpace(req.Prompt),
		MediaURL:  req.MediaURL,
		MediaType: req.MediaType,
		CreatedBy: createdBy,
	}
	if artifact.MediaType == "" {
		artifact.MediaType = "gif"
	}
	if req.Settings != nil {
		raw, err := json.Marshal(req.Settings)
		if err != nil {
			return nil, err
		}
		artifact.Settings = datatypes.JSON(raw)
	}

	if err := s.db.WithContext(ctx).Create(artifact).Error; err != nil {
		return nil, err
	}
	return artifact, nil
}

// GetByID returns an error wrapping learning.ErrNotFound when the artifact does not exist.
func (s *ArtifactService) GetByID(ctx context.Context, id uint) (*models.GeneratedArtifact, error) {
	var artifact models.GeneratedArtifact
	err := s.db.WithContext(ctx).First(&artifact, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("artifact %d: %w", id, learning.ErrNotFound)
	}
	if err != nil {
		return nil, &learning.StoreError{Op: "get artifact", Err: err}
	}
	return &artifact, nil
}

func (s *ArtifactService) List(ctx context.Context, req *ArtifactListRequest) (*ArtifactListResponse, error) {
	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&models.GeneratedArtifact{})
	if req.Word != "" {
		query = query.Where("word LIKE ?", "%"+req.Word+"%")
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var items []models.GeneratedArtifact
	offset := (req.Page - 1) * req.PageSize
	if err := query.Order("created_at DESC, id DESC").Offset(offset).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}

	return &ArtifactListResponse{Total: total, Page: req.Page, PageSize: req.PageSize, Items: items}, nil
}

// GenerationContext implements learning.ContextResolver.
func (s *ArtifactService) GenerationContext(ctx context.Context, artifactID uint) (*learning.GenerationContext, error) {
	artifact, err := s.GetByID(ctx, artifactID)
	if err != nil {
		return nil, err
	}
	settings, ok := artifact.GenerationSettings()
	if !ok {
		return nil, nil
	}
	return &learning.GenerationContext{
		Style:   settings.Style,
		Quality: settings.Quality,
		Prompt:  artifact.Prompt,
	}, nil
}
