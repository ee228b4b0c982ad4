package handlers

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services/learning"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

// respondError maps service errors onto API responses.
func respondError(c *gin.Context, err error) {
	var ve *learning.ValidationError
	switch {
	case errors.As(err, &ve):
		response.Error(c, response.NewInvalidField(ve.Field, ve.Error()))
	case errors.Is(err, learning.ErrNotFound):
		response.Error(c, response.NewNotFound(err.Error()))
	case learning.IsStoreUnavailable(err):
		logger.Warn().Err(err).Str("path", c.FullPath()).Msg("Store unavailable")
		response.Error(c, response.NewServiceUnavailable("storage temporarily unavailable"))
	default:
		logger.Error().Err(err).Str("path", c.FullPath()).Msg("Request failed")
		response.ServerError(c, "internal server error")
	}
}
