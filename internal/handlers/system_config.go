package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

type SystemConfigHandler struct {
	configService *services.SystemConfigService
}

func NewSystemConfigHandler(configService *services.SystemConfigService) *SystemConfigHandler {
	return &SystemConfigHandler{configService: configService}
}

// GetByGroup handles GET /api/system-config/:group
func (h *SystemConfigHandler) GetByGroup(c *gin.Context) {
	configs, err := h.configService.GetByGroup(c.Param("group"))
	if err != nil {
		response.ServerError(c, err.Error())
		return
	}
	response.Success(c, configs)
}
