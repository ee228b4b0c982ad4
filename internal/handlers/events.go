package handlers

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/services"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/internal/utils"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/logger"
	"github.com/B9a1t9m3a9n/AIGIF-flashcards/pkg/response"
)

// EventsHandler streams learning events over Server-Sent Events.
type EventsHandler struct {
	hub *services.EventHub
}

func NewEventsHandler(hub *services.EventHub) *EventsHandler {
	return &EventsHandler{hub: hub}
}

// StreamLearningEvents handles GET /api/events/learning. EventSource cannot
// set headers, so the admin token may also be passed as ?token=.
func (h *EventsHandler) StreamLearningEvents(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		authHeader := c.GetHeader("Authorization")
		if strings.HasPrefix(authHeader, "Bearer ") {
			token = strings.TrimPrefix(authHeader, "Bearer ")
		}
	}

	if token == "" {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	claims, err := utils.ParseToken(token)
	if err != nil {
		response.Unauthorized(c, "Invalid token")
		return
	}
	if claims.Role != utils.RoleAdmin {
		response.Forbidden(c, "admin access required")
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	clientID := uuid.New().String()
	events := h.hub.Subscribe(clientID)
	defer h.hub.Unsubscribe(clientID)

	logger.Info().Str("client_id", clientID).Int("total", h.hub.ClientCount()).Msg("SSE client connected")

	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			data, err := json.Marshal(event)
			if err != nil {
				logger.Error().Err(err).Msg("SSE marshal error")
				return true
			}
			fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Type, data)
			c.Writer.Flush()
			return true
		case <-c.Request.Context().Done():
			logger.Info().Str("client_id", clientID).Msg("SSE client disconnected")
			return false
		}
	})
}
