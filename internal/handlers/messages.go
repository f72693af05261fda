package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"chatrelay/api/internal/middleware"
	"chatrelay/api/internal/models"
)

type messageResponse struct {
	ID        string        `json:"id"`
	Content   string        `json:"content"`
	Sender    senderPayload `json:"sender"`
	Timestamp time.Time     `json:"timestamp"`
	Room      string        `json:"room"`
}

type senderPayload struct {
	Username string `json:"username"`
}

// ListMessages serves role-scoped history: admins get every room, everyone
// else only the room they asked for.
func (h HandlerSet) ListMessages(c *gin.Context) {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	messages, err := h.history.ListMessages(c.Request.Context(), claims, c.Query("room"))
	if err != nil {
		h.log.Error().Err(err).Msg("history query failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
		return
	}

	resp := make([]messageResponse, 0, len(messages))
	for _, msg := range messages {
		resp = append(resp, toMessageResponse(msg))
	}

	c.JSON(http.StatusOK, resp)
}

func toMessageResponse(msg models.Message) messageResponse {
	return messageResponse{
		ID:        msg.ID,
		Content:   msg.Content,
		Sender:    senderPayload{Username: msg.SenderName},
		Timestamp: msg.CreatedAt,
		Room:      msg.Room,
	}
}
