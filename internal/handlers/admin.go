package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// AdminStats reports live hub occupancy and per-room message volume.
func (h HandlerSet) AdminStats(c *gin.Context) {
	rooms, clients := h.hub.Stats()

	counts, err := h.messages.CountByRoom(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "store_unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"activeRooms":       rooms,
		"activeConnections": clients,
		"messagesByRoom":    counts,
	})
}
