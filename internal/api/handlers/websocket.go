package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/game"
	"github.com/playmatatu/eightball/internal/ws"
)

// HandleTableWebSocket streams a table's events and accepts commands.
func HandleTableWebSocket(m *game.Manager, h *ws.Hub) gin.HandlerFunc {
	return ws.HandleTable(m, h)
}
