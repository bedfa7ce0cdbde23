package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/game"
)

// GetTuning returns the table geometry and physics the server simulates with,
// so clients can draw the same table.
func GetTuning(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, m.Tuning())
	}
}
