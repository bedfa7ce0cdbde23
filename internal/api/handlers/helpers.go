package handlers

import (
	"errors"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/auth"
	"github.com/playmatatu/eightball/internal/game"
	"github.com/playmatatu/eightball/internal/store"
)

var logger = log.WithPrefix("api")

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, game.ErrTableNotFound), errors.Is(err, store.ErrRackNotFound):
		return http.StatusNotFound
	case errors.Is(err, game.ErrNotYourTurn), errors.Is(err, game.ErrShotInProgress),
		errors.Is(err, game.ErrGameOver), errors.Is(err, game.ErrNoBallInHand):
		return http.StatusConflict
	case errors.Is(err, game.ErrInvalidMode):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, game.ErrSnapshotUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
