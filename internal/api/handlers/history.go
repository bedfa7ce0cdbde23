package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/store"
)

var errLedgerDisabled = errors.New("ledger disabled")

// ListRacks returns recent racks from the ledger.
func ListRacks(l *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errLedgerDisabled.Error()})
			return
		}
		limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
		racks, err := l.RecentRacks(c.Request.Context(), limit)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"racks": racks})
	}
}

// GetRackShots returns one rack and its shots.
func GetRackShots(l *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errLedgerDisabled.Error()})
			return
		}
		id, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid rack id"})
			return
		}
		rack, err := l.GetRack(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		shots, err := l.RackShots(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"rack": rack, "shots": shots})
	}
}

// GetTableWins returns finished-rack wins per player for a table.
func GetTableWins(l *store.Ledger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if l == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": errLedgerDisabled.Error()})
			return
		}
		tally, err := l.WinTally(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"table_id": c.Param("id"), "player1": tally[1], "player2": tally[2]})
	}
}
