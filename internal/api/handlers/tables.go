package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/auth"
	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/game"
)

// CreateTable racks a new table and returns the token that controls it.
func CreateTable(m *game.Manager, cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Mode game.Mode `json:"mode"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
				return
			}
		}
		if req.Mode == "" {
			req.Mode = game.ModeTwoPlayer
		}

		s, err := m.CreateTable(req.Mode)
		if err != nil {
			respondError(c, err)
			return
		}

		ttl := time.Duration(cfg.TableTokenTTLMinutes) * time.Minute
		if ttl <= 0 {
			ttl = 4 * time.Hour
		}
		token, err := auth.IssueTableToken(cfg.JWTSecret, s.ID, ttl)
		if err != nil {
			m.Remove(s.ID)
			respondError(c, err)
			return
		}

		c.Header("X-Table-ID", s.ID)
		c.JSON(http.StatusCreated, gin.H{
			"table_id": s.ID,
			"token":    token,
			"state":    s.State(),
		})
	}
}

// GetTable returns the live state of a table.
func GetTable(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.State())
	}
}

// GetSnapshot returns the last settled state cached in Redis. It outlives the
// table until the cache entry expires.
func GetSnapshot(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		data, err := m.LoadSnapshot(c.Request.Context(), c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		c.Data(http.StatusOK, "application/json; charset=utf-8", data)
	}
}

// withTable resolves :id and touches the table's idle deadline on success.
func withTable(m *game.Manager, fn func(c *gin.Context, s *game.Session)) gin.HandlerFunc {
	return func(c *gin.Context) {
		s, err := m.Get(c.Param("id"))
		if err != nil {
			respondError(c, err)
			return
		}
		fn(c, s)
		if c.Writer.Status() < http.StatusBadRequest {
			m.Touch(s.ID)
		}
	}
}

// Pointer feeds one pointer event (down, drag or up) to the table.
func Pointer(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		var req struct {
			Phase game.PointerPhase `json:"phase" binding:"required"`
			X     float64           `json:"x"`
			Y     float64           `json:"y"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "phase, x and y required"})
			return
		}
		switch req.Phase {
		case game.PointerDown, game.PointerDrag, game.PointerUp:
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "phase must be down, drag or up"})
			return
		}

		res, err := s.Pointer(req.Phase, game.NewVec2(req.X, req.Y))
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"result": res, "state": s.State()})
	})
}

// Strike shoots along a drag vector. A drag shorter than the minimum is
// reported as fired=false.
func Strike(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		var req struct {
			DX    float64 `json:"dx"`
			DY    float64 `json:"dy"`
			Power float64 `json:"power" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "dx, dy and power required"})
			return
		}
		if req.Power <= 0 || req.Power > 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "power must be in (0, 1]"})
			return
		}

		fired, err := s.Strike(game.NewVec2(req.DX, req.DY), req.Power)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"fired": fired})
	})
}

// PlaceCue moves the cue ball while the shooter has ball in hand.
func PlaceCue(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		var req struct {
			X float64 `json:"x"`
			Y float64 `json:"y"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "x and y required"})
			return
		}
		if err := s.PlaceCue(game.NewVec2(req.X, req.Y)); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.State())
	})
}

// NewRack re-racks keeping rack wins.
func NewRack(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		s.NewRack()
		c.JSON(http.StatusOK, s.State())
	})
}

// ResetTable re-racks and clears rack wins.
func ResetTable(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		s.FullReset()
		c.JSON(http.StatusOK, s.State())
	})
}

// SetMode switches between two players and the AI levels.
func SetMode(m *game.Manager) gin.HandlerFunc {
	return withTable(m, func(c *gin.Context, s *game.Session) {
		var req struct {
			Mode game.Mode `json:"mode" binding:"required"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "mode required"})
			return
		}
		if err := s.SetMode(req.Mode); err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, s.State())
	})
}

// DeleteTable closes a table.
func DeleteTable(m *game.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !m.Remove(c.Param("id")) {
			respondError(c, game.ErrTableNotFound)
			return
		}
		c.Status(http.StatusNoContent)
	}
}
