package api

import (
	"github.com/gin-gonic/gin"
	"github.com/playmatatu/eightball/internal/api/handlers"
	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/game"
	"github.com/playmatatu/eightball/internal/middleware"
	"github.com/playmatatu/eightball/internal/store"
	"github.com/playmatatu/eightball/internal/ws"
)

// Deps are the services the routes hand to handlers. Ledger may be nil.
type Deps struct {
	Config  *config.Config
	Manager *game.Manager
	Hub     *ws.Hub
	Ledger  *store.Ledger
}

// SetupRoutes configures all API routes
func SetupRoutes(router *gin.Engine, d Deps) {
	router.Use(middleware.CORSMiddleware(d.Config))

	if d.Config.Environment != "production" {
		router.Use(func(c *gin.Context) {
			c.Header("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
			c.Next()
		})
	}

	v1 := router.Group("/api/v1")
	{
		v1.GET("/health", handlers.HealthCheck(d.Manager))
		v1.GET("/config/tuning", handlers.GetTuning(d.Manager))

		tables := v1.Group("/tables")
		{
			tables.POST("", handlers.CreateTable(d.Manager, d.Config))
			tables.GET("/:id", handlers.GetTable(d.Manager))
			tables.GET("/:id/snapshot", handlers.GetSnapshot(d.Manager))
			tables.GET("/:id/ws", middleware.WebSocketCORSCheck(d.Config), middleware.RequireTableToken(d.Config),
				handlers.HandleTableWebSocket(d.Manager, d.Hub))

			owned := tables.Group("/:id", middleware.RequireTableToken(d.Config))
			{
				owned.POST("/pointer", handlers.Pointer(d.Manager))
				owned.POST("/strike", handlers.Strike(d.Manager))
				owned.POST("/place-cue", handlers.PlaceCue(d.Manager))
				owned.POST("/rack", handlers.NewRack(d.Manager))
				owned.POST("/reset", handlers.ResetTable(d.Manager))
				owned.POST("/mode", handlers.SetMode(d.Manager))
				owned.DELETE("", handlers.DeleteTable(d.Manager))
			}
		}

		history := v1.Group("/history")
		{
			history.GET("/racks", handlers.ListRacks(d.Ledger))
			history.GET("/racks/:id/shots", handlers.GetRackShots(d.Ledger))
			history.GET("/tables/:id/wins", handlers.GetTableWins(d.Ledger))
		}
	}
}
