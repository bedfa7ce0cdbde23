package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/playmatatu/eightball/internal/api"
	"github.com/playmatatu/eightball/internal/config"
	"github.com/playmatatu/eightball/internal/game"
	"github.com/playmatatu/eightball/internal/redis"
	"github.com/playmatatu/eightball/internal/store"
	"github.com/playmatatu/eightball/internal/ws"
)

var flagNoLedger bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the table server",
	Long: `Start the HTTP/WebSocket server. Tables tick at TICK_HZ, settled
states are cached in Redis when REDIS_URL is set, and every shot is appended
to the ledger database.

Examples:
  eightball serve
  APP_PORT=9000 REDIS_URL=redis://localhost:6379/0 eightball serve`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&flagNoLedger, "no-ledger", false, "Run without the results database")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg := config.Load()
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	tuning, err := config.LoadTuning(cfg.TuningFile)
	if err != nil {
		return err
	}

	var ledger *store.Ledger
	if !flagNoLedger {
		ledger, err = store.Open(cfg.DatabaseDriver, cfg.DatabaseURL, cfg.MigrateOnStart)
		if err != nil {
			return err
		}
		defer ledger.Close()
	}

	rdb, err := redis.Connect(cfg.RedisURL)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var gameLedger game.Ledger
	if ledger != nil {
		gameLedger = ledger
	}
	manager := game.NewManager(cfg, tuning, rdb, gameLedger)
	hub := ws.NewHub()
	manager.SetBroadcaster(hub)

	go hub.Run(ctx)
	go manager.Run(ctx)
	ws.StartEventSubscriber(ctx, rdb, hub, manager.InstanceID())
	game.StartIdleWorker(ctx, manager)

	router := gin.New()
	router.Use(gin.Recovery())
	if cfg.Environment != "production" {
		router.Use(gin.Logger())
	}
	api.SetupRoutes(router, api.Deps{Config: cfg, Manager: manager, Hub: hub, Ledger: ledger})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("starting eightball server", "port", cfg.Port, "env", cfg.Environment, "instance", manager.InstanceID())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
