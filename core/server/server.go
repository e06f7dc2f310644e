package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"meetsync/core/cache"
	"meetsync/core/config"
	"meetsync/core/database"
	"meetsync/core/logger"
	"meetsync/core/middleware"
	"meetsync/core/storage"
	"meetsync/core/worker"
	"meetsync/modules/calendar"
	"meetsync/modules/notification"
	"meetsync/modules/proposal"
	proposalrepo "meetsync/modules/proposal/repository"
	"meetsync/modules/space"
	"meetsync/modules/video"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
)

// Run boots the HTTP server, the module graph and the background worker,
// and blocks until shutdown.
func Run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger.Init(cfg.Server.Env)

	db, err := database.InitDB(database.DatabaseConfig(cfg.Database))
	if err != nil {
		return err
	}

	redisCache, err := cache.InitCache(cfg.Redis)
	if err != nil {
		return err
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.CORS())
	e.Use(echomw.RequestID())

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})

	mw := middleware.NewMiddleware()

	videos := buildVideoRegistry(cfg)

	var store storage.ObjectStorage
	if cfg.S3.Bucket != "" {
		store = storage.NewS3Storage(cfg.S3)
	} else {
		logger.Warn("S3 bucket not configured, invite files disabled")
	}

	// Module wiring. Order matters: space carries the authorization gate
	// and notification the fanout sink, both consumed by proposal.
	api := e.Group("/api/v1/private")
	spaceSvc := space.Init(api, db, mw)
	notifSvc := notification.Init(api, db, mw)
	proposal.Init(api, db, mw, spaceSvc, notifSvc, videos, store)
	calendar.Init(api, db, &redisCache, mw, spaceSvc)

	w := worker.NewWorker(cfg.Redis, proposalrepo.NewProposalRepository(db))
	if err := w.Start(); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}

	go func() {
		addr := fmt.Sprintf(":%d", cfg.Server.Port)
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Error("Server:Start:Error:", err)
		}
	}()
	logger.Info("Server started", "port", cfg.Server.Port, "env", cfg.Server.Env)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down...")
	w.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(ctx)
}

// buildVideoRegistry registers every provider that has credentials
// configured. Proposals naming an unregistered provider are rejected at
// creation time.
func buildVideoRegistry(cfg *config.Config) *video.Registry {
	providers := []video.Provider{}
	if cfg.Zoom.AccountID != "" && cfg.Zoom.ClientID != "" {
		providers = append(providers, video.NewZoomProvider(cfg.Zoom))
	}
	if cfg.GoogleAPI.ClientID != "" && cfg.GoogleAPI.MeetRefreshToken != "" {
		providers = append(providers, video.NewMeetProvider(cfg.GoogleAPI, cfg.GoogleAPI.MeetRefreshToken))
	}
	if len(providers) == 0 {
		logger.Warn("No video providers configured")
	}
	return video.NewRegistry(providers...)
}
