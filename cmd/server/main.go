package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/karthik-excrin/shootx-v2/internal/comfyui"
	"github.com/karthik-excrin/shootx-v2/internal/config"
	"github.com/karthik-excrin/shootx-v2/internal/database"
	"github.com/karthik-excrin/shootx-v2/internal/dispatch"
	"github.com/karthik-excrin/shootx-v2/internal/handlers"
	"github.com/karthik-excrin/shootx-v2/internal/middleware"
	"github.com/karthik-excrin/shootx-v2/internal/poll"
	"github.com/karthik-excrin/shootx-v2/internal/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	var logger *zap.Logger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	if cfg.DatabaseURL == "" {
		logger.Fatal("DATABASE_URL is required")
	}

	// Run migrations before opening the main pool
	migrator, err := database.NewMigrator(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("failed to initialize migrator", zap.Error(err))
	}
	if err := migrator.Run(); err != nil {
		logger.Fatal("migration failed", zap.Error(err))
	}
	migrator.Close()

	store, err := database.NewStore(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}
	defer store.Close()

	generationClient := comfyui.NewClient(cfg.RunPodAPIURL, cfg.RunPodAPIKey, poll.Config{
		Interval:    cfg.GenerationPollInterval,
		MaxAttempts: cfg.GenerationMaxAttempts,
	}, logger)

	dispatcher := dispatch.New(cfg.WorkerCount, cfg.QueueSize, logger)
	dispatcher.Start()

	tryOnService := services.NewTryOnService(store, generationClient, dispatcher, logger)

	reaperCtx, stopReaper := context.WithCancel(context.Background())
	tryOnService.StartReaper(reaperCtx, cfg.ReapInterval, cfg.StaleJobAge)

	tryOnHandler := handlers.NewTryOnHandler(tryOnService, logger)
	statusHandler := handlers.NewStatusHandler(tryOnService, logger)
	widgetHandler := handlers.NewWidgetHandler(store, cfg.BaseURL, logger)
	settingsHandler := handlers.NewSettingsHandler(store, logger)
	analyticsHandler := handlers.NewAnalyticsHandler(store, logger)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Health check (no auth)
	router.GET("/health", handlers.HealthHandler)

	// Storefront-facing routes (anonymous)
	router.POST("/api/tryon", tryOnHandler.Submit)
	router.GET("/api/tryon-status", statusHandler.GetStatus)
	router.GET("/widget.js", widgetHandler.GetWidget)

	// Admin API
	api := router.Group("/api/v1")
	api.Use(middleware.AuthMiddleware(cfg))
	api.GET("/settings", settingsHandler.GetSettings)
	api.PUT("/settings", settingsHandler.UpdateSettings)
	api.GET("/analytics", analyticsHandler.GetAnalytics)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		logger.Info("server starting", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", zap.Error(err))
	}

	// Drain queued generations before cutting their context; interrupted
	// jobs are picked up by the reaper on next boot.
	dispatcher.Stop()
	stopReaper()
	logger.Info("stopped")
}
