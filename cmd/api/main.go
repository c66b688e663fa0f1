package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/surgimedia/casesync/internal/config"
	"github.com/surgimedia/casesync/internal/engine"
	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/handlers"
	"github.com/surgimedia/casesync/internal/logging"
	"github.com/surgimedia/casesync/internal/middleware"
	"github.com/surgimedia/casesync/internal/observability"
	"github.com/surgimedia/casesync/internal/progress"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/scheduler"
	"github.com/surgimedia/casesync/internal/services"
	"github.com/surgimedia/casesync/internal/store"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/surgimedia/casesync/docs"
)

// @title           CaseSync API
// @version         1.0
// @description     Catalog synchronization service. Pulls the remote gallery catalog of procedures and cases into the local database through a resumable three-stage pipeline, with weekly scheduling and a full run history.

// @host      localhost:8080
// @BasePath  /v1

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name Authorization

// @tag.name sync
// @tag.description Sync trigger, stop, status and progress

// @tag.name schedule
// @tag.description Weekly schedule configuration

// @tag.name history
// @tag.description Sync run history

// @tag.name health
// @tag.description Health check operations

func main() {
	// Initialize logger first
	if err := logging.InitLogger(); err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	// Set Gin mode
	if config.AppConfig.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := logging.Logger

	// Build the sync stack
	artifacts := store.NewMongoArtifactStore(config.MongoDB, config.AppConfig.ArtifactCollection)
	entities := store.NewMongoEntityStore(config.MongoDB, config.AppConfig.ProcedureCollection, config.AppConfig.CaseCollection)
	history := store.NewMongoHistoryStore(config.MongoDB, config.AppConfig.SyncLogCollection)
	schedules := store.NewRedisScheduleStore(config.Redis)
	progressStore := progress.NewRedisStore(config.Redis, logger)
	galleryClient := gallery.NewClient(config.AppConfig.GalleryBaseURL, config.AppConfig.GalleryToken, logger)
	registryClient := registry.NewHTTPClient(config.AppConfig.RegistryBaseURL, config.AppConfig.GalleryToken, logger)

	eng := engine.New(galleryClient, artifacts, entities, history, progressStore, registryClient, schedules, schedules, engine.Options{
		BatchSize:     config.AppConfig.SyncBatchSize,
		MaxElapsed:    config.AppConfig.SyncMaxElapsed,
		MemoryLimitMB: config.AppConfig.SyncMemoryLimitMB,
		BatchYield:    config.AppConfig.SyncBatchYield,
	}, logger)

	sched := scheduler.New(eng, schedules, registryClient, logger)
	syncService := services.NewSyncService(eng, schedules, history, progressStore, registryClient, logger)
	syncHandlers := handlers.NewSyncHandlers(syncService, sched, schedules, history)

	// Pick up any run a previous process left mid-flight
	syncService.ResumeIfInterrupted(context.Background())

	// Create router with middleware
	router := gin.New()
	router.Use(
		gin.Recovery(),
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.RequestTracker(),
		cors.Default(),
	)

	// Metrics endpoint
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	requireToken := middleware.RequireToken(config.AppConfig.GalleryToken)
	v1 := router.Group("/v1")
	{
		v1.GET("/health", handlers.HealthCheck)

		v1.GET("/sync/status", syncHandlers.GetStatus)
		v1.GET("/sync/progress", syncHandlers.GetProgress)
		v1.GET("/sync/schedule", syncHandlers.GetSchedule)
		v1.GET("/sync/history", syncHandlers.ListHistory)

		v1.POST("/sync/trigger", requireToken, syncHandlers.TriggerSync)
		v1.POST("/sync/start", requireToken, syncHandlers.StartSync)
		v1.POST("/sync/stop", requireToken, syncHandlers.StopSync)
		v1.PUT("/sync/schedule", requireToken, syncHandlers.UpdateSchedule)
		v1.DELETE("/sync/history", requireToken, syncHandlers.DeleteAllHistory)
		v1.DELETE("/sync/history/:id", requireToken, syncHandlers.DeleteHistoryRecord)
	}

	// Swagger documentation
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Create server with timeouts
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", config.AppConfig.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logging.Logger.Info("starting server", zap.Int("port", config.AppConfig.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Logger.Fatal("failed to start server", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logging.Logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logging.Logger.Error("forced shutdown", zap.Error(err))
	}

	logging.Logger.Info("server stopped")
}
