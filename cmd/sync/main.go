package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/surgimedia/casesync/internal/config"
	"github.com/surgimedia/casesync/internal/engine"
	"github.com/surgimedia/casesync/internal/gallery"
	"github.com/surgimedia/casesync/internal/logging"
	"github.com/surgimedia/casesync/internal/observability"
	"github.com/surgimedia/casesync/internal/progress"
	"github.com/surgimedia/casesync/internal/registry"
	"github.com/surgimedia/casesync/internal/scheduler"
	"github.com/surgimedia/casesync/internal/services"
	"github.com/surgimedia/casesync/internal/store"
	"go.uber.org/zap"
)

func main() {
	// Initialize logging
	if err := logging.InitLogger(); err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}

	// Load configuration
	if err := config.LoadConfig(); err != nil {
		logging.Logger.Fatal("failed to load config", zap.Error(err))
	}

	logging.Logger.Info("starting casesync scheduler")

	// Initialize observability
	observability.InitTracer()
	defer observability.ShutdownTracer()

	// Initialize database connections
	config.InitMongoDB()
	config.InitRedis()

	logger := logging.Logger

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

	syncService := services.NewSyncService(eng, schedules, history, progressStore, registryClient, logger)
	sched := scheduler.New(eng, schedules, registryClient, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Finish any run a previous process left behind before the
	// scheduler starts firing new ones
	syncService.ResumeIfInterrupted(ctx)

	go sched.Run(ctx)

	// Wait for shutdown signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	logging.Logger.Info("shutdown signal received")
	cancel()

	logging.Logger.Info("casesync scheduler stopped")
}
