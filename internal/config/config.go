package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all configuration values
type Config struct {
	// Server configuration
	Port        int    `json:"port"`
	Environment string `json:"environment"`

	// MongoDB configuration
	MongoURI      string `json:"mongo_uri"`
	MongoDatabase string `json:"mongo_database"`

	// Redis configuration
	RedisURI      string `json:"redis_uri"`
	RedisPassword string `json:"redis_password"`
	RedisDB       int    `json:"redis_db"`

	// Collection names
	ProcedureCollection string `json:"mongo_procedure_collection"`
	CaseCollection      string `json:"mongo_case_collection"`
	SyncLogCollection   string `json:"mongo_sync_log_collection"`
	ArtifactCollection  string `json:"mongo_artifact_collection"`

	// Gallery API configuration
	GalleryBaseURL string `json:"gallery_base_url"`
	GalleryToken   string `json:"gallery_token"`

	// Job registry (coordination API) configuration
	RegistryBaseURL string `json:"registry_base_url"`

	// Sync engine tuning
	SyncBatchSize     int           `json:"sync_batch_size"`
	SyncMaxElapsed    time.Duration `json:"sync_max_elapsed"`
	SyncMemoryLimitMB int           `json:"sync_memory_limit_mb"`
	SyncBatchYield    time.Duration `json:"sync_batch_yield"`

	// Tracing configuration
	TracingEnabled  bool   `json:"tracing_enabled"`
	TracingEndpoint string `json:"tracing_endpoint"`
}

var (
	AppConfig *Config
)

// LoadConfig loads configuration from environment variables
func LoadConfig() error {
	port, err := strconv.Atoi(getEnvOrDefault("PORT", "8080"))
	if err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	redisDB, err := strconv.Atoi(getEnvOrDefault("REDIS_DB", "0"))
	if err != nil {
		return fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	batchSize, err := strconv.Atoi(getEnvOrDefault("SYNC_BATCH_SIZE", "10"))
	if err != nil || batchSize <= 0 {
		return fmt.Errorf("invalid SYNC_BATCH_SIZE: %v", getEnvOrDefault("SYNC_BATCH_SIZE", "10"))
	}

	maxElapsed, err := time.ParseDuration(getEnvOrDefault("SYNC_MAX_ELAPSED", "4m"))
	if err != nil {
		return fmt.Errorf("invalid SYNC_MAX_ELAPSED: %w", err)
	}

	memoryLimitMB, err := strconv.Atoi(getEnvOrDefault("SYNC_MEMORY_LIMIT_MB", "256"))
	if err != nil {
		return fmt.Errorf("invalid SYNC_MEMORY_LIMIT_MB: %w", err)
	}

	batchYield, err := time.ParseDuration(getEnvOrDefault("SYNC_BATCH_YIELD", "250ms"))
	if err != nil {
		return fmt.Errorf("invalid SYNC_BATCH_YIELD: %w", err)
	}

	galleryToken := os.Getenv("GALLERY_API_TOKEN")
	if galleryToken == "" {
		return fmt.Errorf("GALLERY_API_TOKEN environment variable is required")
	}

	AppConfig = &Config{
		// Server configuration
		Port:        port,
		Environment: getEnvOrDefault("ENVIRONMENT", "development"),

		// MongoDB configuration
		MongoURI:      getEnvOrDefault("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getEnvOrDefault("MONGODB_DATABASE", "casesync"),

		// Redis configuration
		RedisURI:      getEnvOrDefault("REDIS_URI", "localhost:6379"),
		RedisPassword: getEnvOrDefault("REDIS_PASSWORD", ""),
		RedisDB:       redisDB,

		// Collection names
		ProcedureCollection: getEnvOrDefault("MONGODB_PROCEDURE_COLLECTION", "procedures"),
		CaseCollection:      getEnvOrDefault("MONGODB_CASE_COLLECTION", "cases"),
		SyncLogCollection:   getEnvOrDefault("MONGODB_SYNC_LOG_COLLECTION", "sync_logs"),
		ArtifactCollection:  getEnvOrDefault("MONGODB_ARTIFACT_COLLECTION", "sync_artifacts"),

		// Gallery API configuration
		GalleryBaseURL: getEnvOrDefault("GALLERY_API_BASE_URL", "https://gallery.example.com/api/v2"),
		GalleryToken:   galleryToken,

		// Job registry configuration
		RegistryBaseURL: getEnvOrDefault("REGISTRY_BASE_URL", "https://registry.example.com/api"),

		// Sync engine tuning
		SyncBatchSize:     batchSize,
		SyncMaxElapsed:    maxElapsed,
		SyncMemoryLimitMB: memoryLimitMB,
		SyncBatchYield:    batchYield,

		// Tracing configuration
		TracingEnabled:  getEnvOrDefault("TRACING_ENABLED", "false") == "true",
		TracingEndpoint: getEnvOrDefault("TRACING_ENDPOINT", "localhost:4317"),
	}

	return nil
}

// getEnvOrDefault returns environment variable value or default if not set
func getEnvOrDefault(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}
