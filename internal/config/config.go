package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	APIPort            string
	WorkerEnabled      bool
	BackendAPIKey      string // API key for authenticating requests (empty = no auth, dev mode)
	CorsAllowedOrigins string // Comma-separated allowed origins (empty = *, dev mode)
	AppEnv             string // "development" or "production"

	// Database
	DatabaseURL string

	// Redis (queue substrate)
	RedisAddr     string
	RedisPassword string

	// Object storage (MinIO / S3-compatible)
	StorageEndpoint  string
	StorageAccessKey string
	StorageSecretKey string
	StorageBucket    string
	StorageUseSSL    bool

	// Speech providers, selected per render by voice settings, constructed once at startup
	ElevenLabsKey     string
	AzureSpeechKey    string
	AzureSpeechRegion string

	// Asset providers
	PexelsKey   string
	UnsplashKey string

	// Encoder
	FFmpegPath  string
	FFprobePath string
	TempDir     string

	// Watermark text drawn on non-premium output
	WatermarkText string

	// Per-stage worker concurrency
	SegmentConcurrency int
	SpeechConcurrency  int
	AssetConcurrency   int
	ComposeConcurrency int
	ExportConcurrency  int
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	_ = godotenv.Load()

	cfg := &Config{
		APIPort:            getEnv("API_PORT", "8080"),
		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		BackendAPIKey:      getEnv("BACKEND_API_KEY", ""),
		CorsAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", ""),
		AppEnv:             getEnv("APP_ENV", "production"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		StorageEndpoint:    getEnv("STORAGE_ENDPOINT", "localhost:9000"),
		StorageAccessKey:   getEnv("STORAGE_ACCESS_KEY", ""),
		StorageSecretKey:   getEnv("STORAGE_SECRET_KEY", ""),
		StorageBucket:      getEnv("STORAGE_BUCKET", "clipforge-renders"),
		StorageUseSSL:      getEnvBool("STORAGE_USE_SSL", false),
		ElevenLabsKey:      getEnv("ELEVENLABS_API_KEY", ""),
		AzureSpeechKey:     getEnv("AZURE_SPEECH_API_KEY", ""),
		AzureSpeechRegion:  getEnv("AZURE_SPEECH_REGION", "eastus"),
		PexelsKey:          getEnv("PEXELS_API_KEY", ""),
		UnsplashKey:        getEnv("UNSPLASH_ACCESS_KEY", ""),
		FFmpegPath:         getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:        getEnv("FFPROBE_PATH", "ffprobe"),
		TempDir:            getEnv("TEMP_DIR", "/tmp/clipforge"),
		WatermarkText:      getEnv("WATERMARK_TEXT", "ClipForge AI"),
		SegmentConcurrency: getEnvInt("SEGMENT_CONCURRENCY", 3),
		SpeechConcurrency:  getEnvInt("SPEECH_CONCURRENCY", 2),
		AssetConcurrency:   getEnvInt("ASSET_CONCURRENCY", 1),
		ComposeConcurrency: getEnvInt("COMPOSE_CONCURRENCY", 1),
		ExportConcurrency:  getEnvInt("EXPORT_CONCURRENCY", 1),
	}

	// Validate required fields
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.StorageAccessKey == "" || cfg.StorageSecretKey == "" {
		return nil, fmt.Errorf("STORAGE_ACCESS_KEY and STORAGE_SECRET_KEY are required")
	}

	// Speech and asset providers are optional: unconfigured names resolve to
	// the offline fallbacks, which keep the pipeline runnable without
	// credentials.

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		b, err := strconv.ParseBool(value)
		if err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		i, err := strconv.Atoi(value)
		if err == nil {
			return i
		}
	}
	return defaultValue
}
