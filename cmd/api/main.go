package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/clipforge/pipeline/internal/api"
	"github.com/clipforge/pipeline/internal/config"
	"github.com/clipforge/pipeline/internal/db"
	"github.com/clipforge/pipeline/internal/queue"
	"github.com/clipforge/pipeline/internal/services"
	"github.com/clipforge/pipeline/internal/storage"
	"github.com/clipforge/pipeline/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if cfg.AppEnv == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Str("env", cfg.AppEnv).Msg("starting clipforge pipeline")

	database, err := db.New(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer database.Close()

	migrateCtx, cancelMigrate := context.WithTimeout(context.Background(), 30*time.Second)
	if err := database.Migrate(migrateCtx); err != nil {
		cancelMigrate()
		log.Fatal().Err(err).Msg("failed to run migrations")
	}
	cancelMigrate()
	log.Info().Msg("connected to database")

	// Fail fast when the broker is down instead of letting the stage servers
	// spin on connection errors.
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	pingCtx, cancelPing := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		cancelPing()
		log.Fatal().Err(err).Str("addr", cfg.RedisAddr).Msg("failed to reach redis")
	}
	cancelPing()
	redisClient.Close()
	log.Info().Str("addr", cfg.RedisAddr).Msg("redis reachable")

	q := queue.New(cfg.RedisAddr, cfg.RedisPassword)
	defer q.Close()

	stor, err := storage.New(storage.Options{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize storage")
	}
	setupCtx, cancelSetup := context.WithTimeout(context.Background(), 15*time.Second)
	if err := stor.EnsureBucket(setupCtx); err != nil {
		cancelSetup()
		log.Fatal().Err(err).Str("bucket", cfg.StorageBucket).Msg("failed to ensure bucket")
	}
	cancelSetup()
	log.Info().Str("bucket", cfg.StorageBucket).Msg("storage ready")

	handler := api.NewHandler(database, q, stor)
	router := api.NewRouter(handler, api.RouterConfig{
		BackendAPIKey:      cfg.BackendAPIKey,
		CorsAllowedOrigins: cfg.CorsAllowedOrigins,
	})

	if cfg.BackendAPIKey == "" {
		log.Warn().Msg("no BACKEND_API_KEY set, API is unprotected (dev mode)")
	}

	server := &http.Server{
		Addr:    ":" + cfg.APIPort,
		Handler: router,
	}

	var w *worker.Worker
	if cfg.WorkerEnabled {
		speechReg := buildSpeechRegistry(cfg)
		assetChain := buildAssetChain(cfg)

		ffmpegSvc, err := services.NewFFmpegService(cfg.FFmpegPath, cfg.FFprobePath, cfg.TempDir, cfg.WatermarkText)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to initialize ffmpeg service")
		}

		w = worker.New(database, q, stor, speechReg, assetChain, ffmpegSvc, worker.Concurrency{
			Segment: cfg.SegmentConcurrency,
			Speech:  cfg.SpeechConcurrency,
			Assets:  cfg.AssetConcurrency,
			Compose: cfg.ComposeConcurrency,
			Export:  cfg.ExportConcurrency,
		})
		if err := w.Start(); err != nil {
			log.Fatal().Err(err).Msg("failed to start stage workers")
		}
		log.Info().Msg("stage workers started")
	}

	go func() {
		log.Info().Str("port", cfg.APIPort).Msg("API server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")

	if w != nil {
		w.Shutdown()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shut down")
	}

	log.Info().Msg("server exited")
}

// buildSpeechRegistry constructs every provider whose credentials are
// configured. The silent generator is always present as the fallback.
func buildSpeechRegistry(cfg *config.Config) *services.SpeechRegistry {
	var providers []services.SpeechProvider
	if cfg.ElevenLabsKey != "" {
		providers = append(providers, services.NewElevenLabsProvider(cfg.ElevenLabsKey))
		log.Info().Msg("speech provider: elevenlabs")
	}
	if cfg.AzureSpeechKey != "" {
		providers = append(providers, services.NewAzureSpeechProvider(cfg.AzureSpeechKey, cfg.AzureSpeechRegion))
		log.Info().Str("region", cfg.AzureSpeechRegion).Msg("speech provider: azure")
	}
	if len(providers) == 0 {
		log.Warn().Msg("no speech API configured, all narration will be silent")
	}
	return services.NewSpeechRegistry(services.NewSilenceProvider(), providers...)
}

// buildAssetChain orders the configured stock providers by capability,
// Pexels first since it serves video. The offline generator is the chain's
// fallback, consulted only after the stock providers come up empty for both
// the scene query and the generic retry.
func buildAssetChain(cfg *config.Config) *services.AssetChain {
	var providers []services.AssetProvider
	if cfg.PexelsKey != "" {
		providers = append(providers, services.NewPexelsProvider(cfg.PexelsKey))
		log.Info().Msg("asset provider: pexels")
	}
	if cfg.UnsplashKey != "" {
		providers = append(providers, services.NewUnsplashProvider(cfg.UnsplashKey))
		log.Info().Msg("asset provider: unsplash")
	}
	if len(providers) == 0 {
		log.Warn().Msg("no stock media API configured, all visuals will be generated offline")
	}
	return services.NewAssetChain(services.NewOfflineProvider(), providers...)
}
