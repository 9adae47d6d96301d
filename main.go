package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"mediaondemand/config"
	"mediaondemand/conversion"
	"mediaondemand/handlers"
	"mediaondemand/services"
)

func main() {
	cfg := config.Load()

	logger, err := config.NewLogger(cfg)
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer logger.Sync()

	logger.Info("Starting media conversion service", zap.String("env", cfg.Env), zap.String("port", cfg.Port))

	ctx := context.Background()

	var ebookStore, videoStore conversion.ObjectStore
	if cfg.StorageConfigured() {
		store, err := services.NewS3Store(cfg, cfg.StorageBucket)
		if err != nil {
			logger.Fatal("Failed to create storage client", zap.Error(err))
		}
		ebookStore = store
		logger.Info("Storage enabled", zap.String("bucket", cfg.StorageBucket), zap.String("endpoint", cfg.S3Endpoint))

		if cfg.VideoStorageConfigured() {
			videos, err := services.NewS3Store(cfg, cfg.VideoBucket)
			if err != nil {
				logger.Fatal("Failed to create video storage client", zap.Error(err))
			}
			videoStore = videos
		}
	} else {
		logger.Warn("Storage not configured, artifacts will not be persisted")
	}

	var events conversion.EventLog = services.NewLogEventLog(logger)
	if cfg.DatabaseURL != "" {
		dbSvc, err := services.NewDatabaseService(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", zap.Error(err))
		}
		defer dbSvc.Close()

		if err := dbSvc.EnsureSchema(ctx); err != nil {
			logger.Fatal("Failed to prepare event table", zap.Error(err))
		}
		events = dbSvc
		logger.Info("Connected to database successfully")
	}

	var assets conversion.AssetIndex
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = services.ConnectRedis(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		assets = services.NewAssetCache(redisClient, cfg.RedisPrefix)
		logger.Info("Connected to Redis successfully", zap.String("addr", cfg.RedisAddr))
	}

	var search conversion.SearchIndex
	if cfg.AlgoliaConfigured() {
		search = services.NewAlgoliaIndex(cfg.AlgoliaAppID, cfg.AlgoliaAdminKey, cfg.AlgoliaIndexName)
	}

	var jobs conversion.JobService
	if cfg.CloudConvertConfigured() {
		jobs = services.NewCloudConvertService(cfg.CloudConvertBaseURL, cfg.CloudConvertAPIKey)
	} else {
		logger.Warn("CLOUDCONVERT_API_KEY not set, ebook conversion limited to cached artifacts")
	}

	var transcoder conversion.Transcoder
	if cfg.MuxConfigured() {
		transcoder = services.NewMuxService(cfg.MuxBaseURL, cfg.MuxTokenID, cfg.MuxTokenSecret)
	} else {
		logger.Warn("MUX_TOKEN_ID or MUX_TOKEN_SECRET not set, video conversion disabled")
	}

	fetcher := services.NewRemoteFetcher(cfg.AllowedHosts)

	ebooks := conversion.NewEbookConverter(jobs, ebookStore, fetcher, events, logger, conversion.EbookOptions{
		Budget:          cfg.ConversionBudget(),
		PollInterval:    cfg.PollInterval(),
		SignedURLExpiry: cfg.SignedURLExpiry(),
	})
	videos := conversion.NewVideoConverter(transcoder, videoStore, assets, search, events, logger, conversion.VideoOptions{
		SignedURLExpiry: cfg.SignedURLExpiry(),
	})

	router := handlers.NewRouter(
		handlers.NewConvertHandler(ebooks, videos, logger),
		handlers.NewDocumentHandler(fetcher, logger),
		logger,
	)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
		// Ebook requests block for up to the conversion budget plus persistence.
		WriteTimeout: cfg.ConversionBudget() + 60*time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Server failed", zap.Error(err))
		}
	}()
	logger.Info("Service is ready to accept conversions", zap.String("address", server.Addr))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutdown signal received, draining requests...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("Shutdown timeout, forcing exit", zap.Error(err))
	} else {
		logger.Info("All requests completed gracefully")
	}

	if redisClient != nil {
		redisClient.Close()
	}
	logger.Info("Conversion service stopped")
}
