package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/camden-git/echobackend/config"
	"github.com/camden-git/echobackend/database"
	"github.com/camden-git/echobackend/handlers"
	"github.com/camden-git/echobackend/media"
	"github.com/camden-git/echobackend/realtime"
	"github.com/camden-git/echobackend/repository"
	"github.com/camden-git/echobackend/services"
	"github.com/camden-git/echobackend/workers"
)

func main() {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	err := godotenv.Load()
	if err != nil {
		log.Infof("No .env file found or error loading: %v", err)
	}
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	if dir := filepath.Dir(cfg.DatabasePath); dir != "." {
		log.Infof("Ensuring database directory exists: %s", dir)
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("FATAL: Failed to create database directory %s: %v", dir, err)
		}
	}

	gormDB, err := database.InitGormDB(cfg.DatabasePath)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize database: %v", err)
	}
	if err := database.AutoMigrateModels(gormDB); err != nil {
		log.Fatalf("FATAL: Failed to migrate database: %v", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		log.Fatalf("FATAL: Failed to get underlying database handle: %v", err)
	}
	defer sqlDB.Close()

	// single process: anything still processing belongs to a previous run
	swept, err := database.FailStaleEntries(sqlDB, time.Now())
	if err != nil {
		log.Errorf("Failed to sweep stale entries: %v", err)
	} else if swept > 0 {
		log.Warnf("Marked %d stale processing entries as failed", swept)
	}

	mediaStore, err := media.NewR2Store(media.R2Options{
		Endpoint:  cfg.StorageEndpoint,
		Region:    cfg.StorageRegion,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize media store: %v", err)
	}

	if cfg.HumeAPIKey == "" {
		log.Warn("HUME_API_KEY is not set, emotion analysis requests will be rejected")
	}
	if cfg.OpenAIAPIKey == "" {
		log.Warn("OPENAI_API_KEY is not set, reflection requests will be rejected")
	}

	hume := services.NewHumeClient(cfg.HumeBaseURL, cfg.HumeAPIKey, cfg.HumeRequestsPerSecond, &http.Client{Timeout: 15 * time.Second})
	extractor := services.NewSignalExtractor(mediaStore, hume, services.ExtractorOptions{
		URLTTL:       cfg.PresignExpiry,
		PollInterval: cfg.HumePollInterval,
		PollTimeout:  cfg.HumePollTimeout,
	})
	generator := services.NewReflectionGenerator(
		services.NewOpenAIProvider(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel),
		cfg.GenerationTimeout,
	)

	hub := realtime.NewHub()
	go hub.Run()

	entryRepo := repository.NewEntryRepository(gormDB)
	pipeline := services.NewPipeline(extractor, generator, entryRepo, hub)

	log.Infof("Initializing check-in worker pool (Workers: %d, Queue Size: %d)...", cfg.NumCheckinWorkers, cfg.CheckinQueueSize)
	checkinProcessor := workers.NewCheckinProcessor(pipeline, cfg.CheckinQueueSize, cfg.NumCheckinWorkers)

	router := handlers.NewRouter(handlers.RouterOptions{
		AllowedOrigins: cfg.AllowedOrigins,
		JWTSecret:      []byte(cfg.JWTSecret),
		Checkins:       &handlers.CheckinHandler{Entries: entryRepo, Queue: checkinProcessor},
		Uploads:        &handlers.UploadHandler{Store: mediaStore, Expiry: cfg.PresignExpiry},
		Hub:            hub,
	})

	serverAddr := ":" + cfg.Port
	log.Infof("Using database: %s", cfg.DatabasePath)
	log.Infof("Hume poll interval %s, budget %s; generation budget %s", cfg.HumePollInterval, cfg.HumePollTimeout, cfg.GenerationTimeout)
	log.Infof("Server listening on %s", serverAddr)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 35 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("FATAL: Server error: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	log.Info("Shutting down server...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Errorf("Server shutdown error: %v", err)
	}
	checkinProcessor.Stop()
	log.Info("Server stopped")
}
