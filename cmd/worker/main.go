package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/config"
	"github.com/terrain-microservice/internal/infrastructure/mapbox"
	"github.com/terrain-microservice/internal/pkg/logger"
	"github.com/terrain-microservice/internal/repository/cache"
	"github.com/terrain-microservice/internal/repository/postgres"
	redisRepo "github.com/terrain-microservice/internal/repository/redis"
	"github.com/terrain-microservice/internal/usecase"
	"github.com/terrain-microservice/internal/worker"
	"github.com/terrain-microservice/internal/worker/jobs"
)

const shutdownTimeout = 30 * time.Second

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	if !cfg.Worker.Enabled {
		fmt.Println("Worker is disabled in configuration. Set WORKER_ENABLED=true to enable.")
		os.Exit(0)
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "terrain-worker")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Terrain Job Worker")
	log.Info("Configuration loaded",
		zap.String("consumer_group", cfg.Worker.ConsumerGroup),
		zap.Int64("batch_size", cfg.Worker.BatchSize),
		zap.Int("concurrency", cfg.Worker.Concurrency),
		zap.Duration("stale_job_timeout", cfg.Worker.StaleJobTimeout),
		zap.Duration("sweep_interval", cfg.Worker.SweepInterval))

	// 3. Connect to PostgreSQL
	db, err := postgres.New(&cfg.Database, log)
	if err != nil {
		log.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Failed to close PostgreSQL connection", zap.Error(err))
		}
	}()

	// 4. Connect to Redis
	redisClient, err := cache.NewRedis(&cfg.Redis, "terrain-worker", log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Initialize repositories
	demRepo := postgres.NewDEMRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), cfg.Redis.StreamMaxLen, log)
	elevation := mapbox.NewTerrainRGBClient(&cfg.Mapbox, cfg.Analysis.MaxGridCells, log)

	// 6. Initialize use cases
	demUC := usecase.NewDEMUseCase(postgres.NewContourRepository(db), demRepo, elevation, cacheRepo, cfg.Analysis, log)
	analysisUC := usecase.NewAnalysisUseCase(demRepo, postgres.NewAnalysisRepository(db), cacheRepo, cfg.Analysis, cfg.Cache.ResultTTL, log)
	profileUC := usecase.NewProfileUseCase(demRepo, postgres.NewProfileRepository(db), cfg.Analysis, log)
	jobUC := usecase.NewJobUseCase(jobRepo, streamRepo, demUC, analysisUC, profileUC, cfg.Worker.StaleJobTimeout, log)

	// 7. Register workers
	workerManager := worker.NewWorkerManager(log, shutdownTimeout)
	workerManager.Register(jobs.NewJobWorker(
		streamRepo,
		jobUC,
		cfg.Worker.ConsumerGroup,
		cfg.Worker.BatchSize,
		cfg.Worker.StreamReadTimeout,
		cfg.Worker.Concurrency,
		log,
	))
	workerManager.Register(jobs.NewStaleJobSweeper(jobUC, cfg.Worker.SweepInterval, log))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := workerManager.Start(ctx); err != nil {
		log.Fatal("Failed to start workers", zap.Error(err))
	}

	// 8. Wait for a shutdown signal or for all workers to exit
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sigChan:
		log.Info("Received shutdown signal")
	case <-workerManager.Done():
		log.Error("All workers exited")
	}

	// Stop сначала дает начатым задачам завершиться, затем отменяем контекст
	if err := workerManager.Stop(); err != nil {
		log.Error("Error stopping workers", zap.Error(err))
	}
	cancel()

	log.Info("Worker shutdown complete")
}
