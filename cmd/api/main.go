package main

// @title Terrain Analysis Microservice API
// @version 1.0.0
// @description Микросервис анализа рельефа. Строит цифровые модели рельефа (DEM) по изолиниям, импортирует их из ESRI ASCII Grid и тайлов Mapbox Terrain-RGB, считает уклоны, экспозицию склонов и профили высот.
// @description
// @description Основные возможности:
// @description - Интерполяция изолиний в сетку с проверкой качества (RMSE)
// @description - Классификация уклонов и полигоны непригодных для застройки участков
// @description - Экспозиция склонов по 8 направлениям
// @description - Профили высот вдоль линии с экспортом в CSV
// @description - Фоновые задачи через Redis Streams

// @contact.name API Support

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	_ "github.com/terrain-microservice/docs/swagger"
	"github.com/terrain-microservice/internal/config"
	httpDelivery "github.com/terrain-microservice/internal/delivery/http"
	"github.com/terrain-microservice/internal/delivery/http/handler"
	"github.com/terrain-microservice/internal/infrastructure/mapbox"
	"github.com/terrain-microservice/internal/pkg/logger"
	"github.com/terrain-microservice/internal/repository/cache"
	"github.com/terrain-microservice/internal/repository/postgres"
	redisRepo "github.com/terrain-microservice/internal/repository/redis"
	"github.com/terrain-microservice/internal/usecase"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("Failed to load config: %v", err))
	}

	// 2. Initialize logger
	log, err := logger.New(cfg.Log.Level, cfg.Log.Format, "terrain-api")
	if err != nil {
		panic(fmt.Sprintf("Failed to initialize logger: %v", err))
	}
	defer log.Sync()

	log.Info("Starting Terrain Analysis Microservice")
	log.Info("Configuration loaded",
		zap.String("env", cfg.Server.Env),
		zap.String("server_addr", cfg.GetServerAddr()),
		zap.String("interpolation", string(cfg.Analysis.Interpolation)),
		zap.Int("max_grid_cells", cfg.Analysis.MaxGridCells),
	)

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
	redisClient, err := cache.NewRedis(&cfg.Redis, "terrain-api", log)
	if err != nil {
		log.Fatal("Failed to connect to Redis", zap.Error(err))
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			log.Error("Failed to close Redis connection", zap.Error(err))
		}
	}()

	// 5. Initialize repositories
	contourRepo := postgres.NewContourRepository(db)
	demRepo := postgres.NewDEMRepository(db)
	analysisRepo := postgres.NewAnalysisRepository(db)
	profileRepo := postgres.NewProfileRepository(db)
	jobRepo := postgres.NewJobRepository(db)
	cacheRepo := cache.NewCacheRepository(redisClient)
	streamRepo := redisRepo.NewStreamRepository(redisClient.Client(), cfg.Redis.StreamMaxLen, log)
	elevation := mapbox.NewTerrainRGBClient(&cfg.Mapbox, cfg.Analysis.MaxGridCells, log)

	// 6. Initialize use cases
	demUC := usecase.NewDEMUseCase(contourRepo, demRepo, elevation, cacheRepo, cfg.Analysis, log)
	analysisUC := usecase.NewAnalysisUseCase(demRepo, analysisRepo, cacheRepo, cfg.Analysis, cfg.Cache.ResultTTL, log)
	profileUC := usecase.NewProfileUseCase(demRepo, profileRepo, cfg.Analysis, log)
	jobUC := usecase.NewJobUseCase(jobRepo, streamRepo, demUC, analysisUC, profileUC, cfg.Worker.StaleJobTimeout, log)

	// 7. Initialize HTTP server
	server := httpDelivery.NewServer(cfg, log, httpDelivery.Handlers{
		Health: handler.NewHealthHandler(map[string]handler.HealthChecker{
			"postgres": db,
			"redis":    redisClient,
		}, log),
		DEM:      handler.NewDEMHandler(demUC, log),
		Analysis: handler.NewAnalysisHandler(analysisUC, profileUC, log),
		Job:      handler.NewJobHandler(jobUC, log),
	})

	// 8. Start server in goroutine
	go func() {
		if err := server.Start(); err != nil {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// 9. Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error("Server shutdown error", zap.Error(err))
	}

	log.Info("Server stopped successfully")
}
