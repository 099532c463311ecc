package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/terrain-microservice/internal/config"
	"github.com/terrain-microservice/internal/delivery/http/handler"
	"github.com/terrain-microservice/internal/delivery/http/middleware"
	apperrors "github.com/terrain-microservice/internal/pkg/errors"
	"github.com/terrain-microservice/internal/pkg/utils"
)

// Handlers - обработчики, подключаемые к серверу
type Handlers struct {
	Health   *handler.HealthHandler
	DEM      *handler.DEMHandler
	Analysis *handler.AnalysisHandler
	Job      *handler.JobHandler
}

// Server - HTTP сервер на основе Fiber
type Server struct {
	app      *fiber.App
	config   *config.Config
	logger   *zap.Logger
	handlers Handlers
}

// NewServer - создание нового HTTP сервера
func NewServer(cfg *config.Config, logger *zap.Logger, handlers Handlers) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Terrain Analysis Microservice",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:      app,
		config:   cfg,
		logger:   logger,
		handlers: handlers,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App возвращает fiber приложение (для тестов через app.Test)
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	api := s.app.Group("/api/v1")

	api.Get("/health", s.handlers.Health.Health)

	// DEM
	dems := api.Group("/dems")
	dems.Post("/generate", s.handlers.DEM.Generate)
	dems.Post("/import", s.handlers.DEM.ImportASCII)
	dems.Post("/terrain-rgb", s.handlers.DEM.ImportTerrainRGB)
	dems.Get("/:id/grid.asc", s.handlers.DEM.ExportASCII)
	dems.Get("/:id/analyses", s.handlers.Analysis.History)
	dems.Delete("/:id/cache", s.handlers.DEM.PurgeCache)
	dems.Get("/:id", s.handlers.DEM.Get)
	api.Get("/projects/:project_id/dems", s.handlers.DEM.ListByProject)

	// Analysis
	analysis := api.Group("/analysis")
	analysis.Post("/slope", s.handlers.Analysis.Slope)
	analysis.Post("/aspect", s.handlers.Analysis.Aspect)
	analysis.Post("/profile", s.handlers.Analysis.Profile)
	api.Get("/profiles/:id/csv", s.handlers.Analysis.ProfileCSV)
	api.Get("/profiles/:id/json", s.handlers.Analysis.ProfileJSON)

	// Jobs
	api.Post("/jobs/:type", s.handlers.Job.Submit)
	api.Get("/jobs/:id", s.handlers.Job.Get)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки fiber (404 маршрута, 413 тела) в формате AppError
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		if e, ok := err.(*fiber.Error); ok {
			code = e.Code
		}

		logger.Error("HTTP Error",
			zap.String("path", c.Path()),
			zap.Int("status", code),
			zap.Error(err),
		)

		appErr := apperrors.ErrInternalServer
		if code != fiber.StatusInternalServerError {
			appErr = apperrors.New(httpCode(code), err.Error(), code)
		}
		return c.Status(appErr.StatusCode).JSON(utils.ErrorResponse{Error: appErr})
	}
}

func httpCode(status int) string {
	switch status {
	case fiber.StatusNotFound:
		return "NOT_FOUND"
	case fiber.StatusMethodNotAllowed:
		return "METHOD_NOT_ALLOWED"
	case fiber.StatusRequestEntityTooLarge:
		return "REQUEST_TOO_LARGE"
	default:
		return "HTTP_ERROR"
	}
}
