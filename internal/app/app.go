package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/config"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/database"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/encoder"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/handlers"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/middleware"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/services"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/store"
	"github.com/AnthonyRajuKondaveeti/cochain.ai-sub000/internal/validation"
)

// App wires configuration, storage, the recommendation/bandit/A-B
// service layer, and the HTTP surface together into one running
// process.
type App struct {
	config *config.Config
	logger *logrus.Logger
	db     *database.Database
	router *gin.Engine
}

func New(cfg *config.Config) (*App, error) {
	app := &App{
		config: cfg,
		logger: setupLogger(cfg),
	}

	db, err := database.New(cfg, app.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	st := store.NewPostgres(db.PG, db.Redis, app.logger)
	enc := encoder.NewDeterministic()

	reward := services.NewRewardCalculator(app.logger)
	retriever := services.NewSimilarityRetriever(st, enc, app.logger)
	bandit := services.NewBanditStore(st, app.logger)
	policy := services.NewBanditPolicy(bandit, cfg.Bandit, app.logger)
	pipeline := services.NewPipeline(st, retriever, policy, cfg.Bandit, cfg.Pipeline, app.logger)
	trainer := services.NewTrainer(st, bandit, reward, cfg.Training, app.logger)
	assignment := services.NewABAssignmentService(st, app.logger)
	significance := services.NewABSignificanceService(st, cfg.ABTesting, reward, app.logger)
	ingest := services.NewIngestService(st, bandit, reward, app.logger)

	schemaValidator, err := validation.NewSchemaValidator()
	if err != nil {
		return nil, fmt.Errorf("failed to compile request schemas: %w", err)
	}

	healthHandler := handlers.NewHealthHandler(app.logger, db.PG, db.Redis)
	recommendationHandler := handlers.NewRecommendationHandler(pipeline, assignment, app.logger)
	interactionHandler := handlers.NewInteractionHandler(ingest, app.logger)
	abTestHandler := handlers.NewABTestHandler(st, significance, schemaValidator, app.logger, newExperimentID)
	trainingHandler := handlers.NewTrainingHandler(trainer, cfg.Training, app.logger)

	app.setupRouter(healthHandler, recommendationHandler, interactionHandler, abTestHandler, trainingHandler)

	return app, nil
}

func newExperimentID() string {
	return "exp_" + uuid.New().String()
}

func (a *App) Router() *gin.Engine {
	return a.router
}

func (a *App) Shutdown(ctx context.Context) error {
	a.logger.Info("shutting down application")

	if err := a.db.Close(); err != nil {
		a.logger.WithError(err).Error("error closing database connections")
		return err
	}

	return nil
}

func setupLogger(cfg *config.Config) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Logging.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Logging.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	return logger
}

func (a *App) setupRouter(
	health *handlers.HealthHandler,
	recommendation *handlers.RecommendationHandler,
	interaction *handlers.InteractionHandler,
	abTest *handlers.ABTestHandler,
	training *handlers.TrainingHandler,
) {
	if a.config.Server.Mode == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(middleware.Logger(a.logger))
	router.Use(middleware.Recovery(a.logger))
	router.Use(middleware.CORS(a.config))
	router.Use(middleware.CompressionMiddleware())

	router.GET("/health", health.Check)

	if a.config.Monitoring.Enabled {
		router.GET(a.config.Monitoring.MetricsPath, gin.WrapH(promhttp.Handler()))
	}

	api := router.Group("/api/v1")
	{
		api.GET("/recommendations/:userId", recommendation.Get)
		api.POST("/interactions", interaction.Record)

		ab := api.Group("/ab")
		{
			ab.POST("/start", abTest.Start)
			ab.GET("/dashboard", abTest.Dashboard)
			ab.POST("/:testId/end", abTest.End)
		}

		api.POST("/train", training.Train)
	}

	a.router = router
}
