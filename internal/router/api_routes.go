package router

import (
	"sheetcheck/internal/config"
	"sheetcheck/internal/handler"
	"sheetcheck/internal/middleware"
	"sheetcheck/internal/repository"
	"sheetcheck/internal/service"
	"sheetcheck/internal/worker"

	"github.com/gofiber/fiber/v2"
	"github.com/hibiken/asynq"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

func SetupAPIRoutes(
	router fiber.Router,
	db *sqlx.DB,
	redis *redis.Client,
	cfg *config.Config,
) {
	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	schemaRepo := repository.NewSchemaRepository(db)
	runRepo := repository.NewRunRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg)
	workbookService := service.NewWorkbookService(cfg)

	// Initialize Asynq client (optional - only if Redis is available)
	var asynqClient *asynq.Client
	if redis != nil {
		asynqClient = asynq.NewClient(asynq.RedisClientOpt{
			Addr:     cfg.AsynqRedisAddr,
			Password: cfg.AsynqRedisPassword,
			DB:       cfg.AsynqRedisDB,
		})
	}

	progress := worker.NewProgressPublisher(redis)

	// Initialize handlers
	authHandler := handler.NewAuthHandler(authService)
	validationHandler := handler.NewValidationHandler(runRepo, schemaRepo, workbookService, asynqClient, progress, cfg)

	// Public routes
	auth := router.Group("/auth")
	auth.Post("/login", authHandler.Login)
	auth.Post("/register", authHandler.Register)
	auth.Post("/logout", authHandler.Logout)

	// Protected routes
	protected := router.Group("", middleware.AuthMiddleware(cfg))

	// Auth routes
	protected.Get("/auth/me", authHandler.Me)

	// Dashboard routes
	protected.Get("/dashboard/stats", validationHandler.Stats)

	// Schema registry routes
	protected.Get("/entity-types", validationHandler.ListEntityTypes)

	// Validation run routes. The template and export routes must stay above
	// the :code routes or fiber will treat them as run codes.
	validations := protected.Group("/validations")
	validations.Post("/", validationHandler.Upload)
	validations.Get("/", validationHandler.ListRuns)
	validations.Get("/template", validationHandler.DownloadTemplate)
	validations.Get("/export", validationHandler.ExportRuns)
	validations.Get("/:code", validationHandler.GetRun)
	validations.Get("/:code/report", validationHandler.GetReport)
	validations.Get("/:code/progress", validationHandler.GetProgress)
	validations.Get("/:code/download", validationHandler.DownloadArtifact)
	validations.Delete("/:code", middleware.AdminOnly(), validationHandler.DeleteRun)
}
