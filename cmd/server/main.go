package main

import (
	"database/sql"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"
	config "github.com/voicedeck/postqueue/configs"
	"github.com/voicedeck/postqueue/internal/api/handlers"
	"github.com/voicedeck/postqueue/internal/api/middleware"
	job "github.com/voicedeck/postqueue/internal/jobs"
	"github.com/voicedeck/postqueue/internal/publisher"
	"github.com/voicedeck/postqueue/internal/queue"
	"github.com/voicedeck/postqueue/internal/repository"
	"github.com/voicedeck/postqueue/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	if err := runMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	queueRepo := repository.NewQueueRepository(db)
	quotaRepo := repository.NewQuotaRepository(db)
	credentialRepo := repository.NewCredentialRepository(db)
	oauthStateRepo := repository.NewOAuthStateRepository(db)
	mediaAssetRepo := repository.NewMediaAssetRepository(db)
	itemMediaRepo := repository.NewItemMediaRepository(db)
	settingsRepository := repository.NewSettingsRepository(db)
	postingHistoryRepo := repository.NewPostingHistoryRepository(db)
	apiKeyRepository := repository.NewApiKeyRepository(db)

	authService := service.NewAuthService(*cfg, userRepo)
	userService := service.NewUserService(userRepo)
	r2Service := service.NewR2Service(*cfg)
	linkedinService := service.NewLinkedinService(*cfg)
	credentialService := service.NewCredentialService(*cfg, credentialRepo, oauthStateRepo, linkedinService)
	quotaService := service.NewQuotaService(quotaRepo, settingsRepository)
	schedulerService := service.NewSchedulerService(queueRepo, settingsRepository)
	assetService := service.NewAssetService(mediaAssetRepo, itemMediaRepo, *r2Service)
	queueService := service.NewQueueService(db, queueRepo, mediaAssetRepo, itemMediaRepo, settingsRepository, postingHistoryRepo, schedulerService)
	approvalService := service.NewApprovalService(queueRepo, schedulerService)
	settingsService := service.NewSettingsService(settingsRepository)
	apiKeyService := service.NewApiKeyService(apiKeyRepository)

	authMiddleware := middleware.NewAuthMiddleware(*cfg, apiKeyService)

	auth := handlers.NewAuthHandler(*cfg, authService)
	app.Get("/login", auth.Login)
	app.Get("/login/callback", auth.LoginCallbackHandler)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	user := handlers.NewUserHandler(userService)
	api.Get("/user/info", user.GetUserInfo)
	api.Post("/user/remove", user.RemoveUser)

	oauth := handlers.NewOAuthHandler(*cfg, credentialService)
	api.Get("/linkedin/connect", oauth.Connect)
	api.Get("/linkedin/callback", oauth.Callback)
	api.Post("/linkedin/disconnect", oauth.Disconnect)
	api.Get("/linkedin/status", oauth.Status)

	queueH := handlers.NewQueueHandler(queueService, approvalService)
	api.Post("/queue", queueH.Enqueue)
	api.Get("/queue", queueH.List)
	api.Get("/queue/stats", queueH.Stats)
	api.Get("/queue/history", queueH.History)
	api.Post("/queue/approve", queueH.BulkApprove)
	api.Put("/queue/:id/approve", queueH.Approve)
	api.Put("/queue/:id/reject", queueH.Reject)
	api.Patch("/queue/:id", queueH.Reschedule)
	api.Delete("/queue/:id", queueH.Cancel)

	limits := handlers.NewLimitsHandler(quotaService)
	api.Get("/limits", limits.GetLimits)

	assets := handlers.NewAssetsHandler(assetService)
	api.Post("/assets", assets.Upload)
	api.Get("/assets", assets.List)

	settings := handlers.NewSettingsHandler(settingsService)
	api.Get("/settings/info", settings.GetSettingsInfo)
	api.Post("/settings/update", settings.UpdateSettings)

	apiKeys := handlers.NewApiKeyHandler(apiKeyService)
	api.Post("/api_key/new", apiKeys.CreateApiKey)
	api.Get("/api_key/list", apiKeys.ListKeys)
	api.Post("/api_key/remove", apiKeys.RemoveAPIKey)

	// publisher and queue worker
	pub := publisher.New(cfg.Publisher, queueRepo, postingHistoryRepo, credentialService, quotaService, linkedinService, assetService)
	queueW := queue.NewQueue(pub)

	// cron jobs
	refreshTokenJob := job.NewTokenRefreshJob(credentialRepo, credentialService)
	drainJob := job.NewDrainJob(queueRepo, client)
	stateCleanupJob := job.NewStateCleanupJob(oauthStateRepo)

	c := cron.New()
	c.AddFunc("@every 00h01m00s", drainJob.Tick)
	c.AddFunc("@every 00h10m00s", refreshTokenJob.RefreshTokens)
	c.AddFunc("@every 01h00m00s", stateCleanupJob.CleanupStates)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishUser, queueW.HandlePublishUserTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func runMigrations(db *sql.DB, sourceURL string) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(sourceURL, "postgres", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
