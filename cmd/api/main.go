package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/cseasy-api/internal/config"
	"github.com/noah-isme/cseasy-api/internal/database"
	"github.com/noah-isme/cseasy-api/internal/handler"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/repository"
	"github.com/noah-isme/cseasy-api/internal/router"
	"github.com/noah-isme/cseasy-api/internal/seed"
	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/pkg/ai"
)

const transcriptTTL = 24 * time.Hour

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	students, err := openStudentStore(cfg)
	if err != nil {
		log.Fatalf("failed to open student store: %v", err)
	}

	catalog, err := seed.Apply(ctx, seed.Loader{CatalogPath: cfg.SeedCatalogPath, StudentsPath: cfg.SeedStudentsPath}, students, logger)
	if err != nil {
		log.Fatalf("failed to load seed data: %v", err)
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer natsConn.Drain()
	}

	transcripts := repository.NewMemoryTranscriptRepository(cfg.ChatMaxTurns)
	if redisClient != nil {
		transcripts = repository.NewRedisTranscriptRepository(redisClient, "assistant:transcript", cfg.ChatMaxTurns, transcriptTTL)
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	feedService := service.NewFeedService(redisClient, cfg.FeedChannel, natsConn, logger)
	feedService.Start(ctx)

	dashboardService := service.NewStudentDashboardService(catalog, students, redisClient, cfg.DashboardCacheTTL, logger)
	gateway := service.NewMutationGateway(students, dashboardService, feedService, logger)
	resolver := service.NewStudentResolver(students, logger)
	studentService := service.NewStudentService(catalog, students, logger)
	authService := service.NewAuthService(students, cfg.JWTSecret, cfg.JWTTTL, logger)
	calendarService := service.NewCalendarService(catalog, students, logger)
	integrityService := service.NewIntegrityService(catalog, students, logger)
	assistantService := service.NewAssistantService(newAssistantModel(cfg, logger), catalog, students, resolver, gateway, transcripts, logger)
	importer := service.NewSuggestionImporter(gateway, resolver, cfg.ImporterMaxAdded, logger)

	if _, err := integrityService.Check(ctx); err != nil {
		logger.Warn().Err(err).Msg("startup integrity check failed")
	}
	if cfg.IntegritySchedule != "" {
		scheduler, err := integrityService.Schedule(cfg.IntegritySchedule)
		if err != nil {
			log.Fatalf("invalid integrity schedule: %v", err)
		}
		defer scheduler.Stop()
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, JWTSecret: cfg.JWTSecret})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:             handler.NewAuthHandler(authService, validate, cfg.IsProduction(), logger),
		StudentHandler:          handler.NewStudentHandler(studentService, gateway, assistantService, calendarService, validate, logger),
		StudentDashboardHandler: handler.NewStudentDashboardHandler(dashboardService, logger),
		FeedHandler:             handler.NewFeedHandler(feedService, logger),
		AssistantHandler:        handler.NewAssistantHandler(assistantService, importer, validate, cfg.AssistantAllowDefault, logger),
		IntegrityHandler:        handler.NewIntegrityHandler(integrityService, cfg.AdminToken, logger),
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app, cancel)
}

func openStudentStore(cfg config.Config) (repository.StudentRepository, error) {
	var (
		db  *gorm.DB
		err error
	)
	switch cfg.StoreDriver {
	case config.StoreSQLite:
		db, err = database.ConnectSQLite(cfg.DatabaseURL)
	case config.StorePostgres:
		db, err = database.ConnectPostgres(cfg.DatabaseURL)
	default:
		return repository.NewMemoryStudentRepository(), nil
	}
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		return nil, err
	}
	return repository.NewGormStudentRepository(db), nil
}

// newAssistantModel returns nil when no key is configured so the assistant
// serves fallback content instead of failing every call.
func newAssistantModel(cfg config.Config, logger zerolog.Logger) ai.Assistant {
	if cfg.OpenAIAPIKey == "" {
		logger.Warn().Msg("openai api key missing, assistant runs in fallback mode")
		return nil
	}

	model, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.AIModel,
		Timeout: cfg.AITimeout,
		Logger:  logger,
	})
	if err != nil {
		logger.Warn().Err(err).Msg("openai assistant disabled")
		return nil
	}
	return model
}

func waitForShutdown(app *fiber.App, cancel context.CancelFunc) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()
	cancel()

	ctx, cancelShutdown := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
