package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"

	"github.com/noah-isme/cseasy-api/internal/config"
	"github.com/noah-isme/cseasy-api/internal/database"
	"github.com/noah-isme/cseasy-api/internal/handler"
	"github.com/noah-isme/cseasy-api/internal/middleware"
	"github.com/noah-isme/cseasy-api/internal/repository"
	"github.com/noah-isme/cseasy-api/internal/service"
	"github.com/noah-isme/cseasy-api/pkg/ai"
	"github.com/noah-isme/cseasy-api/pkg/knowledge"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("server", "chat").Logger()

	base, err := knowledge.Load(cfg.KnowledgeBasePath)
	if err != nil {
		log.Fatalf("failed to load knowledge base: %v", err)
	}
	logger.Info().Str("path", cfg.KnowledgeBasePath).Int("user_blocks", base.Len()).Msg("knowledge base loaded")

	transcripts := repository.NewMemoryTranscriptRepository(cfg.KnowledgeChatMaxTurns)
	if cfg.RedisURL != "" {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		transcripts = repository.NewRedisTranscriptRepository(redisClient, "knowledge:transcript", cfg.KnowledgeChatMaxTurns, 24*time.Hour)
	}

	var model ai.Assistant
	if cfg.OpenAIAPIKey != "" {
		assistant, err := ai.NewOpenAIAssistant(ai.OpenAIConfig{
			APIKey:    cfg.OpenAIAPIKey,
			Model:     cfg.AIModel,
			MaxTokens: 900,
			Timeout:   cfg.AITimeout,
			Logger:    logger,
		})
		if err != nil {
			log.Fatalf("failed to create openai assistant: %v", err)
		}
		model = assistant
	} else {
		logger.Warn().Msg("openai api key missing, chat replies will fail")
	}

	chatService := service.NewKnowledgeChatService(model, base, transcripts, cfg.KnowledgeMaxContextChars, logger)

	app := fiber.New(fiber.Config{AppName: cfg.AppName + " Chat"})
	app.Use(recover.New())
	app.Use(middleware.CorrelationID())
	app.Use(cors.New())
	handler.NewKnowledgeChatHandler(chatService, logger).Register(app)

	go func() {
		if err := app.Listen(cfg.ChatAddress()); err != nil {
			log.Fatalf("failed to start chat server: %v", err)
		}
	}()

	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}
	log.Println("chat server stopped")
}
