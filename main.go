package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/Qwizi/cs2-battle-bot/handlers"
	"github.com/Qwizi/cs2-battle-bot/middleware"
	"github.com/Qwizi/cs2-battle-bot/models"
	"github.com/Qwizi/cs2-battle-bot/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, reading environment variables directly")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("failed to initialize logger:", err)
	}
	defer logger.Sync()

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		logger.Fatal("DATABASE_URL environment variable not set")
	}

	apiKey := os.Getenv("API_KEY")
	if apiKey == "" {
		logger.Fatal("API_KEY environment variable not set")
	}

	webhookURL := os.Getenv("WEBHOOK_URL")
	if webhookURL == "" {
		logger.Fatal("WEBHOOK_URL environment variable not set")
	}
	webhookURL = strings.TrimRight(webhookURL, "/")

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		logger.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := db.AutoMigrate(
		&models.Guild{},
		&models.DiscordUser{},
		&models.SteamUser{},
		&models.Player{},
		&models.Team{},
		&models.Map{},
		&models.MapPool{},
		&models.MatchConfig{},
		&models.Server{},
		&models.Match{},
		&models.MapBan{},
		&models.MapPick{},
	); err != nil {
		logger.Fatal("failed to migrate database", zap.Error(err))
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	defer redisClient.Close()

	events := services.NewRedisPublisher(redisClient, logger)
	gateway := services.NewRconGateway(logger)

	matchService := services.NewMatchService(db, logger, events, gateway, webhookURL, apiKey)
	configService := services.NewConfigService(db, logger)
	playerService := services.NewPlayerService(db, logger)

	scheduler, err := matchService.StartExpiryScheduler(time.Hour)
	if err != nil {
		logger.Fatal("failed to start match expiry scheduler", zap.Error(err))
	}
	defer scheduler.Shutdown()

	app := fiber.New(fiber.Config{
		AppName: "cs2-battle-bot-api",
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	app.Use(middleware.APIKeyAuthMiddleware(apiKey, logger))

	handlers.SetupMatchRoutes(app, matchService)
	handlers.SetupConfigRoutes(app, configService)
	handlers.SetupPlayerRoutes(app, playerService)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8002"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			logger.Error("server error", zap.Error(err))
		}
	}()

	logger.Info("server running", zap.String("port", port))

	<-ctx.Done()
	logger.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
