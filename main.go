package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"coin-tycoon/handlers"
	"coin-tycoon/models"
	"coin-tycoon/services"
	"coin-tycoon/telegram"
	"coin-tycoon/utils"
	"coin-tycoon/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 1 * 1024 * 1024, // webhook updates and JSON bodies only
	})

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	// TranslateError turns the driver's unique-constraint violations into
	// gorm.ErrDuplicatedKey, which the referral engine depends on.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.User{},
		&models.Referral{},
		&models.Transaction{},
		&models.UserBusiness{},
		&models.BusinessStat{},
		&models.LeaderboardSnapshot{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	referralService := services.NewReferralService(db)
	userService := services.NewUserService(db, referralService)
	businessService := services.NewBusinessService(db)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	handlers.SetupUserRoutes(app, userService)
	handlers.SetupBusinessRoutes(app, businessService, userService)

	// Telegram webhook layer is optional; without a bot token the REST
	// surface still runs the full protocol.
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		webhook := &telegram.WebhookHandler{
			Users: userService,
			Bot:   telegram.NewBotClient(botToken),
		}
		telegram.SetupWebhookRoutes(app, webhook)
		log.Println("✅ Telegram webhook route registered")
	} else {
		log.Println("⚠️  TELEGRAM_BOT_TOKEN not set, webhook route disabled")
	}

	workers.StartLeaderboardSnapshots(db, 5*time.Minute, 100)

	// Audit archival is optional; it needs the R2 credentials.
	if os.Getenv("R2_BUCKET_NAME") != "" {
		if err := utils.InitR2(); err != nil {
			log.Fatal("failed to initialize R2 client:", err)
		}
		retention := 30 * 24 * time.Hour
		if raw := os.Getenv("AUDIT_RETENTION"); raw != "" {
			if parsed, err := time.ParseDuration(raw); err == nil {
				retention = parsed
			} else {
				log.Printf("⚠️  Invalid AUDIT_RETENTION=%q, using default %s", raw, retention)
			}
		}
		archiver := workers.NewAuditArchiveWorker(db, retention)
		go archiver.Start(ctx)
	} else {
		log.Println("⚠️  R2_BUCKET_NAME not set, audit archival disabled")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Printf("✅ Server running on http://localhost:%s", port)
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
