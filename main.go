package main

import (
	"context"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/sirupsen/logrus"

	"github.com/prabeshd/ipo-applier/config"
	"github.com/prabeshd/ipo-applier/database"
	"github.com/prabeshd/ipo-applier/handlers"
	"github.com/prabeshd/ipo-applier/jobs"
	"github.com/prabeshd/ipo-applier/meroshare"
	"github.com/prabeshd/ipo-applier/services"
)

func main() {
	// Load config
	cfg := config.LoadConfig()

	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logrus.SetLevel(level)
	}

	// Connect to database
	if err := database.Connect(cfg.DatabaseURL); err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	// Run migrations
	if err := database.Migrate("database/schema.sql"); err != nil {
		log.Printf("Migration warning: %v", err)
	}

	httpConfig := config.DefaultHTTPTimeoutConfig()

	// Credential directory
	directory, err := services.NewSheetsDirectory(context.Background(), cfg.SheetsCredentialsFile, cfg.SpreadsheetID, cfg.SheetName)
	if err != nil {
		log.Fatalf("Failed to initialize sheets directory: %v", err)
	}

	// Broker client and core services
	broker := meroshare.NewClient(cfg.MeroShareBaseURL, httpConfig.RequestTimeout, httpConfig.MaxRetries)
	intentService := services.NewIntentService()
	issueService := services.NewIssueService()
	applicationService := services.NewApplicationService(broker)

	// Notification channels
	telegram := services.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID, httpConfig.RequestTimeout, httpConfig.MaxRetries)
	whatsApp := services.NewTwilioWhatsAppNotifier(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioWhatsApp, httpConfig.RequestTimeout, httpConfig.MaxRetries)

	// One message service per chat channel so replies return on the
	// channel the message arrived on. Job summaries always go to
	// Telegram.
	telegramMessages := services.NewMessageService(directory, broker, applicationService, intentService, issueService, telegram, telegram)
	whatsAppMessages := services.NewMessageService(directory, broker, applicationService, intentService, issueService, whatsApp, telegram)

	// Calendar and floorsheet services
	calendarService := services.NewCalendarService(cfg.CalendarBaseURL, httpConfig.RequestTimeout, httpConfig.MaxRetries)
	floorsheetService := services.NewFloorsheetService(database.DB, cfg.FloorsheetBaseURL, cfg.GetFloorsheetPageSize(), httpConfig.RequestTimeout, httpConfig.MaxRetries)

	log.Println("IPO applier services initialized:")
	log.Printf("  - MeroShare client (base URL: %s, timeout: %v)", cfg.MeroShareBaseURL, httpConfig.RequestTimeout)
	log.Printf("  - Sheets directory (sheet: %s)", cfg.SheetName)
	log.Printf("  - Calendar feeds (base URL: %s)", cfg.CalendarBaseURL)
	log.Printf("  - Floorsheet fetcher (page size: %d)", cfg.GetFloorsheetPageSize())

	// Initialize jobs
	dailyApplyJob := jobs.NewDailyApplyJob(calendarService, directory, telegramMessages, telegram)
	floorsheetJob := jobs.NewFloorsheetJob(floorsheetService)

	// Initialize handlers
	webhookHandler := handlers.NewWebhookHandler(telegramMessages, whatsAppMessages)
	applyHandler := handlers.NewApplyHandler(telegramMessages)
	adminHandler := handlers.NewAdminHandler(calendarService, floorsheetService)

	// Start background jobs
	go func() {
		// Catch up on yesterday's floorsheet right away; applications
		// wait for their scheduled slot so restarts never double-apply.
		go floorsheetJob.Run()

		applyTicker := time.NewTicker(24 * time.Hour)
		floorsheetTicker := time.NewTicker(24 * time.Hour)

		for {
			select {
			case <-applyTicker.C:
				dailyApplyJob.Run()
			case <-floorsheetTicker.C:
				floorsheetJob.Run()
			}
		}
	}()

	// Setup Fiber
	app := fiber.New()

	// Middleware
	app.Use(logger.New())
	app.Use(cors.New())

	// Health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := database.HealthCheck(); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"status": "degraded",
				"error":  err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"status":    "ok",
			"timestamp": time.Now().Unix(),
		})
	})

	// Chat webhooks
	app.Post("/webhook", webhookHandler.TelegramWebhook)
	app.Post("/whatsapp", webhookHandler.WhatsAppWebhook)

	// Bulk apply routes
	app.Post("/apply", applyHandler.ApplyAll)
	app.Get("/apply/:user_name", applyHandler.ApplyAllByName)

	// Admin routes
	admin := app.Group("/admin")
	admin.Get("/calendar/check", adminHandler.CheckCalendar)
	admin.Post("/floorsheet/fetch", adminHandler.FetchFloorsheet)

	// Start server
	log.Printf("Server starting on port %s", cfg.ServerPort)
	if err := app.Listen(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
