package routes

import (
	controller "pulsemail/controllers"
	"pulsemail/middleware"
	"pulsemail/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

func SetupAuthRoutes(app *fiber.App, db *gorm.DB, appLogger *logrus.Logger) {
	authController := controller.NewAuthController(db, appLogger)

	// Auth routes group with logging middleware
	auth := app.Group("/auth", logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Public auth endpoints (no authentication required)
	auth.Post("/register", authController.Register)
	auth.Post("/login", authController.Login)
	auth.Post("/refresh", authController.RefreshToken)

	// Protected auth endpoints (require valid JWT)
	protectedAuth := auth.Group("", middleware.Protected())
	protectedAuth.Get("/me", authController.GetProfile)
}

func SetupAPIRoutes(app *fiber.App, db *gorm.DB, appLogger *logrus.Logger) {
	mailer := utils.NewMailer()

	contactController := controller.NewContactController(db, appLogger)
	segmentController := controller.NewSegmentController(db, appLogger)
	bounceController := controller.NewBounceController(db, appLogger)
	campaignController := controller.NewCampaignController(db, appLogger, mailer)
	webhookController := controller.NewWebhookController(db, appLogger)
	trackingController := controller.NewTrackingController(db, appLogger)

	// Provider bounce webhooks are unauthenticated; providers cannot hold
	// tenant credentials
	app.Post("/webhooks/bounce/:provider", bounceController.HandleProviderWebhook)

	// Public tracking endpoints embedded in campaign emails
	app.Get("/track/open/:campaignID/:contactID/:token", trackingController.HandleOpenTracking)
	app.Get("/track/click/:campaignID/:contactID/:token", trackingController.HandleClickTracking)
	app.Get("/track/unsubscribe/:campaignID/:contactID/:token", trackingController.HandleUnsubscribe)

	// API group with versioning, auth and per-organization rate limiting
	api := app.Group("/api/v1", middleware.Protected(), middleware.OrgRateLimiter(appLogger), logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))

	// Contact routes
	contact := api.Group("/contacts")
	contact.Post("/", contactController.CreateContact)
	contact.Get("/", contactController.GetContacts)
	contact.Post("/import", contactController.ImportContacts)
	contact.Get("/export", contactController.ExportContacts)
	contact.Post("/validate-email", contactController.ValidateEmail)
	contact.Get("/:id", contactController.GetContact)
	contact.Put("/:id", contactController.UpdateContact)
	contact.Delete("/:id", contactController.DeleteContact)
	contact.Post("/:id/tags", contactController.AddTags)
	contact.Delete("/:id/tags", contactController.RemoveTags)

	// Segment routes
	segment := api.Group("/segments")
	segment.Post("/", segmentController.CreateSegment)
	segment.Get("/", segmentController.GetSegments)
	segment.Post("/test", segmentController.TestSegment)
	segment.Get("/:id", segmentController.GetSegment)
	segment.Put("/:id", segmentController.UpdateSegment)
	segment.Delete("/:id", segmentController.DeleteSegment)
	segment.Get("/:id/contacts", segmentController.GetSegmentContacts)

	// Bounce management routes
	bounce := api.Group("/bounces")
	bounce.Post("/report", bounceController.ReportBounce)
	bounce.Get("/stats", bounceController.GetBounceStats)
	bounce.Get("/contacts", bounceController.GetBouncedContacts)
	bounce.Get("/retry-eligible", bounceController.GetRetryEligibleContacts)
	bounce.Post("/reset/:id", bounceController.ResetBounce)
	bounce.Post("/cleanup", bounceController.CleanupBouncedContacts)

	// Campaign routes
	campaign := api.Group("/campaigns")
	campaign.Post("/", campaignController.CreateCampaign)
	campaign.Get("/", campaignController.GetCampaigns)
	campaign.Get("/:id", campaignController.GetCampaign)
	campaign.Put("/:id", campaignController.UpdateCampaign)
	campaign.Delete("/:id", campaignController.DeleteCampaign)
	campaign.Get("/:id/audience", campaignController.PreviewAudience)
	campaign.Get("/:id/stats", campaignController.GetCampaignStats)
	campaign.Post("/:id/test", campaignController.SendTestEmail)

	// WebSocket route for live campaign progress
	app.Get("/api/v1/campaigns/progress", middleware.Protected(), websocket.New(func(c *websocket.Conn) {
		controller.HandleCampaignProgressWS(c)
	}))

	// Outbound webhook registry routes
	webhook := api.Group("/webhooks")
	webhook.Post("/", webhookController.CreateWebhook)
	webhook.Get("/", webhookController.GetWebhooks)
	webhook.Get("/:id", webhookController.GetWebhook)
	webhook.Put("/:id", webhookController.UpdateWebhook)
	webhook.Delete("/:id", webhookController.DeleteWebhook)
	webhook.Post("/:id/rotate-secret", webhookController.RegenerateSecret)
}

func SetupRoutes(app *fiber.App, db *gorm.DB, appLogger *logrus.Logger) {
	// Setup health check endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	SetupAuthRoutes(app, db, appLogger)
	SetupAPIRoutes(app, db, appLogger)

	// Setup 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"error":   "Not Found",
			"message": "The requested resource was not found",
		})
	})
}
