package http

import (
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/config"
	"github.com/phishsim/backend/internal/http/handlers"
	"github.com/phishsim/backend/internal/middleware"
)

func SetupRouter(
	app *fiber.App,
	cfg *config.Config,
	log *zap.Logger,
	rdb *redis.Client,
	authHandler *handlers.AuthHandler,
	templateHandler *handlers.TemplateHandler,
	campaignHandler *handlers.CampaignHandler,
	trackHandler *handlers.TrackHandler,
	wsHub *handlers.WSHub,
) {
	// Global middleware
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, X-Request-ID",
	}))
	app.Use(middleware.RequestIDMiddleware())
	app.Use(middleware.LoggerMiddleware(log))

	// Health
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/health/mail", campaignHandler.MailerHealth)

	// Public tracking path: reached from email clients, never
	// authenticated.
	app.Get("/t/:id", trackHandler.HandleClick)
	app.Get("/awareness", trackHandler.AwarenessPage)

	api := app.Group("/api/v1")

	// Auth (public, rate limited)
	authGroup := api.Group("/auth", middleware.RateLimitMiddleware(rdb, cfg.AuthRateLimit, cfg.AuthRateWindow))
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)

	// Protected endpoints
	protected := api.Group("", middleware.AuthMiddleware(cfg, log))

	// Templates
	protected.Get("/templates", templateHandler.ListTemplates)
	protected.Get("/templates/:id", templateHandler.GetTemplate)

	// Campaigns
	protected.Post("/campaigns", campaignHandler.CreateCampaign)
	protected.Get("/campaigns", campaignHandler.ListCampaigns)
	protected.Get("/campaigns/:id", campaignHandler.GetCampaign)
	protected.Post("/campaigns/:id/send", campaignHandler.SendCampaign)

	// WebSocket
	app.Use("/ws", handlers.WSUpgradeMiddleware())
	app.Get("/ws", websocket.New(wsHub.HandleWS))
}
