package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/config"
	"github.com/phishsim/backend/internal/db"
	"github.com/phishsim/backend/internal/dispatch"
	"github.com/phishsim/backend/internal/events"
	apphttp "github.com/phishsim/backend/internal/http"
	"github.com/phishsim/backend/internal/http/handlers"
	"github.com/phishsim/backend/internal/repositories"
	"github.com/phishsim/backend/internal/services"
	"github.com/phishsim/backend/internal/templates"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Database
	pool, err := db.NewPostgresPool(ctx, cfg.PostgresDSN, log)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer pool.Close()

	if err := db.RunMigrations(ctx, pool, "migrations", log); err != nil {
		log.Fatal("failed to run migrations", zap.Error(err))
	}

	// Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisURL, log)
	if err != nil {
		log.Fatal("failed to connect to redis", zap.Error(err))
	}
	defer rdb.Close()

	// Private channel to the mailer service
	channel, err := dispatch.NewClient(cfg.AMQPURL, cfg.RPCQueue, log)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer channel.Close()

	// Repositories
	userRepo := repositories.NewUserRepo(pool)
	campaignRepo := repositories.NewCampaignRepo(pool)

	// Events
	publisher := events.NewRedisPublisher(rdb, log)
	subscriber := events.NewRedisSubscriber(rdb, log)

	// Services
	catalog := templates.NewCatalog()
	campaignService := services.NewCampaignService(campaignRepo, channel, catalog, publisher, cfg.SendTimeout, log)

	// Handlers
	authHandler := handlers.NewAuthHandler(userRepo, cfg, log)
	templateHandler := handlers.NewTemplateHandler(catalog)
	campaignHandler := handlers.NewCampaignHandler(campaignService, log)
	trackHandler := handlers.NewTrackHandler(campaignService, cfg.AwarenessRedirectURL, log)
	wsHub := handlers.NewWSHub(cfg, subscriber, log)

	wsHub.Start(ctx)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{"error": err.Error()})
		},
	})

	apphttp.SetupRouter(app, cfg, log, rdb, authHandler, templateHandler, campaignHandler, trackHandler, wsHub)

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		cancel()
		_ = app.Shutdown()
	}()

	addr := fmt.Sprintf(":%s", cfg.APIPort)
	log.Info("starting API server", zap.String("addr", addr))
	if err := app.Listen(addr); err != nil {
		log.Fatal("server error", zap.Error(err))
	}
}
