package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/phishsim/backend/internal/config"
	"github.com/phishsim/backend/internal/dispatch"
	"github.com/phishsim/backend/internal/mailer"
)

func main() {
	log, _ := zap.NewProduction()
	defer log.Sync()

	cfg := config.Load()
	cfg.Validate(log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	transport := mailer.NewSMTPTransport(
		cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPassword,
		cfg.FromName, cfg.FromEmail,
		cfg.SMTPMaxConns, cfg.SMTPMaxPerConn,
		log,
	)
	dispatcher := mailer.NewDispatcher(transport, cfg.TrackingBaseURL, log)

	server, err := dispatch.NewServer(cfg.AMQPURL, cfg.RPCQueue, cfg.RPCPrefetch, dispatcher, log)
	if err != nil {
		log.Fatal("failed to connect to broker", zap.Error(err))
	}
	defer server.Close()

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down mailer")
		cancel()
	}()

	log.Info("mailer started",
		zap.String("queue", cfg.RPCQueue),
		zap.String("smtp_host", cfg.SMTPHost),
	)
	if err := server.Serve(ctx); err != nil {
		log.Fatal("mailer stopped", zap.Error(err))
	}
}
