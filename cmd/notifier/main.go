// Command notifier consumes order events and e-mails shoppers.
package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"storefront/internal/config"
	"storefront/internal/database"
	"storefront/internal/events"
	"storefront/internal/logger"
	"storefront/internal/notify"
	"storefront/internal/repository"

	"go.uber.org/zap"
)

func newMailer(cfg config.SendGridConfig, log *zap.Logger) notify.Mailer {
	if cfg.APIKey == "" {
		log.Info("SENDGRID_API_KEY not set, e-mails will only be logged")
		return notify.NewLogMailer(log)
	}
	return notify.NewSendGridMailer(cfg.APIKey, cfg.FromEmail, cfg.FromName, log)
}

func main() {
	cfg := config.Load()

	log, err := logger.New(cfg.Server.Env, cfg.Log.Level)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer log.Sync()

	if cfg.RabbitMQ.URL == "" {
		log.Fatal("RABBITMQ_URL must be set")
	}

	dbService, err := database.New(cfg.Database)
	if err != nil {
		log.Fatal("Failed to open database", zap.Error(err))
	}
	defer dbService.Close()

	broker, err := events.Dial(cfg.RabbitMQ.URL, cfg.RabbitMQ.Exchange, log)
	if err != nil {
		log.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer broker.Close()

	n := &notifier{
		orders: repository.NewOrderLedger(dbService.DB()),
		mailer: newMailer(cfg.SendGrid, log),
		logger: log,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Notifier started", zap.String("queue", cfg.RabbitMQ.Queue))
	if err := broker.Consume(ctx, cfg.RabbitMQ.Queue, n.handle); err != nil {
		log.Error("Consumer stopped", zap.Error(err))
		return
	}
	log.Info("Notifier stopped")
}
