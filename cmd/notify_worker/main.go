package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/annadaan/annadaan-backend/config"
	"github.com/annadaan/annadaan-backend/internal/application"
	"github.com/annadaan/annadaan-backend/pkg/helpers"
	"github.com/annadaan/annadaan-backend/pkg/mailer"
)

// Consumes donation lifecycle events and mails the coordinator inbox so
// someone can follow up on pickups by phone.
func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-notify", cfg.Env)

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		log.Fatalf("rabbitmq dial: %v", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		log.Fatalf("rabbitmq channel: %v", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(cfg.RabbitMQEventQueue, true, false, false, false, nil); err != nil {
		log.Fatalf("queue declare: %v", err)
	}
	if err := ch.Qos(8, 0, false); err != nil {
		log.Fatalf("qos: %v", err)
	}

	deliveries, err := ch.Consume(cfg.RabbitMQEventQueue, "notify-worker", false, false, false, false, nil)
	if err != nil {
		log.Fatalf("consume: %v", err)
	}

	mg := mailer.NewMailgun(cfg.MailgunDomain, cfg.MailgunAPIKey, cfg.MailgunSender)
	logger.Infof("notify worker consuming %q", cfg.RabbitMQEventQueue)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-quit:
			logger.Info("notify worker shutting down")
			return
		case d, ok := <-deliveries:
			if !ok {
				logger.Warn("delivery channel closed")
				return
			}
			handle(cfg, logger, mg, d)
		}
	}
}

func handle(cfg *config.Config, logger *logrus.Logger, mg *mailer.Mailgun, d amqp.Delivery) {
	var ev application.DonationEvent
	if err := json.Unmarshal(d.Body, &ev); err != nil {
		logger.Warnf("dropping malformed event: %v", err)
		_ = d.Nack(false, false)
		return
	}

	if cfg.MailSendEnabled && cfg.CoordinatorEmail != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		subject := fmt.Sprintf("[annadaan] %s (donation %s)", ev.Type, ev.DonationID)
		text := fmt.Sprintf(
			"Event: %s\nDonation: %s\nDonor: %s\nVolunteer: %s\nServes: %d\nPickup by: %s\n",
			ev.Type, ev.DonationID, ev.DonorID, ev.VolunteerID, ev.Serves, ev.PickupBy.Format(time.RFC3339),
		)
		if err := mg.Send(ctx, cfg.CoordinatorEmail, subject, text, ""); err != nil {
			logger.Warnf("coordinator mail failed, requeueing: %v", err)
			_ = d.Nack(false, true)
			return
		}
	}
	_ = d.Ack(false)
}
