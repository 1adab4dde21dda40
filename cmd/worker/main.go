package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbxbilling/insights/internal/config"
	"github.com/mbxbilling/insights/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
)

type binding struct {
	queue      string
	routingKey string
	consumer   string
	handle     func(*slog.Logger, amqp.Delivery)
}

func main() {
	cfg := config.Load()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))

	if cfg.RabbitMQURL == "" {
		logger.Error("RABBITMQ_URL is required")
		os.Exit(1)
	}

	conn, err := amqp.Dial(cfg.RabbitMQURL)
	if err != nil {
		logger.Error("failed to connect to RabbitMQ", "error", err)
		os.Exit(1)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		logger.Error("failed to open channel", "error", err)
		os.Exit(1)
	}
	defer ch.Close()

	if err := ch.ExchangeDeclare(events.ExchangeName, "topic", true, false, false, false, nil); err != nil {
		logger.Error("failed to declare exchange", "error", err)
		os.Exit(1)
	}

	bindings := []binding{
		{queue: events.QueueName, routingKey: events.RoutingKey, consumer: "newsletter-worker", handle: handlePostPublished},
		{queue: events.ContactQueueName, routingKey: events.ContactRoutingKey, consumer: "sales-worker", handle: handleContactReceived},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	done := make(chan string, len(bindings))
	for _, b := range bindings {
		deliveries, err := subscribe(ch, b)
		if err != nil {
			logger.Error("failed to subscribe", "queue", b.queue, "error", err)
			os.Exit(1)
		}
		logger.Info("consuming", "queue", b.queue, "routing_key", b.routingKey)
		go func(b binding) {
			for d := range deliveries {
				b.handle(logger, d)
			}
			done <- b.queue
		}(b)
	}

	select {
	case <-ctx.Done():
		logger.Info("worker shutting down")
	case q := <-done:
		logger.Warn("delivery channel closed", "queue", q)
	}
}

func subscribe(ch *amqp.Channel, b binding) (<-chan amqp.Delivery, error) {
	q, err := ch.QueueDeclare(b.queue, true, false, false, false, nil)
	if err != nil {
		return nil, err
	}
	if err := ch.QueueBind(q.Name, b.routingKey, events.ExchangeName, false, nil); err != nil {
		return nil, err
	}
	return ch.Consume(q.Name, b.consumer, false, false, false, false, nil)
}

func handlePostPublished(logger *slog.Logger, d amqp.Delivery) {
	var e events.PostPublished
	if err := json.Unmarshal(d.Body, &e); err != nil {
		logger.Error("invalid event body", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if e.Type != events.TypePostPublished {
		logger.Debug("ignoring event type", "type", e.Type)
		_ = d.Ack(false)
		return
	}
	logger.Info("post published event received",
		"post_id", e.Payload.PostID,
		"slug", e.Payload.Slug,
		"title", e.Payload.Title,
	)
	ack(logger, d)
}

func handleContactReceived(logger *slog.Logger, d amqp.Delivery) {
	var e events.ContactReceived
	if err := json.Unmarshal(d.Body, &e); err != nil {
		logger.Error("invalid event body", "error", err)
		_ = d.Nack(false, false)
		return
	}
	if e.Type != events.TypeContactReceived {
		logger.Debug("ignoring event type", "type", e.Type)
		_ = d.Ack(false)
		return
	}
	// Personal contact details are not logged.
	logger.Info("contact inquiry received",
		"inquiry_id", e.Payload.ID,
		"specialty", e.Payload.Specialty,
		"monthly_claims_volume", e.Payload.MonthlyClaimsVolume,
	)
	ack(logger, d)
}

func ack(logger *slog.Logger, d amqp.Delivery) {
	if err := d.Ack(false); err != nil {
		logger.Error("failed to ack", "error", err)
	}
}
