package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"
	"hisobchi/internal/cli"
	applog "hisobchi/internal/log"
	"hisobchi/internal/notify/rabbit"
)

// deliver is where the interaction layer would push the message out to the
// recipient's chat. The notifier binary itself only records the delivery.
func deliver(logger *applog.Logger, msg *rabbit.Message) error {
	switch msg.Type {
	case rabbit.TypeApprovalRequest:
		logger.Info("Approval request",
			"message_id", msg.ID,
			"recipient", msg.Recipient,
			"kind", msg.Kind,
			"transaction_id", msg.TransactionID,
			"submitter", msg.SubmitterID)
	case rabbit.TypeDecisionNotice:
		logger.Info("Decision notice",
			"message_id", msg.ID,
			"recipient", msg.Recipient,
			"kind", msg.Kind,
			"transaction_id", msg.TransactionID,
			"decision", msg.Decision)
	default:
		logger.Warn("Unknown message type", "message_id", msg.ID, "type", msg.Type)
	}
	return nil
}

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(applog.ComponentNotifier)
	cfg := cli.LoadAndValidateConfig(logger)

	if cfg.AMQPURL == "" {
		logger.Error("AMQP_URL is required for the notifier")
		os.Exit(1)
	}

	client, err := rabbit.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		logger.Error("Failed to initialize AMQP client", "error", err)
		os.Exit(1)
	}
	defer client.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.Consume(ctx, func(msg *rabbit.Message) error {
			return deliver(logger, msg)
		})
	})

	logger.Info("Starting hisobchi-notifier", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Message consumption failed", "error", err)
		os.Exit(1)
	}
	logger.Info("Notifier stopped gracefully")
}
