package main

import (
	"context"
	"errors"
	"log"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/staybook/staybook/internal/config"
	"github.com/staybook/staybook/internal/database"
	"github.com/staybook/staybook/internal/queue"
	"github.com/staybook/staybook/internal/repository"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume booking and message events",
	Long: `Consume booking.created and message.sent from the broker.

Bookings are appended to the booking log; when AUTO_REPLY_ENABLED is set,
unanswered guest messages receive one automated reply from the host.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runWorker()
	},
}

func runWorker() error {
	cfg := config.LoadDatabase()
	if cfg.AMQPURL == "" {
		return errors.New("RABBITMQ_URL is not set")
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Printf("worker: consuming (auto-reply=%v)", cfg.AutoReply.Enabled)
	err = queue.NewConsumer(cfg.AMQPURL, cfg.AutoReply, repository.NewConversationRepo(db)).Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
