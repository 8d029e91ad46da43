package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/acre/config"
	stagedrepo "github.com/Ramsey-B/acre/internal/repositories/stagedevent"
	"github.com/Ramsey-B/acre/pkg/database"
	"github.com/Ramsey-B/acre/pkg/kafka"
)

var validate = validator.New()

// createConsumeCmd creates the standalone consumer command
func createConsumeCmd(cfg config.Config, logger ectologger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "consume",
		Short: "Consume transaction events and stage them for reconciliation",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			db, err := database.Connect(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer db.Close()

			staged := stagedrepo.NewRepository(db, logger)
			consumer := kafka.NewConsumer(cfg, logger, stagingHandler(staged))
			if err := consumer.Start(ctx); err != nil {
				return err
			}

			<-ctx.Done()
			return consumer.Stop()
		},
	}
}

// stagingHandler validates incoming events and appends them to the staged
// event store. A validation failure is terminal for the message; a store
// failure is returned so the message is redelivered.
func stagingHandler(staged *stagedrepo.Repository) kafka.MessageHandler {
	return func(ctx context.Context, msg *kafka.IncomingMessage) error {
		if msg.Event == nil {
			return nil
		}
		if err := validate.Struct(msg.Event); err != nil {
			// Invalid events are dropped, not retried.
			return nil
		}
		return staged.Append(ctx, msg.ToTransaction())
	}
}

// createProduceCmd creates the feed-to-transport publisher command
func createProduceCmd(cfg config.Config, logger ectologger.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "produce",
		Short: "Publish the transaction feed archives as events",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			eventPaths, err := globFeed(cfg.DataDir, cfg.EventFeedGlob)
			if err != nil {
				return err
			}

			producer := newProducer(cfg, logger)
			defer producer.Close()

			feed := newEventFeed(cfg, logger, eventPaths)
			txns, err := feed.Transactions(ctx)
			if err != nil {
				return err
			}

			published := 0
			for _, txn := range txns {
				event := txn.ToCreateRequest()
				if err := producer.PublishEvent(ctx, &event); err != nil {
					return fmt.Errorf("published %d of %d events: %w", published, len(txns), err)
				}
				published++
			}

			logger.WithContext(ctx).WithFields(map[string]any{"events": published}).Info("Published transaction feed")
			return nil
		},
	}
}
