package commands

import (
	"context"
	"errors"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stemyke/node-backend-sub000/config"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/queue"
)

const reconnectDelay = 5 * time.Second

// NewWorkerCommand consumes jobs from RabbitMQ queues.
func NewWorkerCommand(load func() (*config.Config, error)) *cobra.Command {
	var queues []string

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run generation jobs from RabbitMQ",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			if cfg.Data.RabbitMQ == nil || cfg.Data.RabbitMQ.URL == "" {
				return errors.New("worker needs data.rabbitmq.url")
			}
			if len(queues) == 0 {
				queues = []string{cfg.Asset.DefaultQueue}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := newApp(ctx, cfg, false)
			if err != nil {
				return err
			}
			defer a.close(context.Background())

			logger.Info(ctx, "worker started", "queues", queues, "jobs", a.registry.Names())
			var wg sync.WaitGroup
			for _, name := range queues {
				wg.Add(1)
				go func(name string) {
					defer wg.Done()
					consume(ctx, a, name)
				}(name)
			}
			wg.Wait()
			return nil
		},
	}
	cmd.Flags().StringSliceVarP(&queues, "queue", "q", nil, "queues to consume (default: asset.default_queue)")
	return cmd
}

// consume keeps a consumer on queueName until ctx is done. A dropped
// channel is retried after reconnectDelay; a dropped connection is not.
func consume(ctx context.Context, a *app, queueName string) {
	for {
		err := a.rabbit.Consume(ctx, queueName, a.registry)
		if ctx.Err() != nil {
			return
		}
		if errors.Is(err, queue.ErrNotConnected) && !a.rabbit.IsConnected() {
			logger.Error(ctx, "rabbitmq connection lost", "queue", queueName)
			return
		}
		logger.Warn(ctx, "consumer stopped, retrying", "queue", queueName, "error", err)
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}
