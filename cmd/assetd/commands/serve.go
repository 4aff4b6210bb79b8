package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/stemyke/node-backend-sub000/api"
	"github.com/stemyke/node-backend-sub000/config"
	"github.com/stemyke/node-backend-sub000/logging/logger"
	"github.com/stemyke/node-backend-sub000/notify"
)

const shutdownTimeout = 30 * time.Second

// NewServeCommand runs the HTTP API, the scheduler and, without RabbitMQ,
// the job workers.
func NewServeCommand(load func() (*config.Config, error)) *cobra.Command {
	var withConsumer bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, cfg, withConsumer)
		},
	}
	cmd.Flags().BoolVar(&withConsumer, "with-consumer", false, "also consume the default RabbitMQ queue in this process")
	return cmd
}

func serve(ctx context.Context, cfg *config.Config, withConsumer bool) error {
	a, err := newApp(ctx, cfg, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	go a.hub.Run(ctx)
	if a.relay != nil {
		go func() {
			if err := a.relay.Relay(ctx, a.hub); err != nil {
				logger.Error(ctx, "progress event relay stopped", "error", err)
			}
		}()
	}

	if a.local != nil {
		a.local.Start()
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			a.local.Stop(sctx)
		}()
	} else if withConsumer {
		go consume(ctx, a, cfg.Asset.DefaultQueue)
	}

	sched, err := a.scheduler()
	if err != nil {
		return err
	}
	sched.Start()
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		sched.Stop(sctx)
	}()

	router := api.NewRouter(cfg.Server.Mode, &api.Services{
		Assets:     a.assets,
		Lazy:       a.lazy,
		Progresses: a.progresses,
		Jobs:       a.registry,
		Socket:     notify.NewHandler(ctx, a.hub),
		Health:     a.mongo.Health,
	})
	srv := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router,
		ReadHeaderTimeout: 15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info(ctx, "Starting server", "addr", srv.Addr, "app", cfg.AppName)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info(context.Background(), "Shutting down server...")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		logger.Error(sctx, "Server forced to shutdown", "error", err)
		return err
	}
	logger.Info(sctx, "Server exited")
	return nil
}
