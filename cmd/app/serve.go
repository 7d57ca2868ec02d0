package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 10 * time.Second

func serveCmd() *cobra.Command {
	var withJobs bool

	c := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and, unless disabled, the scheduled jobs",
		RunE: func(c *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(commandContext(c), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			root, configs, logger, closeDB, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB()

			e, err := root.CreateHTTPRouter()
			if err != nil {
				return err
			}

			if withJobs {
				publisher, pubErr := root.CreateEventPublisher()
				if pubErr != nil {
					return pubErr
				}
				defer func() { _ = publisher.Close() }()

				jobManager, jobErr := root.CreateJobManager(publisher)
				if jobErr != nil {
					return jobErr
				}
				if err = jobManager.StartAll(ctx); err != nil {
					return err
				}
				defer jobManager.StopAll()
			}

			serverErr := make(chan error, 1)
			go func() {
				serverErr <- e.Start(fmt.Sprintf("0.0.0.0:%s", configs.HTTPPort))
			}()
			logger.InfoContext(ctx, "http server started", "port", configs.HTTPPort, "jobs", withJobs)

			select {
			case err = <-serverErr:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-ctx.Done():
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.InfoContext(shutdownCtx, "shutting down")
			return e.Shutdown(shutdownCtx)
		},
	}
	c.Flags().BoolVar(&withJobs, "jobs", true, "run auto-approval, negotiation expiry and outbox relay jobs in this process")
	return c
}
