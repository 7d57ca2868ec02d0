package main

import (
	"github.com/spf13/cobra"
)

func tickCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tick",
		Short: "Run every scheduled job once and exit",
		Long: `Runs auto-approval, negotiation expiry and the outbox relay a single
time. Use it when scheduling is left to an external cron and serve runs
with --jobs=false.`,
		RunE: func(c *cobra.Command, _ []string) error {
			root, _, _, closeDB, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB()

			publisher, err := root.CreateEventPublisher()
			if err != nil {
				return err
			}
			defer func() { _ = publisher.Close() }()

			jobManager, err := root.CreateJobManager(publisher)
			if err != nil {
				return err
			}
			return jobManager.RunOnce(commandContext(c))
		},
	}
}
