package main

import (
	"fmt"

	"orderflow/internal/core/application/usecases/commands"
	"orderflow/internal/core/domain/model/kernel"

	"github.com/spf13/cobra"
)

func releaseQuarantineCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "release-quarantine ORDER_ID",
		Short: "Make a quarantined order loadable again after it was repaired",
		Args:  cobra.ExactArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			orderID, err := kernel.UUIDFromString(args[0])
			if err != nil {
				return err
			}
			cmd, err := commands.NewReleaseQuarantineCommand(orderID)
			if err != nil {
				return err
			}

			root, _, _, closeDB, err := bootstrap()
			if err != nil {
				return err
			}
			defer closeDB()

			if err = root.CreateReleaseQuarantineCommandHandler().Handle(commandContext(c), cmd); err != nil {
				return err
			}
			fmt.Fprintf(c.OutOrStdout(), "order %s released\n", orderID)
			return nil
		},
	}
}
