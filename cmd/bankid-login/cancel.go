package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func cancelCmd(global *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <orderRef>",
		Short: "Cancel an order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := global.coordinator()
			if err != nil {
				return err
			}
			c.CancelSession(cmd.Context(), args[0])
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Cancel requested for %s\n", args[0])
			return nil
		},
	}
}
