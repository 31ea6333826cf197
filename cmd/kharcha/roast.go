package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRoastCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "roast",
		Short: "Ask the model for a blunt review of recent spending",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := get().svc.Review(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
}
