package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(get func() *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>...",
		Short: "Remove entries by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			for _, id := range args {
				if err := a.svc.Delete(cmd.Context(), id); err != nil {
					return fmt.Errorf("delete %s: %w", id, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", id)
			}
			return nil
		},
	}
}
