package main

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"kharcha/internal/export"
)

func newExportCmd(get func() *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the ledger as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := get()
			entries, err := a.svc.List(cmd.Context())
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" && output != "-" {
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}
			if err := export.WriteCSV(w, entries); err != nil {
				return fmt.Errorf("write csv: %w", err)
			}
			if output != "" && output != "-" {
				a.logger.Info("Exported ledger", "path", output, "count", len(entries))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}
