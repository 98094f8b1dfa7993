// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func initSchemaCmd() *cobra.Command {
	var unlogged bool
	var prefixFile string

	cmd := &cobra.Command{
		Use:   "initschema",
		Short: "Create the four per-space tables for a new space",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			e, err := NewEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sp, _ := pterm.DefaultSpinner.WithText("Creating space schema...").Start()
			if err := e.CreateSpace(ctx, unlogged); err != nil {
				sp.Fail(fmt.Sprintf("Failed to create space: %s", err))
				return err
			}
			sp.Success("Space schema created")

			if prefixFile != "" {
				data, err := os.ReadFile(prefixFile)
				if err != nil {
					return fmt.Errorf("reading prefix file: %w", err)
				}
				if err := e.LoadPrefixFile(ctx, data); err != nil {
					return fmt.Errorf("loading prefixes: %w", err)
				}
				pterm.Success.Println("Namespace prefixes loaded from " + prefixFile)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&unlogged, "unlogged", false, "Declare the four tables UNLOGGED for maximum ingest throughput")
	cmd.Flags().StringVar(&prefixFile, "prefixes", "", "Optional prefixes.yaml file to bulk-load into the namespace table")
	return cmd
}
