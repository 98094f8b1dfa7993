// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <file-or-text>",
		Short: "Run a SPARQL 1.1 Update request (INSERT/DELETE DATA, DELETE/INSERT WHERE, LOAD, CLEAR, ...)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			text, err := readQueryArg(args[0])
			if err != nil {
				return err
			}

			e, err := NewEngine(ctx)
			if err != nil {
				return err
			}
			defer e.Close()

			sp, _ := pterm.DefaultSpinner.WithText("Running update...").Start()
			if err := e.ExecuteSPARQLUpdate(ctx, text); err != nil {
				sp.Fail(fmt.Sprintf("Update failed: %s", err))
				return err
			}
			sp.Success("Update complete")
			return nil
		},
	}
	return cmd
}
