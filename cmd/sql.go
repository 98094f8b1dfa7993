// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

func sqlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sql <file-or-text>",
		Short: "Run raw SQL against a space's tables, bypassing the SPARQL compiler",
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

			result, err := e.ExecuteSQLQuery(ctx, text, queryLimits())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(result)
		},
	}
	return cmd
}
