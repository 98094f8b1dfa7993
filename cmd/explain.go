// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph-sub011/cmd/flags"
	"github.com/vital-ai/vital-graph-sub011/pkg/assemble"
	"github.com/vital-ai/vital-graph-sub011/pkg/sparql/parser"
	"github.com/vital-ai/vital-graph-sub011/pkg/sql2sparqlpg"
	"github.com/vital-ai/vital-graph-sub011/pkg/storage"
)

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain <file-or-text>",
		Short: "Compile a SPARQL query to SQL and print it without executing, for debugging the translator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readQueryArg(args[0])
			if err != nil {
				return err
			}

			names, err := storage.NewNames(flags.Prefix(), flags.Space())
			if err != nil {
				return err
			}

			q, err := parser.Parse(text)
			if err != nil {
				return err
			}

			a, err := assemble.Assemble(names, q)
			if err != nil {
				return err
			}

			c, err := sql2sparqlpg.Classify(a.SQL)
			if err != nil {
				fmt.Fprintln(cmd.OutOrStdout(), a.SQL)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), c.Normalized)
			fmt.Fprintf(cmd.ErrOrStderr(), "-- kind=%s tables=%v\n", c.Kind, c.Tables)
			return nil
		},
	}
	return cmd
}
