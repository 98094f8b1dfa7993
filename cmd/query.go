// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vital-ai/vital-graph-sub011/pkg/resultshape"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query <file-or-text>",
		Short: "Run a SPARQL 1.1 query (SELECT, ASK, CONSTRUCT, or DESCRIBE) and print its result as SPARQL JSON",
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

			result, err := e.ExecuteSPARQLQuery(ctx, text, queryLimits())
			if err != nil {
				return err
			}

			var payload any
			var validate func([]byte) error
			switch {
			case result.Select != nil:
				payload, validate = result.Select, resultshape.ValidateSelectJSON
			case result.Construct != nil:
				payload, validate = result.Construct, resultshape.ValidateConstructJSON
			case result.Ask != nil:
				payload, validate = result.Ask, resultshape.ValidateAskJSON
			}

			raw, err := json.Marshal(payload)
			if err != nil {
				return err
			}
			if err := validate(raw); err != nil {
				return fmt.Errorf("query result failed wire format validation: %w", err)
			}

			var indented bytes.Buffer
			if err := json.Indent(&indented, raw, "", "  "); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), indented.String())
			return err
		},
	}
	return cmd
}

// readQueryArg treats arg as a file path if it names an existing file,
// otherwise as literal SPARQL text.
func readQueryArg(arg string) (string, error) {
	if info, err := os.Stat(arg); err == nil && !info.IsDir() {
		data, err := os.ReadFile(arg)
		if err != nil {
			return "", fmt.Errorf("reading query file: %w", err)
		}
		return string(data), nil
	}
	return arg, nil
}
